package models

import (
	"time"

	"golang.org/x/oauth2"
)

// User is the authenticated account attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the credential bundle issued by the identity service.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Expiry returns the access token expiry, or the zero time when unknown.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// Token converts the session into an OAuth2 bearer token.
func (s *Session) Token() *oauth2.Token {
	if s == nil {
		return nil
	}
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    tokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry(),
	}
}

// Live reports whether the access token can still be used.
func (s *Session) Live() bool {
	return s != nil && s.Token().Valid()
}
