// Package local is a self-hosted stand-in for the hosted backend: accounts,
// refresh tokens and tasks live in Neo4j and access tokens are signed JWTs.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/models"
)

var (
	// ErrUserExists is returned when signing up with a taken email.
	ErrUserExists = errors.New("user already registered")
	// ErrInvalidCredentials is returned for a wrong email or password.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrInvalidRefreshToken is returned for unknown or used refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUserNotFound is returned by a UserStore lookup that finds nothing.
	ErrUserNotFound = errors.New("user not found")
)

// RefreshTTL is how long a refresh token stays usable.
const RefreshTTL = 30 * 24 * time.Hour

// User is an account as stored.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists accounts and their refresh tokens.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// TakeRefreshToken deletes the token and returns its owner. Expired or
	// unknown tokens yield ErrInvalidRefreshToken.
	TakeRefreshToken(ctx context.Context, token string, now time.Time) (User, error)
	RevokeRefreshTokens(ctx context.Context, userID string) error
}

// Identity implements backend.Identity on top of a UserStore.
type Identity struct {
	users  UserStore
	tokens *Tokens
	cost   int
	now    func() time.Time
}

var _ backend.Identity = (*Identity)(nil)

// NewIdentity wires an identity service.
func NewIdentity(users UserStore, tokens *Tokens) *Identity {
	return &Identity{users: users, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (i *Identity) SignUp(ctx context.Context, creds backend.Credentials) (*models.Session, error) {
	email := normalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), i.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    i.now().UTC(),
	}
	if err := i.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return i.issue(ctx, u)
}

func (i *Identity) SignInWithPassword(ctx context.Context, creds backend.Credentials) (*models.Session, error) {
	u, err := i.users.UserByEmail(ctx, normalizeEmail(creds.Email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return i.issue(ctx, u)
}

// SignOut revokes every refresh token of the token's owner.
func (i *Identity) SignOut(ctx context.Context, accessToken string) error {
	claims, err := i.tokens.Verify(accessToken)
	if err != nil {
		return err
	}
	return i.users.RevokeRefreshTokens(ctx, claims.Subject)
}

// RefreshSession rotates the refresh token and issues a new session.
func (i *Identity) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	u, err := i.users.TakeRefreshToken(ctx, refreshToken, i.now())
	if err != nil {
		return nil, err
	}
	return i.issue(ctx, u)
}

func (i *Identity) issue(ctx context.Context, u User) (*models.Session, error) {
	access, exp, err := i.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	refresh := uuid.New().String()
	if err := i.users.SaveRefreshToken(ctx, u.ID, refresh, i.now().Add(RefreshTTL)); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &models.Session{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: refresh,
		ExpiresIn:    int64(i.tokens.ttl / time.Second),
		ExpiresAt:    exp.Unix(),
		User:         models.User{ID: u.ID, Email: u.Email},
	}, nil
}
