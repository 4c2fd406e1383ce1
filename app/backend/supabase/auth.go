package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/models"
)

var _ backend.Identity = (*Auth)(nil)

// Auth is the GoTrue half of the project. It satisfies backend.Identity.
type Auth struct {
	c   *Client
	now func() time.Time
}

// Auth returns the identity service of the project.
func (c *Client) Auth() *Auth {
	return &Auth{c: c, now: time.Now}
}

// sessionResponse covers both answers of /signup: a full session, or a bare
// user when the project requires email confirmation.
type sessionResponse struct {
	models.Session
	ID    string `json:"id"`
	Email string `json:"email"`
}

type passwordBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers an account. It returns a nil session when the project
// still has to confirm the email address.
func (a *Auth) SignUp(ctx context.Context, creds backend.Credentials) (*models.Session, error) {
	var resp sessionResponse
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   passwordBody{Email: creds.Email, Password: creds.Password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, nil
	}
	return a.normalize(&resp.Session), nil
}

// SignInWithPassword exchanges email and password for a session.
func (a *Auth) SignInWithPassword(ctx context.Context, creds backend.Credentials) (*models.Session, error) {
	return a.token(ctx, "password", passwordBody{Email: creds.Email, Password: creds.Password})
}

// RefreshSession exchanges a refresh token for a new session.
func (a *Auth) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	return a.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// SignOut revokes the session the access token belongs to.
func (a *Auth) SignOut(ctx context.Context, accessToken string) error {
	return a.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "bearer"}),
	}, nil)
}

func (a *Auth) token(ctx context.Context, grant string, body any) (*models.Session, error) {
	var sess models.Session
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grant}},
		body:   body,
	}, &sess)
	if err != nil {
		return nil, err
	}
	return a.normalize(&sess), nil
}

// normalize fills expires_at for servers that only send expires_in.
func (a *Auth) normalize(sess *models.Session) *models.Session {
	if sess.ExpiresAt == 0 && sess.ExpiresIn > 0 {
		sess.ExpiresAt = a.now().Add(time.Duration(sess.ExpiresIn) * time.Second).Unix()
	}
	return sess
}
