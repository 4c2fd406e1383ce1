// Package backend is the application's single handle on the hosted backend.
// It keeps one auth session per storage key (one per browser), announces
// session changes to subscribers and runs table operations with the stored
// session's credentials.
package backend

import (
	"context"
	"errors"

	"supabase-tasks/app/models"
)

// ErrNotAuthenticated is returned by table operations when no session is
// stored for the key.
var ErrNotAuthenticated = errors.New("not authenticated")

// Credentials are the email/password pair used to sign up or sign in.
type Credentials struct {
	Email    string
	Password string
}

// Identity is the identity service surface the client consumes.
type Identity interface {
	// SignUp registers an account. The session is nil when the account
	// still has to be confirmed.
	SignUp(ctx context.Context, creds Credentials) (*models.Session, error)
	SignInWithPassword(ctx context.Context, creds Credentials) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
}

// TaskTable is the row store surface the client consumes.
type TaskTable interface {
	// Insert stores one row and returns it as stored.
	Insert(ctx context.Context, sess *models.Session, task models.Task) (*models.Task, error)
	// Select returns the session owner's rows ordered by created_at ascending.
	Select(ctx context.Context, sess *models.Session) ([]models.Task, error)
	UpdateDescription(ctx context.Context, sess *models.Session, id models.TaskID, description string) error
	// Delete removes the row and returns what was deleted.
	Delete(ctx context.Context, sess *models.Session, id models.TaskID) ([]models.Task, error)
}

// AuthChangeEvent names a session transition.
type AuthChangeEvent string

const (
	SignedIn       AuthChangeEvent = "SIGNED_IN"
	SignedOut      AuthChangeEvent = "SIGNED_OUT"
	TokenRefreshed AuthChangeEvent = "TOKEN_REFRESHED"
)

// Listener receives session transitions for a storage key. The session is
// nil for SignedOut.
type Listener func(key string, event AuthChangeEvent, sess *models.Session)
