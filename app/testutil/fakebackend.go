// Package testutil provides in-memory stand-ins for the backend surfaces.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/models"
)

// ErrInvalidLogin is returned by FakeIdentity for unknown credentials.
var ErrInvalidLogin = errors.New("invalid login credentials")

// FakeIdentity keeps accounts in memory and hands out sessions that expire
// after TTL.
type FakeIdentity struct {
	mu sync.Mutex

	TTL time.Duration

	// Set these to force the corresponding call to fail.
	SignUpErr  error
	SignInErr  error
	SignOutErr error
	RefreshErr error

	// ConfirmEmail makes SignUp return no session.
	ConfirmEmail bool

	accounts map[string]string
	refresh  map[string]string
	seq      int

	SignOutCalls []string
	RefreshCalls int
}

// NewFakeIdentity returns an identity service whose sessions last an hour.
func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{
		TTL:      time.Hour,
		accounts: make(map[string]string),
		refresh:  make(map[string]string),
	}
}

// AddAccount registers an account without going through SignUp.
func (f *FakeIdentity) AddAccount(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[email] = password
}

func (f *FakeIdentity) SignUp(_ context.Context, creds backend.Credentials) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	if _, ok := f.accounts[creds.Email]; ok {
		return nil, errors.New("user already registered")
	}
	f.accounts[creds.Email] = creds.Password
	if f.ConfirmEmail {
		return nil, nil
	}
	return f.issue(creds.Email), nil
}

func (f *FakeIdentity) SignInWithPassword(_ context.Context, creds backend.Credentials) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	if pw, ok := f.accounts[creds.Email]; !ok || pw != creds.Password {
		return nil, ErrInvalidLogin
	}
	return f.issue(creds.Email), nil
}

func (f *FakeIdentity) SignOut(_ context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignOutCalls = append(f.SignOutCalls, accessToken)
	return f.SignOutErr
}

func (f *FakeIdentity) RefreshSession(_ context.Context, refreshToken string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RefreshCalls++
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	email, ok := f.refresh[refreshToken]
	if !ok {
		return nil, errors.New("invalid refresh token")
	}
	delete(f.refresh, refreshToken)
	return f.issue(email), nil
}

// Expire issues an already expired session for email, as if it had been
// stored a long time ago.
func (f *FakeIdentity) Expire(email string) *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.issue(email)
	s.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	return s
}

func (f *FakeIdentity) issue(email string) *models.Session {
	f.seq++
	refresh := fmt.Sprintf("refresh-%d", f.seq)
	f.refresh[refresh] = email
	return &models.Session{
		AccessToken:  fmt.Sprintf("access-%d", f.seq),
		TokenType:    "bearer",
		RefreshToken: refresh,
		ExpiresIn:    int64(f.TTL / time.Second),
		ExpiresAt:    time.Now().Add(f.TTL).Unix(),
		User:         models.User{ID: "user-" + email, Email: email},
	}
}

// FakeTable is an in-memory task table scoped by the session owner's email.
type FakeTable struct {
	mu sync.Mutex

	InsertErr error
	SelectErr error
	UpdateErr error
	DeleteErr error

	rows []models.Task
	seq  int
	now  time.Time
}

// NewFakeTable returns an empty table.
func NewFakeTable() *FakeTable {
	return &FakeTable{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

// Seed stores rows as they are, bypassing Insert.
func (f *FakeTable) Seed(rows ...models.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
}

// Rows returns a copy of everything stored.
func (f *FakeTable) Rows() []models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Task(nil), f.rows...)
}

func (f *FakeTable) Insert(_ context.Context, sess *models.Session, task models.Task) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		return nil, f.InsertErr
	}
	f.seq++
	f.now = f.now.Add(time.Minute)
	task.ID = models.TaskID(strconv.Itoa(f.seq))
	task.CreatedAt = f.now
	if task.Email == "" {
		task.Email = sess.User.Email
	}
	f.rows = append(f.rows, task)
	return &task, nil
}

func (f *FakeTable) Select(_ context.Context, sess *models.Session) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SelectErr != nil {
		return nil, f.SelectErr
	}
	var out []models.Task
	for _, t := range f.rows {
		if t.Email == sess.User.Email {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *FakeTable) UpdateDescription(_ context.Context, sess *models.Session, id models.TaskID, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	for i, t := range f.rows {
		if t.ID == id && t.Email == sess.User.Email {
			f.rows[i].Description = description
		}
	}
	return nil
}

func (f *FakeTable) Delete(_ context.Context, sess *models.Session, id models.TaskID) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return nil, f.DeleteErr
	}
	var kept, deleted []models.Task
	for _, t := range f.rows {
		if t.ID == id && t.Email == sess.User.Email {
			deleted = append(deleted, t)
			continue
		}
		kept = append(kept, t)
	}
	f.rows = kept
	return deleted, nil
}
