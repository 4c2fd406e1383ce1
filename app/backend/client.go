package backend

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"supabase-tasks/app/logging"
	"supabase-tasks/app/models"
)

// Client is configured once at startup and shared by every component.
type Client struct {
	identity Identity
	tasks    TaskTable
	log      *logging.Logger

	mu        sync.Mutex
	sessions  map[string]*models.Session
	refreshes singleflight.Group

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
}

// New creates a Client on top of an identity service and a task table.
func New(identity Identity, tasks TaskTable, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		identity:  identity,
		tasks:     tasks,
		log:       log,
		sessions:  make(map[string]*models.Session),
		listeners: make(map[uint64]Listener),
	}
}

// SignUp registers an account and, when the identity service hands back a
// session, stores it under key.
func (c *Client) SignUp(ctx context.Context, key string, creds Credentials) (*models.Session, error) {
	sess, err := c.identity.SignUp(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if sess != nil {
		c.store(key, sess)
		c.emit(key, SignedIn, sess)
	}
	return sess, nil
}

// SignInWithPassword signs in and stores the session under key.
func (c *Client) SignInWithPassword(ctx context.Context, key string, creds Credentials) (*models.Session, error) {
	sess, err := c.identity.SignInWithPassword(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	c.store(key, sess)
	c.emit(key, SignedIn, sess)
	return sess, nil
}

// SignOut forgets the session stored under key and revokes it remotely. The
// local session is gone even when the remote call fails.
func (c *Client) SignOut(ctx context.Context, key string) error {
	c.mu.Lock()
	sess := c.sessions[key]
	delete(c.sessions, key)
	c.mu.Unlock()

	c.emit(key, SignedOut, nil)

	if sess == nil {
		return nil
	}
	if err := c.identity.SignOut(ctx, sess.AccessToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// GetSession returns the session stored under key, refreshing it first when
// the access token has expired. It returns nil, nil when there is none.
// Concurrent callers for one key share a single refresh.
func (c *Client) GetSession(ctx context.Context, key string) (*models.Session, error) {
	c.mu.Lock()
	sess := c.sessions[key]
	c.mu.Unlock()

	if sess == nil || sess.Live() {
		return sess, nil
	}

	v, err, _ := c.refreshes.Do(key, func() (any, error) {
		return c.refresh(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Session), nil
}

// refresh replaces the expired session stored under key. A session that
// changed while the refresh ran is left alone.
func (c *Client) refresh(ctx context.Context, key string) (*models.Session, error) {
	c.mu.Lock()
	sess := c.sessions[key]
	c.mu.Unlock()

	if sess == nil || sess.Live() {
		return sess, nil
	}

	fresh, err := c.identity.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		c.mu.Lock()
		current := c.sessions[key]
		removed := current == sess
		if removed {
			delete(c.sessions, key)
		}
		c.mu.Unlock()

		if !removed {
			c.log.Warn("refresh_superseded", map[string]any{"err": err})
			return current, nil
		}
		c.emit(key, SignedOut, nil)
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	c.mu.Lock()
	current := c.sessions[key]
	swapped := current == sess
	if swapped {
		c.sessions[key] = fresh
	}
	c.mu.Unlock()

	if !swapped {
		return current, nil
	}
	c.emit(key, TokenRefreshed, fresh)
	return fresh, nil
}

// OnAuthStateChange registers fn for every session transition. Listeners run
// synchronously in emission order.
func (c *Client) OnAuthStateChange(fn Listener) *Subscription {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	return &Subscription{id: id, client: c}
}

// Subscription is returned by OnAuthStateChange.
type Subscription struct {
	id     uint64
	client *Client
	once   sync.Once
}

// Unsubscribe stops delivery to the listener. It is safe to call twice.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.client.listenersMu.Lock()
		delete(s.client.listeners, s.id)
		s.client.listenersMu.Unlock()
	})
}

func (c *Client) store(key string, sess *models.Session) {
	c.mu.Lock()
	c.sessions[key] = sess
	c.mu.Unlock()
}

func (c *Client) emit(key string, event AuthChangeEvent, sess *models.Session) {
	c.listenersMu.Lock()
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.listenersMu.Unlock()

	c.log.Info("auth_state_change", map[string]any{"event": string(event)})
	for _, fn := range fns {
		fn(key, event, sess)
	}
}
