// Package session holds the signed-in state of every browser and exposes it
// to handlers.
package session

import (
	"context"
	"sync"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/logging"
	"supabase-tasks/app/models"
)

// State is what views see: the current session, if any, and whether it is
// still being fetched.
type State struct {
	Session *models.Session
	Loading bool
}

// Authenticated reports whether a session is present.
func (s State) Authenticated() bool {
	return s.Session != nil
}

// Email returns the signed-in user's email, or "".
func (s State) Email() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.User.Email
}

// Fetcher is the part of the backend client the provider reads sessions
// from.
type Fetcher interface {
	GetSession(ctx context.Context, key string) (*models.Session, error)
	OnAuthStateChange(fn backend.Listener) *backend.Subscription
}

type entry struct {
	state State
	// evented is set when an auth event lands while the first fetch runs.
	evented bool
}

// Provider keeps one State per browser id and follows the backend's
// auth-change notifications.
type Provider struct {
	client Fetcher
	log    *logging.Logger

	mu     sync.Mutex
	states map[string]*entry

	sub *backend.Subscription
}

// NewProvider subscribes to client. Call Close to unsubscribe.
func NewProvider(client Fetcher, log *logging.Logger) *Provider {
	if log == nil {
		log = logging.Discard()
	}
	p := &Provider{
		client: client,
		log:    log,
		states: make(map[string]*entry),
	}
	p.sub = client.OnAuthStateChange(p.apply)
	return p
}

// Mount fetches the session for id unless one is already held and returns
// the resulting state. While a fetch is running, other callers for id see
// Loading. Only ids that are loading or signed in keep an entry.
func (p *Provider) Mount(ctx context.Context, id string) State {
	p.mu.Lock()
	if e, ok := p.states[id]; ok {
		st := e.state
		p.mu.Unlock()
		return st
	}
	e := &entry{state: State{Loading: true}}
	p.states[id] = e
	p.mu.Unlock()

	sess, err := p.client.GetSession(ctx, id)
	if err != nil {
		p.log.Warn("get_session_failed", map[string]any{"err": err})
		sess = nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !e.evented {
		e.state.Session = sess
	}
	e.state.Loading = false
	if e.state.Session == nil && p.states[id] == e {
		delete(p.states, id)
	}
	return e.state
}

// Session returns the current state for id without fetching.
func (p *Provider) Session(id string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.states[id]; ok {
		return e.state
	}
	return State{}
}

// Close stops following auth-change notifications.
func (p *Provider) Close() {
	p.sub.Unsubscribe()
}

func (p *Provider) apply(id string, event backend.AuthChangeEvent, sess *models.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event == backend.SignedOut || sess == nil {
		delete(p.states, id)
		return
	}
	e, ok := p.states[id]
	if !ok {
		p.states[id] = &entry{state: State{Session: sess}}
		return
	}
	e.state.Session = sess
	e.evented = true
}
