package session

import (
	"context"
	"net/http"

	"supabase-tasks/app/logging"
)

type ctxKey int

const (
	stateKey ctxKey = iota
	idKey
)

// FromContext returns the session state Provide attached to the request.
func FromContext(ctx context.Context) State {
	st, _ := ctx.Value(stateKey).(State)
	return st
}

// IDFromContext returns the browser id Provide attached to the request.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(idKey).(string)
	return id
}

// WithState attaches a browser id and its state to ctx.
func WithState(ctx context.Context, id string, st State) context.Context {
	ctx = context.WithValue(ctx, idKey, id)
	return context.WithValue(ctx, stateKey, st)
}

// Provide resolves the browser id from its cookie, mounts the provider for
// it and stores both in the request context.
func Provide(p *Provider, cookies *CookieStore, log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := cookies.ID(w, r)
			if err != nil {
				log.Error("session_cookie_failed", map[string]any{"err": err})
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			st := p.Mount(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(WithState(r.Context(), id, st)))
		})
	}
}
