package session

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// CookieName is the name of the cookie carrying the browser id.
const CookieName = "sb-tasks"

const idValue = "id"

// CookieStore hands every browser a random id in a signed cookie.
type CookieStore struct {
	store *sessions.CookieStore
}

// NewCookieStore signs cookies with secret.
func NewCookieStore(secret string, secure bool) *CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieStore{store: store}
}

// ID returns the browser id of the request, issuing a new one (and setting
// the cookie on w) when the request has none or it does not verify.
func (c *CookieStore) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	// A cookie that fails to decode still yields a fresh session.
	s, _ := c.store.Get(r, CookieName)
	if id, ok := s.Values[idValue].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.New().String()
	s.Values[idValue] = id
	if err := s.Save(r, w); err != nil {
		return "", fmt.Errorf("save session cookie: %w", err)
	}
	return id, nil
}
