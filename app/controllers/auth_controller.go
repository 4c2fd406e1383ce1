package controllers

import (
	"context"
	"net/http"
	"strings"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/logging"
	"supabase-tasks/app/models"
	"supabase-tasks/app/session"
	"supabase-tasks/app/views"
)

// Authenticator is the part of the backend client the auth pages use.
type Authenticator interface {
	SignUp(ctx context.Context, key string, creds backend.Credentials) (*models.Session, error)
	SignInWithPassword(ctx context.Context, key string, creds backend.Credentials) (*models.Session, error)
	SignOut(ctx context.Context, key string) error
}

// AuthController handles sign-in, sign-up and logout.
type AuthController struct {
	Client Authenticator
	Views  *views.Renderer
	Log    *logging.Logger
}

// NewAuthController creates a new AuthController.
func NewAuthController(client Authenticator, renderer *views.Renderer, log *logging.Logger) *AuthController {
	if log == nil {
		log = logging.Discard()
	}
	return &AuthController{Client: client, Views: renderer, Log: log}
}

// Index handles GET /.
func (c *AuthController) Index(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/tasks", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

// ShowAuth handles GET /auth.
func (c *AuthController) ShowAuth(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, r.URL.Query().Get("mode") == "signup", "")
}

// SubmitAuth handles POST /auth.
func (c *AuthController) SubmitAuth(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	signUp := r.PostForm.Get("mode") == "signup"
	creds := backend.Credentials{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}
	id := session.IDFromContext(r.Context())

	var err error
	if signUp {
		_, err = c.Client.SignUp(r.Context(), id, creds)
	} else {
		_, err = c.Client.SignInWithPassword(r.Context(), id, creds)
	}
	if err != nil {
		c.Log.Error("auth_failed", map[string]any{"err": err, "signup": signUp})
		c.render(w, r, signUp, creds.Email)
		return
	}
	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.Client.SignOut(r.Context(), session.IDFromContext(r.Context())); err != nil {
		c.Log.Error("sign_out_failed", map[string]any{"err": err})
	}
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

func (c *AuthController) render(w http.ResponseWriter, r *http.Request, signUp bool, email string) {
	st := session.FromContext(r.Context())
	data := views.AuthData{
		Nav:    views.Nav{SignedIn: st.Authenticated(), Email: st.Email()},
		SignUp: signUp,
		Email:  email,
	}
	if err := c.Views.Render(w, http.StatusOK, views.AuthPage, data); err != nil {
		c.Log.Error("render_failed", map[string]any{"err": err, "page": views.AuthPage})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
