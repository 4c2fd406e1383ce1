// Package views renders the HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"supabase-tasks/app/models"
)

//go:embed templates/*.html
var files embed.FS

// Page names accepted by Render.
const (
	AuthPage    = "auth.html"
	TasksPage   = "tasks.html"
	LoadingPage = "loading.html"
)

// Nav is what the navigation bar needs.
type Nav struct {
	SignedIn bool
	Email    string
}

// AuthData drives the sign-in / sign-up page.
type AuthData struct {
	Nav
	SignUp bool
	Email  string
}

// TasksData drives the task manager page. The creation form always
// renders empty.
type TasksData struct {
	Nav
	Tasks []models.Task
}

// Renderer executes the page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page together with the shared layout.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{AuthPage, TasksPage, LoadingPage} {
		t, err := template.New("layout.html").ParseFS(files, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render writes the page with the given status. The page is rendered to a
// buffer first so a template error never leaves half a page behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Placeholder serves the loading page.
func (r *Renderer) Placeholder() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := r.Render(w, http.StatusOK, LoadingPage, Nav{}); err != nil {
			http.Error(w, "Loading...", http.StatusOK)
		}
	})
}
