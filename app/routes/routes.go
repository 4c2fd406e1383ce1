package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"supabase-tasks/app/controllers"
	"supabase-tasks/app/logging"
	"supabase-tasks/app/middleware"
	"supabase-tasks/app/session"
	"supabase-tasks/app/views"
)

// Deps is everything RegisterRoutes wires together.
type Deps struct {
	Provider *session.Provider
	Cookies  *session.CookieStore
	Views    *views.Renderer
	Auth     *controllers.AuthController
	Tasks    *controllers.TaskController
	Log      *logging.Logger
}

// RegisterRoutes sets up all routes for the application.
func RegisterRoutes(router *mux.Router, d Deps) {
	router.Use(middleware.RequestID, middleware.Logging(d.Log))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	app := router.NewRoute().Subrouter()
	app.Use(session.Provide(d.Provider, d.Cookies, d.Log))

	app.HandleFunc("/", d.Auth.Index).Methods(http.MethodGet)
	app.HandleFunc("/auth", d.Auth.ShowAuth).Methods(http.MethodGet)
	app.HandleFunc("/auth", d.Auth.SubmitAuth).Methods(http.MethodPost)
	app.HandleFunc("/logout", d.Auth.Logout).Methods(http.MethodPost)

	pages := app.PathPrefix("/tasks").Subrouter()
	pages.Use(session.RequireSession(d.Views.Placeholder(), session.RedirectTo("/auth")))
	pages.HandleFunc("", d.Tasks.ShowTasks).Methods(http.MethodGet)
	pages.HandleFunc("", d.Tasks.SubmitTask).Methods(http.MethodPost)
	pages.HandleFunc("/{taskID}/description", d.Tasks.SubmitDescription).Methods(http.MethodPost)
	pages.HandleFunc("/{taskID}/delete", d.Tasks.SubmitDelete).Methods(http.MethodPost)

	api := app.PathPrefix("/api").Subrouter()
	api.Use(session.RequireSession(d.Views.Placeholder(), http.HandlerFunc(controllers.Unauthorized)))
	api.HandleFunc("/tasks", d.Tasks.GetTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", d.Tasks.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}", d.Tasks.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID}", d.Tasks.DeleteTask).Methods(http.MethodDelete)
}
