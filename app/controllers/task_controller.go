package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/logging"
	"supabase-tasks/app/models"
	"supabase-tasks/app/services"
	"supabase-tasks/app/session"
	"supabase-tasks/app/views"
)

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service *services.TaskService
	Views   *views.Renderer
	Log     *logging.Logger
}

// NewTaskController creates a new TaskController.
func NewTaskController(service *services.TaskService, renderer *views.Renderer, log *logging.Logger) *TaskController {
	if log == nil {
		log = logging.Discard()
	}
	return &TaskController{Service: service, Views: renderer, Log: log}
}

// ShowTasks handles GET /tasks. The list is refetched on every view.
func (c *TaskController) ShowTasks(w http.ResponseWriter, r *http.Request) {
	id := session.IDFromContext(r.Context())
	tasks, _ := c.Service.Load(r.Context(), id)
	c.render(w, r, tasks)
}

// SubmitTask handles POST /tasks.
func (c *TaskController) SubmitTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	st := session.FromContext(r.Context())
	id := session.IDFromContext(r.Context())
	draft := services.Draft{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
	}
	_, _ = c.Service.Create(r.Context(), id, st.Email(), draft)
	c.render(w, r, c.Service.Visible(id))
}

// SubmitDescription handles POST /tasks/{taskID}/description.
func (c *TaskController) SubmitDescription(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := session.IDFromContext(r.Context())
	taskID := models.TaskID(mux.Vars(r)["taskID"])
	_ = c.Service.UpdateDescription(r.Context(), id, taskID, r.PostForm.Get("description"))
	c.render(w, r, c.Service.Visible(id))
}

// SubmitDelete handles POST /tasks/{taskID}/delete.
func (c *TaskController) SubmitDelete(w http.ResponseWriter, r *http.Request) {
	id := session.IDFromContext(r.Context())
	taskID := models.TaskID(mux.Vars(r)["taskID"])
	_ = c.Service.Delete(r.Context(), id, taskID)
	c.render(w, r, c.Service.Visible(id))
}

// GetTasks handles GET /api/tasks.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := c.Service.Load(r.Context(), session.IDFromContext(r.Context()))
	if err != nil {
		c.apiError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

// CreateTask handles POST /api/tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	st := session.FromContext(r.Context())
	newTask, err := c.Service.Create(r.Context(), session.IDFromContext(r.Context()), st.Email(),
		services.Draft{Title: body.Title, Description: body.Description})
	if err != nil {
		c.apiError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(newTask)
}

// UpdateTask handles PUT /api/tasks/{taskID}.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := models.TaskID(mux.Vars(r)["taskID"])
	var updates struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	err := c.Service.UpdateDescription(r.Context(), session.IDFromContext(r.Context()), taskID, updates.Description)
	if err != nil {
		c.apiError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Task updated successfully"))
}

// DeleteTask handles DELETE /api/tasks/{taskID}.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := models.TaskID(mux.Vars(r)["taskID"])
	if err := c.Service.Delete(r.Context(), session.IDFromContext(r.Context()), taskID); err != nil {
		c.apiError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unauthorized answers API requests that carry no session.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusUnauthorized, "not signed in")
}

func (c *TaskController) render(w http.ResponseWriter, r *http.Request, tasks []models.Task) {
	st := session.FromContext(r.Context())
	data := views.TasksData{
		Nav:   views.Nav{SignedIn: st.Authenticated(), Email: st.Email()},
		Tasks: tasks,
	}
	if err := c.Views.Render(w, http.StatusOK, views.TasksPage, data); err != nil {
		c.Log.Error("render_failed", map[string]any{"err": err, "page": views.TasksPage})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (c *TaskController) apiError(w http.ResponseWriter, err error) {
	if errors.Is(err, backend.ErrNotAuthenticated) {
		writeJSONError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
