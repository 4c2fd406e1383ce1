package services

import (
	"context"
	"slices"
	"sync"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/logging"
	"supabase-tasks/app/models"
)

// Tables is the part of the backend client TaskService works with.
type Tables interface {
	InsertTask(ctx context.Context, key string, task models.Task) (*models.Task, error)
	SelectTasks(ctx context.Context, key string) ([]models.Task, error)
	UpdateTaskDescription(ctx context.Context, key string, id models.TaskID, description string) error
	DeleteTask(ctx context.Context, key string, id models.TaskID) ([]models.Task, error)
	OnAuthStateChange(fn backend.Listener) *backend.Subscription
}

// Draft holds the values of the task creation form.
type Draft struct {
	Title       string
	Description string
}

type board struct {
	tasks []models.Task
}

// TaskService keeps a task board per browser: the list last fetched or
// changed through it.
type TaskService struct {
	client Tables
	log    *logging.Logger

	mu     sync.Mutex
	boards map[string]*board

	sub *backend.Subscription
}

// NewTaskService creates a new instance of TaskService. Boards are dropped
// when their browser signs out and reset when it signs in.
func NewTaskService(client Tables, log *logging.Logger) *TaskService {
	if log == nil {
		log = logging.Discard()
	}
	s := &TaskService{
		client: client,
		log:    log,
		boards: make(map[string]*board),
	}
	s.sub = client.OnAuthStateChange(s.onAuthChange)
	return s
}

// Close stops following auth-change notifications.
func (s *TaskService) Close() {
	s.sub.Unsubscribe()
}

// Load refetches the list for id. On failure the error is logged and the
// previous list is kept.
func (s *TaskService) Load(ctx context.Context, id string) ([]models.Task, error) {
	rows, err := s.client.SelectTasks(ctx, id)
	if err != nil {
		s.log.Error("fetch_tasks_failed", map[string]any{"err": err})
		return s.Visible(id), err
	}

	s.mu.Lock()
	s.board(id).tasks = rows
	s.mu.Unlock()
	return s.Visible(id), nil
}

// Create inserts a task owned by email and appends it to the list.
func (s *TaskService) Create(ctx context.Context, id, email string, draft Draft) (*models.Task, error) {
	row, err := s.client.InsertTask(ctx, id, models.Task{
		Title:       draft.Title,
		Description: draft.Description,
		Email:       email,
	})

	if err != nil {
		s.log.Error("create_task_failed", map[string]any{"err": err})
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.board(id)
	b.tasks = append(b.tasks, *row)
	return row, nil
}

// UpdateDescription changes one task's description, then patches the list.
func (s *TaskService) UpdateDescription(ctx context.Context, id string, taskID models.TaskID, description string) error {
	if err := s.client.UpdateTaskDescription(ctx, id, taskID, description); err != nil {
		s.log.Error("update_task_failed", map[string]any{"err": err, "task_id": taskID.String()})
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.board(id)
	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			b.tasks[i].Description = description
		}
	}
	return nil
}

// Delete removes one task, then drops it from the list.
func (s *TaskService) Delete(ctx context.Context, id string, taskID models.TaskID) error {
	if _, err := s.client.DeleteTask(ctx, id, taskID); err != nil {
		s.log.Error("delete_task_failed", map[string]any{"err": err, "task_id": taskID.String()})
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.board(id)
	b.tasks = slices.DeleteFunc(b.tasks, func(t models.Task) bool { return t.ID == taskID })
	return nil
}

// Visible returns the tasks of id that have a title, in list order.
func (s *TaskService) Visible(id string) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return []models.Task{}
	}
	out := make([]models.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		if t.Renderable() {
			out = append(out, t)
		}
	}
	return out
}

// board must be called with s.mu held.
func (s *TaskService) board(id string) *board {
	b, ok := s.boards[id]
	if !ok {
		b = &board{}
		s.boards[id] = b
	}
	return b
}

func (s *TaskService) onAuthChange(id string, event backend.AuthChangeEvent, _ *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch event {
	case backend.SignedOut:
		delete(s.boards, id)
	case backend.SignedIn:
		s.boards[id] = &board{}
	}
}
