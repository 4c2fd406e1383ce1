package supabase

import (
	"context"

	"golang.org/x/oauth2"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/models"
)

var _ backend.TaskTable = (*TaskTable)(nil)

// TaskTable stores tasks in a PostgREST table. It satisfies
// backend.TaskTable.
type TaskTable struct {
	c    *Client
	name string
}

// TaskTable returns the task store backed by the named table.
func (c *Client) TaskTable(name string) *TaskTable {
	return &TaskTable{c: c, name: name}
}

type newTaskRow struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Email       string `json:"email,omitempty"`
}

func bearer(sess *models.Session) oauth2.TokenSource {
	return oauth2.StaticTokenSource(sess.Token())
}

func (t *TaskTable) Insert(ctx context.Context, sess *models.Session, task models.Task) (*models.Task, error) {
	var row models.Task
	err := t.c.From(t.name).
		WithToken(bearer(sess)).
		Insert(newTaskRow{Title: task.Title, Description: task.Description, Email: task.Email}).
		Select("*").
		Single().
		Execute(ctx, &row)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (t *TaskTable) Select(ctx context.Context, sess *models.Session) ([]models.Task, error) {
	var rows []models.Task
	q := t.c.From(t.name).WithToken(bearer(sess)).Select("*")
	if sess.User.Email != "" {
		q = q.Eq("email", sess.User.Email)
	}
	if err := q.Order("created_at", true).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *TaskTable) UpdateDescription(ctx context.Context, sess *models.Session, id models.TaskID, description string) error {
	return t.c.From(t.name).
		WithToken(bearer(sess)).
		Update(map[string]string{"description": description}).
		Eq("id", id.String()).
		Execute(ctx, nil)
}

func (t *TaskTable) Delete(ctx context.Context, sess *models.Session, id models.TaskID) ([]models.Task, error) {
	var rows []models.Task
	err := t.c.From(t.name).
		WithToken(bearer(sess)).
		Delete().
		Eq("id", id.String()).
		Select("*").
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
