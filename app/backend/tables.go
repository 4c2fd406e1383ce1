package backend

import (
	"context"
	"fmt"

	"supabase-tasks/app/models"
)

// session resolves the credentials table calls run with.
func (c *Client) session(ctx context.Context, key string) (*models.Session, error) {
	sess, err := c.GetSession(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotAuthenticated
	}
	return sess, nil
}

// InsertTask inserts one row and returns it as stored.
func (c *Client) InsertTask(ctx context.Context, key string, task models.Task) (*models.Task, error) {
	sess, err := c.session(ctx, key)
	if err != nil {
		return nil, err
	}
	row, err := c.tasks.Insert(ctx, sess, task)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return row, nil
}

// SelectTasks returns every row visible to the session, oldest first.
func (c *Client) SelectTasks(ctx context.Context, key string) ([]models.Task, error) {
	sess, err := c.session(ctx, key)
	if err != nil {
		return nil, err
	}
	rows, err := c.tasks.Select(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	return rows, nil
}

// UpdateTaskDescription sets the description of the row with the given id.
func (c *Client) UpdateTaskDescription(ctx context.Context, key string, id models.TaskID, description string) error {
	sess, err := c.session(ctx, key)
	if err != nil {
		return err
	}
	if err := c.tasks.UpdateDescription(ctx, sess, id, description); err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	return nil
}

// DeleteTask permanently removes the row with the given id.
func (c *Client) DeleteTask(ctx context.Context, key string, id models.TaskID) ([]models.Task, error) {
	sess, err := c.session(ctx, key)
	if err != nil {
		return nil, err
	}
	rows, err := c.tasks.Delete(ctx, sess, id)
	if err != nil {
		return nil, fmt.Errorf("delete task %s: %w", id, err)
	}
	return rows, nil
}
