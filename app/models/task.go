package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TaskID identifies a task row. Supabase tables usually key rows with a
// bigint identity while the Neo4j store uses uuids, so both forms decode.
type TaskID string

// UnmarshalJSON accepts a JSON string or number.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	*id = TaskID(n.String())
	return nil
}

func (id TaskID) String() string { return string(id) }

// Task represents a row of the Task table.
type Task struct {
	ID          TaskID    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

// Renderable reports whether the task has a title to show.
func (t Task) Renderable() bool {
	return t.Title != ""
}
