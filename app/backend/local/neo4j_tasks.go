package local

import (
	"context"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/models"
)

// TaskTable stores tasks as (:User)-[:OWNS]->(:Task) in Neo4j. Every call
// verifies the session's access token and is scoped to its owner.
type TaskTable struct {
	driver neo4j.DriverWithContext
	tokens *Tokens
}

var _ backend.TaskTable = (*TaskTable)(nil)

// NewTaskTable creates a new instance of TaskTable.
func NewTaskTable(driver neo4j.DriverWithContext, tokens *Tokens) *TaskTable {
	return &TaskTable{driver: driver, tokens: tokens}
}

const taskColumns = "t.id AS id, t.title AS title, t.description AS description, t.email AS email, t.created_at AS created_at"

// Insert adds a new task to the database.
func (s *TaskTable) Insert(ctx context.Context, sess *models.Session, task models.Task) (*models.Task, error) {
	claims, err := s.tokens.Verify(sess.AccessToken)
	if err != nil {
		return nil, err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (u:User {id: $user_id}) "+
				"CREATE (u)-[:OWNS]->(t:Task {id: $id, title: $title, description: $description, email: $email, created_at: datetime()}) "+
				"RETURN "+taskColumns,
			map[string]any{
				"user_id":     claims.Subject,
				"id":          uuid.New().String(),
				"title":       task.Title,
				"description": task.Description,
				"email":       claims.Email,
			},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return taskFromRecord(record), nil
	})
	if err != nil {
		return nil, err
	}
	row := result.(models.Task)
	return &row, nil
}

// Select retrieves the owner's tasks, oldest first.
func (s *TaskTable) Select(ctx context.Context, sess *models.Session) ([]models.Task, error) {
	claims, err := s.tokens.Verify(sess.AccessToken)
	if err != nil {
		return nil, err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (:User {id: $user_id})-[:OWNS]->(t:Task) "+
				"RETURN "+taskColumns+" ORDER BY t.created_at ASC",
			map[string]any{"user_id": claims.Subject},
		)
		if err != nil {
			return nil, err
		}

		var tasks []models.Task
		for res.Next(ctx) {
			tasks = append(tasks, taskFromRecord(res.Record()))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Task), nil
}

// UpdateDescription sets the description of one of the owner's tasks.
func (s *TaskTable) UpdateDescription(ctx context.Context, sess *models.Session, id models.TaskID, description string) error {
	claims, err := s.tokens.Verify(sess.AccessToken)
	if err != nil {
		return err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"MATCH (:User {id: $user_id})-[:OWNS]->(t:Task {id: $id}) "+
				"SET t.description = $description",
			map[string]any{
				"user_id":     claims.Subject,
				"id":          id.String(),
				"description": description,
			},
		)
		return nil, err
	})
	return err
}

// Delete removes one of the owner's tasks and returns it.
func (s *TaskTable) Delete(ctx context.Context, sess *models.Session, id models.TaskID) ([]models.Task, error) {
	claims, err := s.tokens.Verify(sess.AccessToken)
	if err != nil {
		return nil, err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (:User {id: $user_id})-[:OWNS]->(t:Task {id: $id}) "+
				"WITH t, "+taskColumns+" "+
				"DETACH DELETE t "+
				"RETURN id, title, description, email, created_at",
			map[string]any{"user_id": claims.Subject, "id": id.String()},
		)
		if err != nil {
			return nil, err
		}

		var deleted []models.Task
		for res.Next(ctx) {
			deleted = append(deleted, taskFromRecord(res.Record()))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return deleted, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Task), nil
}

func taskFromRecord(record *neo4j.Record) models.Task {
	return models.Task{
		ID:          models.TaskID(stringValue(record, "id")),
		Title:       stringValue(record, "title"),
		Description: stringValue(record, "description"),
		Email:       stringValue(record, "email"),
		CreatedAt:   timeValue(record, "created_at"),
	}
}
