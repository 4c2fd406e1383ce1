package local

import (
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	tok, exp, err := tokens.Issue("u1", "ada@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(issued.Add(time.Minute)) {
		t.Fatalf("exp=%s", exp)
	}
	if _, err := tokens.Verify(tok); err != nil {
		t.Fatalf("verify fresh: %v", err)
	}

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired err=%v", err)
	}
}

func TestTokensRejectOtherSecret(t *testing.T) {
	tok, _, err := NewTokens("one", time.Minute).Issue("u1", "ada@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokens("two", time.Minute).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err=%v", err)
	}
}

func TestTaskFromRecord(t *testing.T) {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	record := &neo4j.Record{
		Keys:   []string{"id", "title", "description", "email", "created_at"},
		Values: []any{"t1", "T", nil, "ada@example.com", created},
	}

	task := taskFromRecord(record)
	if task.ID != "t1" || task.Title != "T" || task.Description != "" || !task.CreatedAt.Equal(created) {
		t.Fatalf("task=%+v", task)
	}
}
