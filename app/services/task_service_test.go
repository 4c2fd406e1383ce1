package services_test

import (
	"context"
	"errors"
	"testing"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/models"
	"supabase-tasks/app/services"
	"supabase-tasks/app/testutil"
)

const browser = "browser-1"

func setup(t *testing.T) (*services.TaskService, *backend.Client, *testutil.FakeTable) {
	t.Helper()
	identity := testutil.NewFakeIdentity()
	identity.AddAccount("ada@example.com", "secret")
	identity.AddAccount("bob@example.com", "hunter2")
	table := testutil.NewFakeTable()
	client := backend.New(identity, table, nil)
	svc := services.NewTaskService(client, nil)
	t.Cleanup(svc.Close)

	signIn(t, client, "ada@example.com", "secret")
	return svc, client, table
}

func signIn(t *testing.T, client *backend.Client, email, password string) {
	t.Helper()
	_, err := client.SignInWithPassword(context.Background(), browser, backend.Credentials{Email: email, Password: password})
	if err != nil {
		t.Fatalf("sign in %s: %v", email, err)
	}
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestLoadHidesUntitledTasks(t *testing.T) {
	svc, _, table := setup(t)
	table.Seed(
		models.Task{ID: "1", Title: "First", Email: "ada@example.com"},
		models.Task{ID: "2", Title: "", Email: "ada@example.com"},
		models.Task{ID: "3", Title: "Third", Email: "ada@example.com"},
		models.Task{ID: "4", Title: "Other", Email: "bob@example.com"},
	)

	tasks, err := svc.Load(context.Background(), browser)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := titles(tasks); len(got) != 2 || got[0] != "First" || got[1] != "Third" {
		t.Fatalf("titles=%v", got)
	}
}

func TestCreateAppendsReturnedRow(t *testing.T) {
	svc, _, table := setup(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "Write", Description: "tests"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == "" || task.Email != "ada@example.com" {
		t.Fatalf("task=%+v", task)
	}
	if got := titles(svc.Visible(browser)); len(got) != 1 || got[0] != "Write" {
		t.Fatalf("visible=%v", got)
	}
	if rows := table.Rows(); len(rows) != 1 || rows[0].Description != "tests" {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestCreateFailureLeavesList(t *testing.T) {
	svc, _, table := setup(t)
	table.InsertErr = errors.New("row violates policy")

	if _, err := svc.Create(context.Background(), browser, "ada@example.com", services.Draft{Title: "Nope"}); err == nil {
		t.Fatal("expected error")
	}
	if got := svc.Visible(browser); len(got) != 0 {
		t.Fatalf("visible=%+v", got)
	}
}

func TestUpdateDescriptionPatchesOnlyOnSuccess(t *testing.T) {
	svc, _, table := setup(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "Ship", Description: "v1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	table.UpdateErr = errors.New("offline")
	if err := svc.UpdateDescription(ctx, browser, task.ID, "v2"); err == nil {
		t.Fatal("expected error")
	}
	if got := svc.Visible(browser)[0].Description; got != "v1" {
		t.Fatalf("description changed on failure: %q", got)
	}

	table.UpdateErr = nil
	if err := svc.UpdateDescription(ctx, browser, task.ID, "v2"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := svc.Visible(browser)[0].Description; got != "v2" {
		t.Fatalf("description=%q", got)
	}
	if got := table.Rows()[0].Description; got != "v2" {
		t.Fatalf("stored description=%q", got)
	}
}

func TestDeleteRemovesOnlyOnSuccess(t *testing.T) {
	svc, _, table := setup(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "A"})
	b, _ := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "B"})

	table.DeleteErr = errors.New("offline")
	if err := svc.Delete(ctx, browser, a.ID); err == nil {
		t.Fatal("expected error")
	}
	if got := svc.Visible(browser); len(got) != 2 {
		t.Fatalf("visible=%+v", got)
	}

	table.DeleteErr = nil
	if err := svc.Delete(ctx, browser, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := svc.Visible(browser)
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("visible=%+v", got)
	}
}

func TestLoadFailureKeepsPreviousList(t *testing.T) {
	svc, _, table := setup(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "Keep"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	table.SelectErr = errors.New("timeout")
	tasks, err := svc.Load(ctx, browser)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := titles(tasks); len(got) != 1 || got[0] != "Keep" {
		t.Fatalf("titles=%v", got)
	}
}

func TestSignOutDropsBoard(t *testing.T) {
	svc, client, _ := setup(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "Private"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := client.SignOut(ctx, browser); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if got := svc.Visible(browser); len(got) != 0 {
		t.Fatalf("board survived sign out: %+v", got)
	}

	signIn(t, client, "bob@example.com", "hunter2")
	if got := svc.Visible(browser); len(got) != 0 {
		t.Fatalf("new account sees old board: %+v", got)
	}
	tasks, err := svc.Load(ctx, browser)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("bob sees %+v", tasks)
	}
}

func TestOperationsWithoutSessionFail(t *testing.T) {
	svc, client, _ := setup(t)
	ctx := context.Background()
	if err := client.SignOut(ctx, browser); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	if _, err := svc.Load(ctx, browser); !errors.Is(err, backend.ErrNotAuthenticated) {
		t.Fatalf("load err=%v", err)
	}
	if _, err := svc.Create(ctx, browser, "", services.Draft{Title: "x"}); !errors.Is(err, backend.ErrNotAuthenticated) {
		t.Fatalf("create err=%v", err)
	}
}

func TestUpdateDescriptionTouchesOnlyThatTask(t *testing.T) {
	svc, _, table := setup(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "A", Description: "a1"})
	b, _ := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "B", Description: "b1"})

	if err := svc.UpdateDescription(ctx, browser, b.ID, "b2"); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := map[models.TaskID]string{a.ID: "a1", b.ID: "b2"}
	for _, task := range svc.Visible(browser) {
		if task.Description != want[task.ID] {
			t.Fatalf("local task %s description=%q, want %q", task.ID, task.Description, want[task.ID])
		}
	}
	for _, row := range table.Rows() {
		if row.Description != want[row.ID] {
			t.Fatalf("stored task %s description=%q, want %q", row.ID, row.Description, want[row.ID])
		}
	}
}

func TestSignInResetsBoard(t *testing.T) {
	svc, client, _ := setup(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, browser, "ada@example.com", services.Draft{Title: "Before"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(svc.Visible(browser)) != 1 {
		t.Fatal("board not populated")
	}

	signIn(t, client, "bob@example.com", "hunter2")
	if got := svc.Visible(browser); len(got) != 0 {
		t.Fatalf("board kept across sign in: %+v", got)
	}
}
