package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"supabase-tasks/app/backend"
	"supabase-tasks/app/models"
)

const anonKey = "anon-key"

// captured is what the fake project saw for one request.
type captured struct {
	method string
	path   string
	query  string
	header http.Header
	body   map[string]any
}

func newProject(t *testing.T, status int, response string) (*Client, *[]captured) {
	t.Helper()
	var seen []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, header: r.Header.Clone()}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			if err := json.Unmarshal(b, &c.body); err != nil {
				t.Errorf("request body is not an object: %s", b)
			}
		}
		seen = append(seen, c)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", anonKey, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, &seen
}

func userSession() *models.Session {
	return &models.Session{
		AccessToken: "user-jwt",
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        models.User{ID: "u1", Email: "ada@example.com"},
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient("ftp://example.com", anonKey, nil); err == nil {
		t.Fatal("expected scheme error")
	}
	if _, err := NewClient("https://example.supabase.co", "", nil); err == nil {
		t.Fatal("expected anon key error")
	}
}

func TestSignInWithPassword(t *testing.T) {
	c, seen := newProject(t, http.StatusOK, `{
		"access_token":"jwt","token_type":"bearer","refresh_token":"r1",
		"expires_in":3600,"user":{"id":"u1","email":"ada@example.com"}}`)

	sess, err := c.Auth().SignInWithPassword(context.Background(), backend.Credentials{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.AccessToken != "jwt" || sess.User.Email != "ada@example.com" {
		t.Fatalf("session=%+v", sess)
	}
	if sess.ExpiresAt == 0 || !sess.Live() {
		t.Fatalf("expires_at not derived from expires_in: %+v", sess)
	}

	req := (*seen)[0]
	if req.method != http.MethodPost || req.path != "/auth/v1/token" || req.query != "grant_type=password" {
		t.Fatalf("request=%s %s?%s", req.method, req.path, req.query)
	}
	if req.header.Get("apikey") != anonKey || req.header.Get("Authorization") != "Bearer "+anonKey {
		t.Fatalf("headers=%v", req.header)
	}
	if req.body["email"] != "ada@example.com" || req.body["password"] != "pw" {
		t.Fatalf("body=%v", req.body)
	}
}

func TestSignUpAwaitingConfirmation(t *testing.T) {
	c, seen := newProject(t, http.StatusOK, `{"id":"u2","email":"new@example.com","confirmation_sent_at":"2026-01-01T00:00:00Z"}`)

	sess, err := c.Auth().SignUp(context.Background(), backend.Credentials{Email: "new@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session, got %+v", sess)
	}
	if (*seen)[0].path != "/auth/v1/signup" {
		t.Fatalf("path=%s", (*seen)[0].path)
	}
}

func TestRefreshSessionSendsGrant(t *testing.T) {
	c, seen := newProject(t, http.StatusOK, `{"access_token":"jwt2","refresh_token":"r2","expires_at":4102444800,"user":{"email":"ada@example.com"}}`)

	sess, err := c.Auth().RefreshSession(context.Background(), "r1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if sess.ExpiresAt != 4102444800 {
		t.Fatalf("expires_at overwritten: %d", sess.ExpiresAt)
	}
	req := (*seen)[0]
	if req.query != "grant_type=refresh_token" || req.body["refresh_token"] != "r1" {
		t.Fatalf("request=%+v", req)
	}
}

func TestSignOutUsesUserToken(t *testing.T) {
	c, seen := newProject(t, http.StatusNoContent, ``)

	if err := c.Auth().SignOut(context.Background(), "user-jwt"); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	req := (*seen)[0]
	if req.path != "/auth/v1/logout" || req.header.Get("Authorization") != "Bearer user-jwt" {
		t.Fatalf("request=%+v", req)
	}
}

func TestAuthErrorDecoded(t *testing.T) {
	c, _ := newProject(t, http.StatusBadRequest, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)

	_, err := c.Auth().SignInWithPassword(context.Background(), backend.Credentials{Email: "a", Password: "b"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "invalid_credentials" || apiErr.Message != "Invalid login credentials" {
		t.Fatalf("apiErr=%+v", apiErr)
	}
}

func TestSelectOrdersAndFiltersByOwner(t *testing.T) {
	c, seen := newProject(t, http.StatusOK, `[
		{"id":1,"title":"first","description":"a","email":"ada@example.com","created_at":"2026-01-01T09:00:00.123456+00:00"},
		{"id":2,"title":null,"description":"b","email":"ada@example.com","created_at":"2026-01-01T10:00:00+00:00"}]`)

	rows, err := c.TaskTable("Task").Select(context.Background(), userSession())
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "1" || rows[1].Title != "" {
		t.Fatalf("rows=%+v", rows)
	}

	req := (*seen)[0]
	if req.method != http.MethodGet || req.path != "/rest/v1/Task" {
		t.Fatalf("request=%s %s", req.method, req.path)
	}
	if req.query != "email=eq.ada%40example.com&order=created_at.asc&select=%2A" {
		t.Fatalf("query=%s", req.query)
	}
	if req.header.Get("Authorization") != "Bearer user-jwt" || req.header.Get("apikey") != anonKey {
		t.Fatalf("headers=%v", req.header)
	}
}

func TestInsertReturnsSingleRow(t *testing.T) {
	c, seen := newProject(t, http.StatusCreated, `{"id":7,"title":"T","description":"D","email":"ada@example.com","created_at":"2026-01-01T09:00:00Z"}`)

	row, err := c.TaskTable("Task").Insert(context.Background(), userSession(), models.Task{Title: "T", Description: "D", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if row.ID != "7" || row.Title != "T" {
		t.Fatalf("row=%+v", row)
	}

	req := (*seen)[0]
	if req.method != http.MethodPost || req.header.Get("Prefer") != "return=representation" {
		t.Fatalf("request=%+v", req)
	}
	if req.header.Get("Accept") != "application/vnd.pgrst.object+json" {
		t.Fatalf("accept=%s", req.header.Get("Accept"))
	}
	if _, ok := req.body["id"]; ok {
		t.Fatalf("insert must not send an id: %v", req.body)
	}
	if req.body["title"] != "T" || req.body["description"] != "D" || req.body["email"] != "ada@example.com" {
		t.Fatalf("body=%v", req.body)
	}
}

func TestUpdateDescriptionFiltersByID(t *testing.T) {
	c, seen := newProject(t, http.StatusNoContent, ``)

	if err := c.TaskTable("Task").UpdateDescription(context.Background(), userSession(), "7", "new"); err != nil {
		t.Fatalf("update: %v", err)
	}
	req := (*seen)[0]
	if req.method != http.MethodPatch || req.query != "id=eq.7" || req.body["description"] != "new" {
		t.Fatalf("request=%+v", req)
	}
	if len(req.body) != 1 {
		t.Fatalf("update must only touch description: %v", req.body)
	}
	if req.header.Get("Prefer") != "return=minimal" {
		t.Fatalf("prefer=%s", req.header.Get("Prefer"))
	}
}

func TestDeleteReturnsDeletedRows(t *testing.T) {
	c, seen := newProject(t, http.StatusOK, `[{"id":"7","title":"T"}]`)

	rows, err := c.TaskTable("Task").Delete(context.Background(), userSession(), "7")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "7" {
		t.Fatalf("rows=%+v", rows)
	}
	req := (*seen)[0]
	if req.method != http.MethodDelete || req.query != "id=eq.7&select=%2A" || req.header.Get("Prefer") != "return=representation" {
		t.Fatalf("request=%+v", req)
	}
}

func TestDeleteWithoutFilterRefused(t *testing.T) {
	c, seen := newProject(t, http.StatusOK, `[]`)

	err := c.From("Task").Delete().Execute(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "missing_filter" {
		t.Fatalf("err=%v", err)
	}
	if len(*seen) != 0 {
		t.Fatal("unfiltered delete reached the server")
	}
}

func TestPostgRESTErrorDecoded(t *testing.T) {
	c, _ := newProject(t, http.StatusUnauthorized, `{"code":"PGRST301","details":null,"hint":null,"message":"JWT expired"}`)

	_, err := c.TaskTable("Task").Select(context.Background(), userSession())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v", err)
	}
	if apiErr.Code != "PGRST301" || apiErr.Message != "JWT expired" {
		t.Fatalf("apiErr=%+v", apiErr)
	}
}
