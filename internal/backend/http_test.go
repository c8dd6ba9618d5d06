package backend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	repo, err := OpenSQLiteMemory()
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewHandler(repo)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeTask(t *testing.T, rr *httptest.ResponseRecorder) tasks.Task {
	t.Helper()
	var task tasks.Task
	if err := json.Unmarshal(rr.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v (%s)", err, rr.Body.String())
	}
	return task
}

func TestHTTPHealth(t *testing.T) {
	rr := do(t, newTestHandler(t), http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
}

func TestHTTPTaskLifecycle(t *testing.T) {
	h := newTestHandler(t)

	rr := do(t, h, http.MethodPost, "/create_task", map[string]any{"title": "Buy milk", "tags": []string{"Home"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeTask(t, rr)
	if created.Priority != tasks.PriorityMedium || created.Tags[0] != "home" {
		t.Errorf("unexpected created task %+v", created)
	}

	rr = do(t, h, http.MethodPut, "/task/"+created.ID, `{"completed":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if updated := decodeTask(t, rr); !updated.Completed || updated.Title != "Buy milk" {
		t.Errorf("unexpected updated task %+v", updated)
	}

	rr = do(t, h, http.MethodGet, "/get_task?archived=false", nil)
	var list []tasks.Task
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	rr = do(t, h, http.MethodDelete, "/task/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	var del deleteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &del); err != nil {
		t.Fatalf("decode delete: %v", err)
	}
	if !del.Success || del.Message != "Task deleted successfully" || del.Data["deleted_task_id"] != created.ID {
		t.Errorf("unexpected delete response %+v", del)
	}
}

func TestHTTPNotFound(t *testing.T) {
	h := newTestHandler(t)
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPut, "/task/42", `{"completed":true}`},
		{http.MethodDelete, "/task/42", ""},
		{http.MethodGet, "/task/42", ""},
	} {
		rr := do(t, h, tc.method, tc.path, tc.body)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rr.Code)
			continue
		}
		var body detailBody
		json.Unmarshal(rr.Body.Bytes(), &body)
		if body.Detail != "Task not found" {
			t.Errorf("%s %s: unexpected detail %q", tc.method, tc.path, body.Detail)
		}
	}
}

func TestHTTPValidation(t *testing.T) {
	h := newTestHandler(t)

	if rr := do(t, h, http.MethodPost, "/create_task", `{"title":""}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty title: expected 422, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/get_task?archived=maybe", nil); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad archived flag: expected 422, got %d", rr.Code)
	}

	rr := do(t, h, http.MethodPost, "/create_task", `{"title":"x"}`)
	created := decodeTask(t, rr)
	if rr := do(t, h, http.MethodPut, "/task/"+created.ID, `{"priority":"normal"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad priority: expected 422, got %d", rr.Code)
	}
}

func TestHTTPListFilters(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, http.MethodPost, "/create_task", `{"title":"a","starred":true,"priority":"high"}`)
	do(t, h, http.MethodPost, "/create_task", `{"title":"b"}`)
	do(t, h, http.MethodPost, "/create_task", `{"title":"c","archived":true}`)

	count := func(path string) int {
		var list []tasks.Task
		rr := do(t, h, http.MethodGet, path, nil)
		if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		return len(list)
	}

	if n := count("/get_task"); n != 2 {
		t.Errorf("default: expected 2, got %d", n)
	}
	if n := count("/get_task?archived=true"); n != 1 {
		t.Errorf("archived: expected 1, got %d", n)
	}
	if n := count("/get_task?starred=true"); n != 1 {
		t.Errorf("starred: expected 1, got %d", n)
	}
	if n := count("/get_task?priority=medium"); n != 1 {
		t.Errorf("priority: expected 1, got %d", n)
	}
}
