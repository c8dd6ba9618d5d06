package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dohr-michael/taskdeck/internal/events"
)

// Fixed client-facing error messages.
const (
	errCreateFailed   = "Could not create task"
	errDeleteFailed   = "Could not delete task"
	errIDRequired     = "Task ID is required"
	errUpdateRequired = "Update data is required"
	errUpdateFailed   = "Backend update failed"
	errInternal       = "Internal server error"
	errInvalidJSON    = "Invalid JSON body"
)

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

var noCache = http.Header{
	"Cache-Control": {"no-cache, no-store"},
	"Pragma":        {"no-cache"},
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// handleCreate forwards the body verbatim and relays the backend's answer.
// A body that is not JSON is rejected with 400 here instead of surfacing as
// a 500, and the backend is not contacted.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errInvalidJSON})
		return
	}

	resp, err := s.upstream.Do(r.Context(), http.MethodPost, "/create_task", body, nil)
	if err != nil || !json.Valid(resp.Body) {
		slog.Error("create task: backend unreachable", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errCreateFailed})
		return
	}

	writeRaw(w, resp.Status, resp.Body)
	if resp.ok() {
		s.notifyChanged(r.Context(), "create", idOf(resp.Body))
	}
}

// handleList always answers with an array: the backend's, or an empty one
// with status 500 when the backend fails.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	resp, err := s.upstream.Do(r.Context(), http.MethodGet, "/get_task?archived=false", nil, noCache)
	if err != nil {
		slog.Error("list tasks: backend unreachable", "error", err, "backend", s.upstream.BaseURL())
		writeRaw(w, http.StatusInternalServerError, []byte("[]"))
		return
	}
	if !resp.ok() {
		slog.Error("list tasks: backend error", "status", resp.Status, "body", string(resp.Body))
		writeRaw(w, http.StatusInternalServerError, []byte("[]"))
		return
	}
	if !json.Valid(resp.Body) {
		slog.Error("list tasks: invalid backend body", "body", string(resp.Body))
		writeRaw(w, http.StatusInternalServerError, []byte("[]"))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeRaw(w, http.StatusOK, resp.Body)
}

// HandleUpdate validates and forwards a partial update for task id.
func (s *Server) HandleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errIDRequired})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errInternal, Details: err.Error()})
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errUpdateRequired})
		return
	}
	slog.Debug("update payload", "id", id, "body", string(body))

	resp, err := s.upstream.Do(r.Context(), http.MethodPut, "/task/"+url.PathEscape(id), body, nil)
	if err != nil {
		slog.Error("update task: backend unreachable", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errInternal, Details: err.Error()})
		return
	}
	if !resp.ok() {
		slog.Error("update task: backend error", "id", id, "status", resp.Status, "body", string(resp.Body))
		writeJSON(w, resp.Status, errorBody{Error: errUpdateFailed, Details: details(resp.Body)})
		return
	}
	if !json.Valid(resp.Body) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errInternal, Details: "invalid backend response"})
		return
	}

	writeRaw(w, http.StatusOK, resp.Body)
	s.notifyChanged(r.Context(), "update", id)
}

// HandleDelete forwards a delete for task id.
func (s *Server) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errIDRequired})
		return
	}

	resp, err := s.upstream.Do(r.Context(), http.MethodDelete, "/task/"+url.PathEscape(id), nil, nil)
	if err != nil {
		slog.Error("delete task: backend unreachable", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errDeleteFailed})
		return
	}
	if !resp.ok() {
		writeJSON(w, resp.Status, errorBody{Error: errDeleteFailed})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	s.notifyChanged(r.Context(), "delete", id)
}

// notifyChanged waits for room on the bus rather than dropping the change,
// until the request is done.
func (s *Server) notifyChanged(ctx context.Context, op, id string) {
	if s.bus == nil {
		return
	}
	err := s.bus.PublishAsync(ctx, events.NewEvent(events.EventTasksChanged, events.SourceGateway, map[string]any{
		"op": op,
		"id": id,
	}))
	if err != nil {
		slog.Warn("tasks.changed not published", "op", op, "id", id, "error", err)
	}
}

// details returns the backend error body as JSON when it is JSON, as text otherwise.
func details(body []byte) any {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

// idOf extracts the "id" field of a task body as text.
func idOf(body []byte) string {
	var v struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.ID, &s); err == nil {
		return s
	}
	return string(v.ID)
}
