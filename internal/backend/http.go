package backend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

type detailBody struct {
	Detail string `json:"detail"`
}

type deleteResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, detailBody{Detail: msg})
}

// NewHandler returns the HTTP surface of the task service.
func NewHandler(repo Repository) http.Handler {
	h := &handler{repo: repo}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", h.health)
	r.Get("/get_task", h.list)
	r.Post("/create_task", h.create)
	r.Get("/task/{id}", h.get)
	r.Put("/task/{id}", h.update)
	r.Delete("/task/{id}", h.delete)
	return r
}

type handler struct {
	repo Repository
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f Filter

	if v := q.Get("archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "archived: must be a boolean")
			return
		}
		f.Archived = b
	}
	if v := q.Get("starred"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "starred: must be a boolean")
			return
		}
		f.Starred = &b
	}
	if v := q.Get("priority"); v != "" {
		p := tasks.Priority(v)
		f.Priority = &p
	}

	list, err := h.repo.List(r.Context(), f)
	if err != nil {
		h.fail(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read body")
		return
	}
	nt, err := DecodeCreate(body)
	if err != nil {
		h.fail(w, "create task", err)
		return
	}

	t, err := h.repo.Create(r.Context(), nt)
	if err != nil {
		h.fail(w, "create task", err)
		return
	}
	slog.Info("task created", "id", t.ID, "title", t.Title)
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read body")
		return
	}
	u, err := DecodeUpdate(body)
	if err != nil {
		h.fail(w, "update task", err)
		return
	}
	slog.Debug("updating task", "id", id, "body", string(body))

	t, err := h.repo.Update(r.Context(), id, u)
	if err != nil {
		h.fail(w, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete task", err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: "Task deleted successfully",
		Data:    map[string]any{"deleted_task_id": id},
	})
}

// fail maps repository and validation errors to responses.
func (h *handler) fail(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Task not found")
	case errors.As(err, &verr):
		writeDetail(w, http.StatusUnprocessableEntity, verr.Error())
	default:
		slog.Error(op, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}
