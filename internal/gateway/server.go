// Package gateway is the same-origin HTTP surface the task clients talk to.
// It forwards task operations to the backend service and pushes change
// notifications over WebSocket.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/gateway/ws"
)

// Server is the taskdeck gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	upstream   *Upstream
	host       string
	port       int
}

// NewServer creates a new gateway server forwarding to upstream.
func NewServer(bus *events.Bus, upstream *Upstream, host string, port int) *Server {
	hub := ws.NewHub(bus)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(WithRequestID)
	r.Use(accessLog)

	s := &Server{
		hub:      hub,
		bus:      bus,
		upstream: upstream,
		host:     host,
		port:     port,
	}

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ws", hub.ServeWS)
	r.Get("/api/events", s.handleEvents)

	// API: tasks
	r.Post("/api/create_task", s.handleCreate)
	r.Get("/api/get_task", s.handleList)
	r.Put("/api/task", s.handleUpdateNoID)
	r.Put("/api/task/", s.handleUpdateNoID)
	r.Put("/api/task/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.HandleUpdate(w, r, chi.URLParam(r, "id"))
	})
	r.Delete("/api/task/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.HandleDelete(w, r, chi.URLParam(r, "id"))
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Upstream returns the backend forwarder.
func (s *Server) Upstream() *Upstream {
	return s.upstream
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("taskdeck gateway listening", "addr", ln.Addr().String(), "backend", s.upstream.BaseURL())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"backend":    s.upstream.BaseURL(),
		"ws_clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	type eventJSON struct {
		ID        string             `json:"id"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	history := s.bus.History(limit)
	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleUpdateNoID(w http.ResponseWriter, r *http.Request) {
	s.HandleUpdate(w, r, "")
}
