// Package store owns the client-side task list and mediates every mutation
// against the backend through the transport client.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// User-facing error messages kept in State.Error.
const (
	MsgLoadFailed   = "Failed to load todos"
	MsgCreateFailed = "Failed to create todo"
)

// ErrClosed is returned by operations started after Close.
var ErrClosed = errors.New("store is closed")

// API is the transport the store relies on. *client.Client implements it.
type API interface {
	FetchAll(ctx context.Context) ([]tasks.Task, error)
	Create(ctx context.Context, t tasks.NewTask) (tasks.Task, error)
	Update(ctx context.Context, id string, p tasks.Patch) (tasks.Task, error)
	Remove(ctx context.Context, id string) error
}

// State is a point-in-time copy of the store.
type State struct {
	Tasks        []tasks.Task
	IsLoading    bool
	Error        string // "" when there is no error
	RefreshToken uint64
}

// Store is a lifecycle-scoped task list: create one per UI session with New,
// call Start, and Close it when the session ends.
type Store struct {
	api      API
	bus      *events.Bus
	rollback bool

	mu           sync.Mutex
	tasks        []tasks.Task
	isLoading    bool
	err          string
	refreshToken uint64
	closed       bool
}

// Option configures a Store.
type Option func(*Store)

// WithBus publishes store events (loaded, changed, error) on bus.
func WithBus(bus *events.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// WithRollback restores a task's previous value when an optimistic update is
// rejected. Off by default: the optimistic value is kept and the error returned.
func WithRollback(enabled bool) Option {
	return func(s *Store) { s.rollback = enabled }
}

// New creates an empty store. Nothing is fetched until Start.
func New(api API, opts ...Option) *Store {
	s := &Store{api: api, tasks: []tasks.Task{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs the initial load.
func (s *Store) Start(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Close tears the store down. Results of calls still in flight are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Tasks:        append([]tasks.Task(nil), s.tasks...),
		IsLoading:    s.isLoading,
		Error:        s.err,
		RefreshToken: s.refreshToken,
	}
}

// Get returns the local copy of task id.
func (s *Store) Get(id string) (tasks.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return tasks.Task{}, false
}

// Stats computes the dashboard counters over the current list.
func (s *Store) Stats(now time.Time) tasks.Stats {
	return tasks.ComputeStats(s.Snapshot().Tasks, now)
}

// Refresh bumps the refresh token and reloads. Concurrent refreshes each
// reload; the last one to complete wins.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.refreshToken++
	token := s.refreshToken
	s.mu.Unlock()

	slog.Debug("refresh tasks", "token", token)
	return s.Load(ctx)
}

// Load replaces the list with the backend's. On failure the list is kept and
// Error is set.
func (s *Store) Load(ctx context.Context) error {
	if !s.setLoading(true) {
		return ErrClosed
	}

	list, err := s.api.FetchAll(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		s.err = MsgLoadFailed
	} else {
		s.tasks = list
		s.err = ""
	}
	s.isLoading = false
	s.mu.Unlock()

	if err != nil {
		slog.Error("error loading todos", "error", err)
		s.publish(events.EventStoreError, map[string]any{"op": "load", "error": MsgLoadFailed})
		return err
	}
	s.publish(events.EventStoreLoaded, map[string]any{"count": len(list)})
	return nil
}

// Add creates a task, then refreshes to pick up backend-assigned fields.
// On failure Error is set and the error is returned so the caller can keep
// its form open.
func (s *Store) Add(ctx context.Context, t tasks.NewTask) (tasks.Task, error) {
	if !s.setLoading(true) {
		return tasks.Task{}, ErrClosed
	}
	defer s.setLoading(false)

	created, err := s.api.Create(ctx, t)
	if err != nil {
		s.mu.Lock()
		if !s.closed {
			s.err = MsgCreateFailed
		}
		s.mu.Unlock()
		slog.Error("create todo failed", "error", err)
		s.publish(events.EventStoreError, map[string]any{"op": "create", "error": MsgCreateFailed})
		return tasks.Task{}, err
	}

	// A failed reload is reflected in State.Error; the create itself succeeded.
	_ = s.Refresh(ctx)
	return created, nil
}

// ApplyUpdate merges p into the local task before the backend call resolves,
// then sends the patch. On success the local copy is replaced by the
// backend's answer.
func (s *Store) ApplyUpdate(ctx context.Context, id string, p tasks.Patch) (tasks.Task, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return tasks.Task{}, ErrClosed
	}
	var prev *tasks.Task
	if i := s.indexOf(id); i >= 0 {
		old := s.tasks[i].Clone()
		prev = &old
		next := old.Clone()
		p.Apply(&next)
		s.replace(i, next)
	}
	s.mu.Unlock()

	s.publish(events.EventStoreChanged, map[string]any{"op": "update", "id": id, "optimistic": true})

	updated, err := s.api.Update(ctx, id, p)
	if err != nil {
		slog.Error("update failed", "id", id, "error", err)
		if s.rollback && prev != nil {
			s.mu.Lock()
			if i := s.indexOf(id); i >= 0 && !s.closed {
				s.replace(i, *prev)
			}
			s.mu.Unlock()
			s.publish(events.EventStoreChanged, map[string]any{"op": "rollback", "id": id})
		}
		return tasks.Task{}, err
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 && !s.closed {
		s.replace(i, updated)
	}
	s.mu.Unlock()
	s.publish(events.EventStoreChanged, map[string]any{"op": "update", "id": id})
	return updated, nil
}

// Remove deletes task id on the backend and, once confirmed, drops it locally.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.api.Remove(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	next := make([]tasks.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.ID != id {
			next = append(next, t)
		}
	}
	s.tasks = next
	s.mu.Unlock()

	s.publish(events.EventStoreChanged, map[string]any{"op": "delete", "id": id})
	return nil
}

// setLoading reports false when the store is closed.
func (s *Store) setLoading(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.isLoading = v
	return true
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// replace swaps in a new slice so earlier snapshots stay untouched.
// Must be called with mu held.
func (s *Store) replace(i int, t tasks.Task) {
	next := append([]tasks.Task(nil), s.tasks...)
	next[i] = t
	s.tasks = next
}

func (s *Store) publish(t events.EventType, payload map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewEvent(t, events.SourceStore, payload))
}
