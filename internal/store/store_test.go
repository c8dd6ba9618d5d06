package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// fakeAPI is an in-memory backend with injectable failures.
type fakeAPI struct {
	mu        sync.Mutex
	tasks     []tasks.Task
	nextID    int
	fetchErr  error
	createErr error
	updateErr error
	removeErr error
	fetches   int

	// updateGate, when set, blocks Update until closed; updateCalled is
	// signalled when Update starts.
	updateGate   chan struct{}
	updateCalled chan struct{}
}

func newFakeAPI(list ...tasks.Task) *fakeAPI {
	return &fakeAPI{tasks: list, nextID: 100}
}

func (f *fakeAPI) FetchAll(_ context.Context) ([]tasks.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]tasks.Task, len(f.tasks))
	for i, t := range f.tasks {
		out[i] = t.Clone()
	}
	return out, nil
}

func (f *fakeAPI) Create(_ context.Context, nt tasks.NewTask) (tasks.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return tasks.Task{}, f.createErr
	}
	f.nextID++
	now := time.Now()
	t := tasks.Task{
		ID:        strconv.Itoa(f.nextID),
		Title:     nt.Title,
		Priority:  nt.Priority,
		Tags:      nt.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeAPI) Update(_ context.Context, id string, p tasks.Patch) (tasks.Task, error) {
	if f.updateCalled != nil {
		close(f.updateCalled)
	}
	if f.updateGate != nil {
		<-f.updateGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return tasks.Task{}, f.updateErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			p.Apply(&f.tasks[i])
			f.tasks[i].UpdatedAt = time.Now()
			return f.tasks[i].Clone(), nil
		}
	}
	return tasks.Task{}, errors.New("not found")
}

func (f *fakeAPI) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func seed() []tasks.Task {
	now := time.Now()
	return []tasks.Task{
		{ID: "1", Title: "Buy milk", Priority: tasks.PriorityLow, Tags: []string{}, CreatedAt: now, UpdatedAt: now},
		{ID: "2", Title: "Ship", Priority: tasks.PriorityUrgent, Tags: []string{"work"}, CreatedAt: now, UpdatedAt: now},
	}
}

func newStartedStore(t *testing.T, api *fakeAPI, opts ...Option) *Store {
	t.Helper()
	s := New(api, opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestStartLoadsTasks(t *testing.T) {
	s := newStartedStore(t, newFakeAPI(seed()...))

	st := s.Snapshot()
	if len(st.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(st.Tasks))
	}
	if st.IsLoading {
		t.Error("expected IsLoading to be cleared")
	}
	if st.Error != "" {
		t.Errorf("expected no error, got %q", st.Error)
	}
	if st.RefreshToken != 1 {
		t.Errorf("RefreshToken: got %d, want 1", st.RefreshToken)
	}
}

func TestLoadFailureSetsError(t *testing.T) {
	api := newFakeAPI(seed()...)
	s := newStartedStore(t, api)

	api.fetchErr = errors.New("boom")
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	st := s.Snapshot()
	if st.Error != MsgLoadFailed {
		t.Errorf("Error: got %q, want %q", st.Error, MsgLoadFailed)
	}
	if len(st.Tasks) != 2 {
		t.Errorf("previous list should be kept, got %d tasks", len(st.Tasks))
	}
	if st.IsLoading {
		t.Error("expected IsLoading to be cleared after failure")
	}

	api.fetchErr = nil
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if st := s.Snapshot(); st.Error != "" || st.RefreshToken != 3 {
		t.Errorf("after retry: error=%q token=%d", st.Error, st.RefreshToken)
	}
}

func TestAddRefreshesFromBackend(t *testing.T) {
	api := newFakeAPI(seed()...)
	s := newStartedStore(t, api)

	created, err := s.Add(context.Background(), tasks.NewTask{Title: "New", Priority: tasks.PriorityHigh})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected backend-assigned id")
	}
	if _, ok := s.Get(created.ID); !ok {
		t.Error("created task should be in the list after refresh")
	}
	if api.fetches != 2 {
		t.Errorf("expected a reload after create, got %d fetches", api.fetches)
	}
	if s.Snapshot().IsLoading {
		t.Error("expected IsLoading to be cleared")
	}
}

func TestAddFailureKeepsListAndReturnsError(t *testing.T) {
	api := newFakeAPI(seed()...)
	s := newStartedStore(t, api)

	api.createErr = errors.New("backend down")
	if _, err := s.Add(context.Background(), tasks.NewTask{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}
	st := s.Snapshot()
	if st.Error != MsgCreateFailed {
		t.Errorf("Error: got %q, want %q", st.Error, MsgCreateFailed)
	}
	if st.IsLoading {
		t.Error("expected IsLoading to be cleared")
	}
	if len(st.Tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(st.Tasks))
	}
}

func TestApplyUpdateIsOptimistic(t *testing.T) {
	api := newFakeAPI(seed()...)
	s := newStartedStore(t, api)

	api.updateGate = make(chan struct{})
	api.updateCalled = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.ApplyUpdate(context.Background(), "1", tasks.Patch{Completed: tasks.Ptr(true)})
		done <- err
	}()

	<-api.updateCalled
	got, _ := s.Get("1")
	if !got.Completed {
		t.Fatal("expected completed=true before the backend answered")
	}

	close(api.updateGate)
	if err := <-done; err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}
	got, _ = s.Get("1")
	if !got.Completed {
		t.Error("expected completed=true after the backend answered")
	}
}

func TestApplyUpdateFailureKeepsOptimisticValue(t *testing.T) {
	api := newFakeAPI(seed()...)
	s := newStartedStore(t, api)

	api.updateErr = errors.New("rejected")
	if _, err := s.ApplyUpdate(context.Background(), "1", tasks.Patch{Starred: tasks.Ptr(true)}); err == nil {
		t.Fatal("expected error")
	}
	got, _ := s.Get("1")
	if !got.Starred {
		t.Error("without rollback the optimistic value should stay")
	}
}

func TestApplyUpdateFailureRollsBack(t *testing.T) {
	api := newFakeAPI(seed()...)
	s := newStartedStore(t, api, WithRollback(true))

	api.updateErr = errors.New("rejected")
	if _, err := s.ApplyUpdate(context.Background(), "2", tasks.Patch{Title: tasks.Ptr("Renamed")}); err == nil {
		t.Fatal("expected error")
	}
	got, _ := s.Get("2")
	if got.Title != "Ship" {
		t.Errorf("Title: got %q, want %q", got.Title, "Ship")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := newStartedStore(t, newFakeAPI(seed()...))

	before := s.Snapshot()
	if _, err := s.ApplyUpdate(context.Background(), "1", tasks.Patch{Title: tasks.Ptr("changed")}); err != nil {
		t.Fatal(err)
	}
	if before.Tasks[0].Title != "Buy milk" {
		t.Errorf("earlier snapshot was mutated: %q", before.Tasks[0].Title)
	}
}

func TestRemoveOnlyAfterConfirmation(t *testing.T) {
	api := newFakeAPI(seed()...)
	s := newStartedStore(t, api)

	api.removeErr = errors.New("nope")
	if err := s.Remove(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := s.Get("1"); !ok {
		t.Fatal("task should stay when the backend refuses the delete")
	}

	api.removeErr = nil
	if err := s.Remove(context.Background(), "1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := s.Get("1"); ok {
		t.Error("task should be gone after delete")
	}
}

func TestClosedStoreDiscardsResults(t *testing.T) {
	api := newFakeAPI(seed()...)
	s := New(api)
	s.Close()

	if err := s.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if n := len(s.Snapshot().Tasks); n != 0 {
		t.Errorf("expected empty list, got %d", n)
	}
}

func TestStorePublishesEvents(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(16)
	defer unsub()

	s := newStartedStore(t, newFakeAPI(seed()...), WithBus(bus))
	if _, err := s.ApplyUpdate(context.Background(), "2", tasks.Patch{Starred: tasks.Ptr(true)}); err != nil {
		t.Fatal(err)
	}

	seen := map[events.EventType]bool{}
	timeout := time.After(time.Second)
	for !(seen[events.EventStoreLoaded] && seen[events.EventStoreChanged]) {
		select {
		case e := <-ch:
			seen[e.Type] = true
		case <-timeout:
			t.Fatalf("timeout, saw %v", seen)
		}
	}
}

func TestStats(t *testing.T) {
	list := seed()
	list[0].Completed = true
	s := newStartedStore(t, newFakeAPI(list...))

	st := s.Stats(time.Now())
	if st.Active != 1 || st.Completed != 1 {
		t.Errorf("got %+v", st)
	}
}
