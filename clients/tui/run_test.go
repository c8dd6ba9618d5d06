package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	wsclient "github.com/dohr-michael/taskdeck/clients/ws"
	"github.com/dohr-michael/taskdeck/internal/backend"
	"github.com/dohr-michael/taskdeck/internal/client"
	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/gateway"
	"github.com/dohr-michael/taskdeck/internal/store"
	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// newStack starts a backend on in-memory SQLite behind a gateway and returns
// the gateway URL.
func newStack(t *testing.T) string {
	t.Helper()
	repo, err := backend.OpenSQLiteMemory()
	if err != nil {
		t.Fatalf("OpenSQLiteMemory: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	be := httptest.NewServer(backend.NewHandler(repo))
	t.Cleanup(be.Close)

	bus := events.NewBus(64)
	t.Cleanup(bus.Close)
	gw := gateway.NewServer(bus, gateway.NewUpstream(be.URL, nil), "127.0.0.1", 0)
	ts := httptest.NewServer(gw.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { gw.Shutdown(context.Background()) })
	return ts.URL
}

func wsClients(t *testing.T, gatewayURL string) int {
	t.Helper()
	resp, err := http.Get(gatewayURL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	var h struct {
		WSClients int `json:"ws_clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return h.WSClients
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchChangesRefreshesOnRemoteCreate(t *testing.T) {
	gatewayURL := newStack(t)

	s := store.New(client.New(gatewayURL))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan tea.Msg, 16)
	done := make(chan struct{})
	go func() {
		watchChanges(ctx, wsclient.URL(gatewayURL), s, func(m tea.Msg) { msgs <- m })
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case m := <-msgs:
		if _, ok := m.(ConnectedMsg); !ok {
			t.Fatalf("expected ConnectedMsg, got %T", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the change feed")
	}
	eventually(t, "ws registration", func() bool { return wsClients(t, gatewayURL) == 1 })

	other := client.New(gatewayURL)
	created, err := other.Create(ctx, tasks.NewTask{Title: "From elsewhere", Priority: tasks.PriorityHigh, Tags: []string{}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	eventually(t, "store refresh", func() bool {
		_, ok := s.Get(created.ID)
		return ok
	})
}

func TestWatchChangesReportsUnreachableGateway(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	s := store.New(client.New(url))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan tea.Msg, 16)
	done := make(chan struct{})
	go func() {
		watchChanges(ctx, wsclient.URL(url), s, func(m tea.Msg) { msgs <- m })
		close(done)
	}()

	select {
	case m := <-msgs:
		if d, ok := m.(DisconnectedMsg); !ok || d.Err == nil {
			t.Fatalf("expected DisconnectedMsg with an error, got %#v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the disconnect")
	}

	cancel()
	<-done
}
