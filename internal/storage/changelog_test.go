package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dohr-michael/taskdeck/internal/events"
)

func waitForChanges(t *testing.T, dir string, n int) []events.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := ReadChanges(dir, 0)
		if err != nil {
			t.Fatalf("ReadChanges: %v", err)
		}
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout: got %d events, want %d", len(got), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChangeLogWritesTaskChanges(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus(64)
	defer bus.Close()

	cl := NewChangeLog(dir, bus)
	defer cl.Close()

	bus.Publish(events.NewEvent(events.EventStoreChanged, events.SourceStore, map[string]any{"id": "ignored"}))
	bus.Publish(events.NewEvent(events.EventTasksChanged, events.SourceGateway, map[string]any{"op": "create", "id": "1"}))
	bus.Publish(events.NewEvent(events.EventTasksChanged, events.SourceGateway, map[string]any{"op": "delete", "id": "1"}))

	got := waitForChanges(t, dir, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Payload["op"] != "create" || got[1].Payload["op"] != "delete" {
		t.Errorf("unexpected order: %v, %v", got[0].Payload, got[1].Payload)
	}
	for _, e := range got {
		if e.Type != events.EventTasksChanged {
			t.Errorf("unexpected type %s", e.Type)
		}
	}

	day := time.Now().UTC().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(dir, "changes-"+day+".jsonl")); err != nil {
		t.Errorf("expected a file for today: %v", err)
	}
}

func TestReadChangesAcrossDaysWithLimit(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, lines ...string) {
		t.Helper()
		body := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("changes-2026-03-10.jsonl",
		`{"id":"b","type":"tasks.changed","payload":{"op":"update"}}`,
		`{"id":"c","type":"tasks.changed","payload":{"op":"delete"}}`)
	write("changes-2026-03-09.jsonl",
		`{"id":"a","type":"tasks.changed","payload":{"op":"create"}}`,
		`not json`)
	write("other.jsonl", `{"id":"x"}`)

	all, err := ReadChanges(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Errorf("all: %+v", all)
	}

	last, err := ReadChanges(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 || last[0].ID != "b" {
		t.Errorf("last 2: %+v", last)
	}
}

func TestReadChangesMissingDir(t *testing.T) {
	got, err := ReadChanges(filepath.Join(t.TempDir(), "nope"), 10)
	if err != nil || got != nil {
		t.Errorf("got %v, %v", got, err)
	}
}
