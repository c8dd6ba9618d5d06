// Package storage persists gateway activity on local disk.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dohr-michael/taskdeck/internal/events"
)

const changeLogPrefix = "changes-"

// ChangeLog appends every tasks.changed event to a JSONL file per day.
type ChangeLog struct {
	dir         string
	mu          sync.Mutex
	unsubscribe func()
}

// NewChangeLog subscribes to tasks.changed events on bus and writes them
// under dir.
func NewChangeLog(dir string, bus *events.Bus) *ChangeLog {
	cl := &ChangeLog{dir: dir}
	cl.unsubscribe = bus.Subscribe(cl.handleEvent, events.EventTasksChanged)
	return cl
}

// Close unsubscribes the log from the event bus.
func (cl *ChangeLog) Close() {
	if cl.unsubscribe != nil {
		cl.unsubscribe()
	}
}

func (cl *ChangeLog) handleEvent(e events.Event) {
	if err := cl.write(e); err != nil {
		slog.Warn("change log write failed", "event", e.ID, "error", err)
	}
}

func (cl *ChangeLog) write(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if err := os.MkdirAll(cl.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(cl.path(e), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func (cl *ChangeLog) path(e events.Event) string {
	return filepath.Join(cl.dir, changeLogPrefix+e.Timestamp.UTC().Format("2006-01-02")+".jsonl")
}

// ReadChanges returns the last limit events logged under dir, oldest first.
// limit <= 0 returns everything. Unparsable lines are skipped.
func ReadChanges(dir string, limit int) ([]events.Event, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read change log dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, changeLogPrefix) && strings.HasSuffix(name, ".jsonl") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	// Day-stamped names sort chronologically.
	sort.Strings(files)

	var out []events.Event
	for _, path := range files {
		evs, err := readJSONL(path)
		if err != nil {
			return nil, err
		}
		out = append(out, evs...)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func readJSONL(path string) ([]events.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open change log: %w", err)
	}
	defer f.Close()

	var out []events.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e events.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			slog.Debug("skip corrupt change log line", "path", path, "error", err)
			continue
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan change log: %w", err)
	}
	return out, nil
}
