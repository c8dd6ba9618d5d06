// Package backend is a reference implementation of the task service the
// gateway forwards to. It persists tasks in SQLite or in a directory tree.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// ErrNotFound is returned for unknown task ids.
var ErrNotFound = errors.New("task not found")

// Filter selects tasks for List. Archived always applies; Starred and
// Priority only when set.
type Filter struct {
	Archived bool
	Starred  *bool
	Priority *tasks.Priority
}

// Match reports whether t passes the filter.
func (f Filter) Match(t tasks.Task) bool {
	if t.Archived != f.Archived {
		return false
	}
	if f.Starred != nil && t.Starred != *f.Starred {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	return true
}

// Update is a validated partial update. ClearDueDate and ClearEstimate
// record an explicit null for the matching field.
type Update struct {
	tasks.Patch
	ClearDueDate  bool
	ClearEstimate bool
}

// Apply merges u into t.
func (u Update) Apply(t *tasks.Task) {
	u.Patch.Apply(t)
	if u.ClearDueDate {
		t.DueDate = nil
	}
	if u.ClearEstimate {
		t.EstimatedTime = nil
	}
}

// Repository stores tasks.
type Repository interface {
	List(ctx context.Context, f Filter) ([]tasks.Task, error)
	Get(ctx context.Context, id string) (tasks.Task, error)
	Create(ctx context.Context, t tasks.NewTask) (tasks.Task, error)
	Update(ctx context.Context, id string, u Update) (tasks.Task, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// sortByDue orders tasks by due date ascending, undated last, then by tie.
func sortByDue(list []tasks.Task, tie func(a, b tasks.Task) bool) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return tie(a, b)
	})
}

// clock hands out strictly increasing UTC timestamps so that updated_at
// changes on every accepted mutation.
type clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newClock() *clock {
	return &clock{now: time.Now}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Open creates the repository for driver. dsn is the SQLite path, dir the
// root of the file repository.
func Open(driver, dsn, dir string) (Repository, error) {
	switch driver {
	case "", DriverSQLite:
		return OpenSQLite(dsn)
	case DriverFile:
		return OpenFileRepo(dir), nil
	default:
		return nil, fmt.Errorf("unknown backend driver %q (want %s or %s)", driver, DriverSQLite, DriverFile)
	}
}
