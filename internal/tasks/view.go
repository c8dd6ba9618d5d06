package tasks

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ViewMode is the coarse visibility filter.
type ViewMode string

const (
	ViewActive    ViewMode = "active"
	ViewCompleted ViewMode = "completed"
	ViewAll       ViewMode = "all"
)

// SortField selects the primary sort key.
type SortField string

const (
	SortDueDate  SortField = "due_date"
	SortPriority SortField = "priority"
	SortCreated  SortField = "created"
	SortUpdated  SortField = "updated"
)

// ViewModes and SortFields list the accepted values in cycling order.
var (
	ViewModes  = []ViewMode{ViewActive, ViewCompleted, ViewAll}
	SortFields = []SortField{SortDueDate, SortPriority, SortCreated, SortUpdated}
)

// ParseViewMode parses a view mode name.
func ParseViewMode(s string) (ViewMode, error) {
	for _, m := range ViewModes {
		if string(m) == strings.ToLower(strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid view mode %q: must be one of active, completed, all", s)
}

// ParseSortField parses a sort field name.
func ParseSortField(s string) (SortField, error) {
	for _, f := range SortFields {
		if string(f) == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid sort field %q: must be one of due_date, priority, created, updated", s)
}

// View holds the UI filter state and derives a filtered, sorted list from it.
// The zero value is not ready to use; call NewView.
type View struct {
	Search     string
	Priorities map[Priority]bool
	SortBy     SortField
	Mode       ViewMode
}

// NewView returns a view with the default filters: no search, no priority
// selection, active tasks sorted by due date.
func NewView() *View {
	return &View{
		Priorities: make(map[Priority]bool),
		SortBy:     SortDueDate,
		Mode:       ViewActive,
	}
}

// TogglePriority adds or removes p from the selected set.
func (v *View) TogglePriority(p Priority) {
	if v.Priorities == nil {
		v.Priorities = make(map[Priority]bool)
	}
	if v.Priorities[p] {
		delete(v.Priorities, p)
		return
	}
	v.Priorities[p] = true
}

// HasActiveFilters reports whether anything differs from the default filters.
// The sort field is not a filter.
func (v *View) HasActiveFilters() bool {
	return v.Search != "" || len(v.Priorities) > 0 || v.Mode != ViewActive
}

// Reset restores search, priority selection and view mode to their defaults.
func (v *View) Reset() {
	v.Search = ""
	v.Priorities = make(map[Priority]bool)
	v.Mode = ViewActive
}

// Apply returns the filtered and sorted view of list. list is never modified.
func (v *View) Apply(list []Task) []Task {
	out := make([]Task, 0, len(list))
	for _, t := range list {
		if v.Match(t) {
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return v.less(out[i], out[j])
	})

	// Starred first, order preserved inside each group.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Starred && !out[j].Starred
	})
	return out
}

// Match reports whether t passes every filter.
func (v *View) Match(t Task) bool {
	if t.Archived {
		return false
	}
	if !matchesSearch(t, v.Search) {
		return false
	}
	if len(v.Priorities) > 0 && !v.Priorities[t.Priority] {
		return false
	}
	switch v.Mode {
	case ViewActive:
		return !t.Completed
	case ViewCompleted:
		return t.Completed
	}
	return true
}

func matchesSearch(t Task, term string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), term) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func (v *View) less(a, b Task) bool {
	switch v.SortBy {
	case SortPriority:
		return a.Priority.Rank() > b.Priority.Rank()
	case SortCreated:
		return a.CreatedAt.After(b.CreatedAt)
	case SortUpdated:
		return a.UpdatedAt.After(b.UpdatedAt)
	default:
		return dueKey(a) < dueKey(b)
	}
}

// dueKey maps a missing due date to +Inf so it sorts last.
func dueKey(t Task) float64 {
	if t.DueDate == nil {
		return math.Inf(1)
	}
	return float64(t.DueDate.UnixMilli())
}
