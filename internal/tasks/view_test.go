package tasks

import (
	"strings"
	"testing"
	"time"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func at(hours int) *time.Time {
	t := base.Add(time.Duration(hours) * time.Hour)
	return &t
}

func sample() []Task {
	return []Task{
		{ID: "1", Title: "Buy milk", Priority: PriorityLow, Tags: []string{"home"}, CreatedAt: base, UpdatedAt: base},
		{ID: "2", Title: "Ship release", Priority: PriorityUrgent, Tags: []string{"Work"}, DueDate: at(48), CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(5 * time.Hour)},
		{ID: "3", Title: "Write report", Priority: PriorityHigh, DueDate: at(24), Completed: true, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "4", Title: "Old idea", Priority: PriorityMedium, Archived: true, CreatedAt: base.Add(3 * time.Hour), UpdatedAt: base.Add(3 * time.Hour)},
		{ID: "5", Title: "Call plumber", Priority: PriorityMedium, Tags: []string{"home"}, DueDate: at(2), Starred: true, CreatedAt: base.Add(4 * time.Hour), UpdatedAt: base.Add(4 * time.Hour)},
		{ID: "6", Title: "Archived done", Priority: PriorityHigh, Archived: true, Completed: true, CreatedAt: base, UpdatedAt: base},
	}
}

func ids(list []Task) string {
	parts := make([]string, len(list))
	for i, t := range list {
		parts[i] = t.ID
	}
	return strings.Join(parts, ",")
}

func TestViewNeverShowsArchived(t *testing.T) {
	for _, mode := range ViewModes {
		for _, sortBy := range SortFields {
			v := NewView()
			v.Mode = mode
			v.SortBy = sortBy
			for _, got := range v.Apply(sample()) {
				if got.Archived {
					t.Errorf("mode=%s sort=%s: archived task %s in output", mode, sortBy, got.ID)
				}
			}
		}
	}
}

func TestViewModes(t *testing.T) {
	tests := []struct {
		mode ViewMode
		want string
	}{
		{ViewActive, "5,2,1"},
		{ViewCompleted, "3"},
		{ViewAll, "5,3,2,1"},
	}
	for _, tt := range tests {
		v := NewView()
		v.Mode = tt.mode
		if got := ids(v.Apply(sample())); got != tt.want {
			t.Errorf("mode %s: got %s, want %s", tt.mode, got, tt.want)
		}
	}
}

func TestViewActiveOnlyIncomplete(t *testing.T) {
	v := NewView()
	for _, got := range v.Apply(sample()) {
		if got.Completed || got.Archived {
			t.Errorf("active view contains task %s (completed=%v archived=%v)", got.ID, got.Completed, got.Archived)
		}
	}
}

func TestViewSearch(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"", "5,2,1"},
		{"MILK", "1"},
		{"home", "5,1"},
		{"work", "2"},
		{"nothing", ""},
	}
	for _, tt := range tests {
		v := NewView()
		v.Search = tt.term
		got := v.Apply(sample())
		if ids(got) != tt.want {
			t.Errorf("search %q: got %s, want %s", tt.term, ids(got), tt.want)
		}
		for _, task := range got {
			if !matchesSearch(task, tt.term) {
				t.Errorf("search %q: task %s does not match title or tags", tt.term, task.ID)
			}
		}
	}
}

func TestViewPriorityFilter(t *testing.T) {
	v := NewView()
	v.Mode = ViewAll
	v.TogglePriority(PriorityHigh)
	v.TogglePriority(PriorityLow)
	if got := ids(v.Apply(sample())); got != "3,1" {
		t.Errorf("got %s, want 3,1", got)
	}

	v.TogglePriority(PriorityHigh)
	if got := ids(v.Apply(sample())); got != "1" {
		t.Errorf("after untoggle: got %s, want 1", got)
	}
}

func TestViewSortByDueDateMissingLast(t *testing.T) {
	v := NewView()
	v.Mode = ViewAll
	list := sample()
	for i := range list {
		list[i].Starred = false
	}
	got := v.Apply(list)
	if ids(got) != "5,3,2,1" {
		t.Fatalf("got %s, want 5,3,2,1", ids(got))
	}
	seenMissing := false
	for _, task := range got {
		if task.DueDate == nil {
			seenMissing = true
		} else if seenMissing {
			t.Fatalf("task %s with due date after a task without one", task.ID)
		}
	}
}

func TestViewSortByPriority(t *testing.T) {
	list := []Task{
		{ID: "a", Priority: PriorityLow},
		{ID: "b", Priority: PriorityUrgent},
		{ID: "c", Priority: PriorityMedium},
		{ID: "d", Priority: PriorityHigh},
		{ID: "e", Priority: PriorityUrgent},
		{ID: "f", Priority: PriorityMedium},
	}
	v := NewView()
	v.SortBy = SortPriority
	if got := ids(v.Apply(list)); got != "b,e,d,c,f,a" {
		t.Errorf("got %s, want b,e,d,c,f,a", got)
	}
}

func TestViewSortByTimestamps(t *testing.T) {
	list := sample()
	for i := range list {
		list[i].Starred = false
	}
	v := NewView()
	v.Mode = ViewAll

	v.SortBy = SortCreated
	if got := ids(v.Apply(list)); got != "5,3,2,1" {
		t.Errorf("created: got %s, want 5,3,2,1", got)
	}
	v.SortBy = SortUpdated
	if got := ids(v.Apply(list)); got != "2,5,3,1" {
		t.Errorf("updated: got %s, want 2,5,3,1", got)
	}
}

func TestViewStarredFirst(t *testing.T) {
	list := sample()
	list[0].Starred = true
	for _, sortBy := range SortFields {
		v := NewView()
		v.Mode = ViewAll
		v.SortBy = sortBy
		got := v.Apply(list)
		for i := 1; i < len(got); i++ {
			if got[i].Starred && !got[i-1].Starred {
				t.Errorf("sort %s: starred %s after non-starred %s", sortBy, got[i].ID, got[i-1].ID)
			}
		}
	}
}

func TestViewDoesNotMutateInput(t *testing.T) {
	list := sample()
	before := ids(list)
	v := NewView()
	v.SortBy = SortPriority
	v.Apply(list)
	if after := ids(list); after != before {
		t.Errorf("input reordered: got %s, want %s", after, before)
	}
}

func TestHasActiveFiltersAndReset(t *testing.T) {
	v := NewView()
	if v.HasActiveFilters() {
		t.Fatal("expected no active filters by default")
	}

	v.SortBy = SortCreated
	if v.HasActiveFilters() {
		t.Error("sort field should not count as a filter")
	}

	v.Search = "x"
	if !v.HasActiveFilters() {
		t.Error("search should count as a filter")
	}
	v.Reset()

	v.TogglePriority(PriorityLow)
	if !v.HasActiveFilters() {
		t.Error("priority selection should count as a filter")
	}
	v.Reset()

	v.Mode = ViewAll
	if !v.HasActiveFilters() {
		t.Error("non-active view mode should count as a filter")
	}

	v.Search = "y"
	v.TogglePriority(PriorityHigh)
	v.Reset()
	if v.HasActiveFilters() {
		t.Error("expected no active filters after reset")
	}
	if v.SortBy != SortCreated {
		t.Errorf("reset changed sort field to %s", v.SortBy)
	}
}

func TestParseViewModeAndSortField(t *testing.T) {
	if m, err := ParseViewMode("Completed"); err != nil || m != ViewCompleted {
		t.Errorf("ParseViewMode: got %q, %v", m, err)
	}
	if _, err := ParseViewMode("archived"); err == nil {
		t.Error("expected error for unknown view mode")
	}
	if f, err := ParseSortField("priority"); err != nil || f != SortPriority {
		t.Errorf("ParseSortField: got %q, %v", f, err)
	}
	if _, err := ParseSortField("title"); err == nil {
		t.Error("expected error for unknown sort field")
	}
}

func TestComputeStats(t *testing.T) {
	now := base
	list := sample()
	list = append(list,
		Task{ID: "7", Title: "Overdue", Priority: PriorityLow, DueDate: at(-3)},
		Task{ID: "8", Title: "Overdue done", Priority: PriorityLow, DueDate: at(-3), Completed: true},
	)
	got := ComputeStats(list, now)
	want := Stats{Active: 4, Completed: 2, Overdue: 1, DueToday: 2}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
