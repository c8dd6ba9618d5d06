package tasks

import "time"

// Stats summarizes a task list for the dashboard counters.
type Stats struct {
	Active    int `json:"active" yaml:"active"`
	Completed int `json:"completed" yaml:"completed"`
	Overdue   int `json:"overdue" yaml:"overdue"`
	DueToday  int `json:"due_today" yaml:"due_today"`
}

// ComputeStats counts non-archived tasks. Overdue and DueToday only consider
// active tasks; "today" is the calendar day of now in now's location.
func ComputeStats(list []Task, now time.Time) Stats {
	var s Stats
	y, m, d := now.Date()
	for _, t := range list {
		if t.Archived {
			continue
		}
		if t.Completed {
			s.Completed++
			continue
		}
		s.Active++
		if t.DueDate == nil {
			continue
		}
		if now.After(*t.DueDate) {
			s.Overdue++
		}
		dy, dm, dd := t.DueDate.In(now.Location()).Date()
		if dy == y && dm == m && dd == d {
			s.DueToday++
		}
	}
	return s
}
