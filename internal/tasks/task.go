// Package tasks defines the todo domain: tasks, drafts, partial patches and the
// derived filter/sort view used by every client.
package tasks

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists every priority, most urgent first.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// Rank orders priorities: urgent=4, high=3, medium=2, low=1. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Valid reports whether p is one of the four known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ParsePriority parses a priority name, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q: must be one of urgent, high, medium, low", s)
	}
	return p, nil
}

// Task is a persisted todo item. ID and timestamps are assigned by the backend.
type Task struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	Completed     bool       `json:"completed" yaml:"completed"`
	Starred       bool       `json:"starred" yaml:"starred"`
	Archived      bool       `json:"archived" yaml:"archived"`
	Priority      Priority   `json:"priority" yaml:"priority"`
	Tags          []string   `json:"tags" yaml:"tags"`
	DueDate       *time.Time `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	EstimatedTime *int       `json:"estimated_time,omitempty" yaml:"estimated_time,omitempty"` // minutes
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.EstimatedTime != nil {
		e := *t.EstimatedTime
		c.EstimatedTime = &e
	}
	return c
}

// NewTask is the create payload: a Task without id and timestamps.
type NewTask struct {
	Title         string     `json:"title"`
	Completed     bool       `json:"completed"`
	Starred       bool       `json:"starred"`
	Archived      bool       `json:"archived"`
	Priority      Priority   `json:"priority"`
	Tags          []string   `json:"tags"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	EstimatedTime *int       `json:"estimated_time,omitempty"`
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
