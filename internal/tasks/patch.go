package tasks

import (
	"encoding/json"
	"time"
)

// Patch is a partial update. Nil fields are left untouched; a non-nil empty Tags
// slice clears the tags.
type Patch struct {
	Title         *string    `json:"title,omitempty"`
	Completed     *bool      `json:"completed,omitempty"`
	Starred       *bool      `json:"starred,omitempty"`
	Archived      *bool      `json:"archived,omitempty"`
	Priority      *Priority  `json:"priority,omitempty"`
	Tags          []string   `json:"tags"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	EstimatedTime *int       `json:"estimated_time,omitempty"`
}

// IsEmpty reports whether the patch sets no field at all.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil && p.Starred == nil && p.Archived == nil &&
		p.Priority == nil && p.Tags == nil && p.DueDate == nil && p.EstimatedTime == nil
}

// Apply merges the set fields of p into t.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Starred != nil {
		t.Starred = *p.Starred
	}
	if p.Archived != nil {
		t.Archived = *p.Archived
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, p.Tags...)
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.EstimatedTime != nil {
		e := *p.EstimatedTime
		t.EstimatedTime = &e
	}
}

// MarshalJSON emits only the fields that are set.
func (p Patch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Completed != nil {
		m["completed"] = *p.Completed
	}
	if p.Starred != nil {
		m["starred"] = *p.Starred
	}
	if p.Archived != nil {
		m["archived"] = *p.Archived
	}
	if p.Priority != nil {
		m["priority"] = *p.Priority
	}
	if p.Tags != nil {
		m["tags"] = p.Tags
	}
	if p.DueDate != nil {
		m["due_date"] = p.DueDate.Format(time.RFC3339)
	}
	if p.EstimatedTime != nil {
		m["estimated_time"] = *p.EstimatedTime
	}
	return json.Marshal(m)
}
