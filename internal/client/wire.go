package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// Layouts accepted for date fields. The backend may send naive timestamps
// (no offset); those are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// wireTask is the task shape on the wire: ids may be numbers or strings and
// dates are text.
type wireTask struct {
	ID            json.RawMessage `json:"id"`
	Title         string          `json:"title"`
	Completed     bool            `json:"completed"`
	Starred       bool            `json:"starred"`
	Archived      bool            `json:"archived"`
	Priority      string          `json:"priority"`
	Tags          []string        `json:"tags"`
	DueDate       *string         `json:"due_date"`
	EstimatedTime *int            `json:"estimated_time"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

func (w wireTask) toTask() (tasks.Task, error) {
	id, err := decodeID(w.ID)
	if err != nil {
		return tasks.Task{}, err
	}
	if w.Title == "" {
		return tasks.Task{}, fmt.Errorf("task %s: missing title", id)
	}
	p := tasks.Priority(w.Priority)
	if !p.Valid() {
		return tasks.Task{}, fmt.Errorf("task %s: unknown priority %q", id, w.Priority)
	}

	t := tasks.Task{
		ID:            id,
		Title:         w.Title,
		Completed:     w.Completed,
		Starred:       w.Starred,
		Archived:      w.Archived,
		Priority:      p,
		Tags:          w.Tags,
		EstimatedTime: w.EstimatedTime,
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if w.DueDate != nil && *w.DueDate != "" {
		due, err := parseTime(*w.DueDate)
		if err != nil {
			return tasks.Task{}, fmt.Errorf("task %s: due_date: %w", id, err)
		}
		t.DueDate = &due
	}
	if t.CreatedAt, err = parseTime(w.CreatedAt); err != nil {
		return tasks.Task{}, fmt.Errorf("task %s: created_at: %w", id, err)
	}
	if t.UpdatedAt, err = parseTime(w.UpdatedAt); err != nil {
		return tasks.Task{}, fmt.Errorf("task %s: updated_at: %w", id, err)
	}
	return t, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("missing id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode id: %w", err)
		}
		if s == "" {
			return "", fmt.Errorf("missing id")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	return n.String(), nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func decodeTask(data []byte) (tasks.Task, error) {
	var w wireTask
	if err := json.Unmarshal(data, &w); err != nil {
		return tasks.Task{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	t, err := w.toTask()
	if err != nil {
		return tasks.Task{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return t, nil
}

func decodeTasks(data []byte) ([]tasks.Task, error) {
	var ws []wireTask
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	out := make([]tasks.Task, 0, len(ws))
	for _, w := range ws {
		t, err := w.toTask()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		out = append(out, t)
	}
	return out, nil
}
