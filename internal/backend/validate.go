package backend

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// Validation limits.
const (
	MaxTitleLen    = 100
	MaxTags        = 5
	MaxEstimateMin = 1440
)

// ValidationError is reported to callers as 422.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// createRequest is the wire form of a create body. Dates are text so that
// naive timestamps can be accepted.
type createRequest struct {
	Title         string   `json:"title"`
	Completed     bool     `json:"completed"`
	Starred       bool     `json:"starred"`
	Archived      bool     `json:"archived"`
	Priority      string   `json:"priority"`
	Tags          []string `json:"tags"`
	DueDate       *string  `json:"due_date"`
	EstimatedTime *int     `json:"estimated_time"`
}

// DecodeCreate parses and validates a create body.
func DecodeCreate(data []byte) (tasks.NewTask, error) {
	var req createRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return tasks.NewTask{}, invalid("body", "invalid JSON: %v", err)
	}

	nt := tasks.NewTask{
		Title:         req.Title,
		Completed:     req.Completed,
		Starred:       req.Starred,
		Archived:      req.Archived,
		Priority:      tasks.PriorityMedium,
		EstimatedTime: req.EstimatedTime,
	}
	if err := checkTitle(nt.Title); err != nil {
		return tasks.NewTask{}, err
	}
	if req.Priority != "" {
		p, err := checkPriority(req.Priority)
		if err != nil {
			return tasks.NewTask{}, err
		}
		nt.Priority = p
	}
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return tasks.NewTask{}, err
	}
	nt.Tags = tags
	if req.DueDate != nil {
		due, err := parseDue(*req.DueDate)
		if err != nil {
			return tasks.NewTask{}, err
		}
		nt.DueDate = due
	}
	if err := checkEstimate(nt.EstimatedTime); err != nil {
		return tasks.NewTask{}, err
	}
	return nt, nil
}

// DecodeUpdate parses and validates a partial update body. Only the fields
// present in the body are set.
func DecodeUpdate(data []byte) (Update, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Update{}, invalid("body", "invalid JSON: %v", err)
	}

	var u Update
	for name, raw := range fields {
		isNull := string(raw) == "null"
		var err error
		switch name {
		case "title":
			var s string
			if err = decodeField(name, raw, &s); err == nil {
				err = checkTitle(s)
				u.Title = &s
			}
		case "completed":
			u.Completed, err = decodeBool(name, raw)
		case "starred":
			u.Starred, err = decodeBool(name, raw)
		case "archived":
			u.Archived, err = decodeBool(name, raw)
		case "priority":
			var s string
			if err = decodeField(name, raw, &s); err == nil {
				var p tasks.Priority
				p, err = checkPriority(s)
				u.Priority = &p
			}
		case "tags":
			var tags []string
			if isNull {
				tags = []string{}
			} else if err = decodeField(name, raw, &tags); err == nil {
				tags, err = normalizeTags(tags)
			}
			u.Tags = tags
		case "due_date":
			if isNull {
				u.ClearDueDate = true
				continue
			}
			var s string
			if err = decodeField(name, raw, &s); err == nil {
				u.DueDate, err = parseDue(s)
			}
		case "estimated_time":
			if isNull {
				u.ClearEstimate = true
				continue
			}
			var n int
			if err = decodeField(name, raw, &n); err == nil {
				u.EstimatedTime = &n
				err = checkEstimate(&n)
			}
		}
		if err != nil {
			return Update{}, err
		}
	}
	return u, nil
}

func decodeField(name string, raw json.RawMessage, out any) error {
	if string(raw) == "null" {
		return invalid(name, "must not be null")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalid(name, "wrong type")
	}
	return nil
}

func decodeBool(name string, raw json.RawMessage) (*bool, error) {
	var b bool
	if err := decodeField(name, raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func checkTitle(s string) error {
	n := utf8.RuneCountInString(s)
	if n < 1 || n > MaxTitleLen {
		return invalid("title", "must be between 1 and %d characters", MaxTitleLen)
	}
	return nil
}

func checkPriority(s string) (tasks.Priority, error) {
	p := tasks.Priority(s)
	if !p.Valid() {
		return "", invalid("priority", "must be one of urgent, high, medium, low")
	}
	return p, nil
}

// normalizeTags lowercases tags and enforces the tag limit.
func normalizeTags(in []string) ([]string, error) {
	if len(in) > MaxTags {
		return nil, invalid("tags", "at most %d tags allowed", MaxTags)
	}
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = strings.ToLower(t)
	}
	return out, nil
}

func checkEstimate(n *int) error {
	if n != nil && (*n < 0 || *n > MaxEstimateMin) {
		return invalid("estimated_time", "must be between 0 and %d minutes", MaxEstimateMin)
	}
	return nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDue accepts RFC3339 and naive timestamps (read as UTC).
func parseDue(s string) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, invalid("due_date", "invalid datetime %q", s)
}
