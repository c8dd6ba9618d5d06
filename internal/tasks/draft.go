package tasks

import (
	"strconv"
	"strings"
	"time"
)

// DraftDueLayout is the text layout used when a draft is prefilled from a task.
const DraftDueLayout = "2006-01-02T15:04"

var dueLayouts = []string{
	time.RFC3339,
	DraftDueLayout,
	"2006-01-02 15:04",
	"2006-01-02",
}

// Draft is the form buffer used while composing or editing a task.
// Due date and estimated time are kept as free text until submit.
type Draft struct {
	Title         string
	Priority      Priority
	Tags          []string
	CurrentTag    string
	DueDate       string
	EstimatedTime string
}

// NewDraft returns an empty draft with the default priority.
func NewDraft() Draft {
	return Draft{Priority: PriorityMedium, Tags: []string{}}
}

// DraftFromTask prefills a draft for editing t.
func DraftFromTask(t Task) Draft {
	d := Draft{
		Title:    t.Title,
		Priority: t.Priority,
		Tags:     append([]string{}, t.Tags...),
	}
	if t.DueDate != nil {
		d.DueDate = t.DueDate.UTC().Format(DraftDueLayout)
	}
	if t.EstimatedTime != nil {
		d.EstimatedTime = strconv.Itoa(*t.EstimatedTime)
	}
	return d
}

// AddTag commits the staged CurrentTag. Blank tags are ignored.
func (d *Draft) AddTag() {
	tag := strings.TrimSpace(d.CurrentTag)
	if tag == "" {
		return
	}
	d.Tags = append(d.Tags, tag)
	d.CurrentTag = ""
}

// RemoveTag drops the tag at index i; out of range is a no-op.
func (d *Draft) RemoveTag(i int) {
	if i < 0 || i >= len(d.Tags) {
		return
	}
	d.Tags = append(d.Tags[:i:i], d.Tags[i+1:]...)
}

// Payload translates the draft into a create payload. Empty or unparsable
// due date and estimated time are left absent.
func (d Draft) Payload() NewTask {
	p := d.Priority
	if !p.Valid() {
		p = PriorityMedium
	}
	return NewTask{
		Title:         strings.TrimSpace(d.Title),
		Priority:      p,
		Tags:          append([]string{}, d.Tags...),
		DueDate:       ParseDueDate(d.DueDate),
		EstimatedTime: ParseEstimate(d.EstimatedTime),
	}
}

// Patch translates the draft into an edit patch with the same parsing rules.
func (d Draft) Patch() Patch {
	n := d.Payload()
	return Patch{
		Title:         &n.Title,
		Priority:      &n.Priority,
		Tags:          n.Tags,
		DueDate:       n.DueDate,
		EstimatedTime: n.EstimatedTime,
	}
}

// ParseDueDate parses free text into a timestamp, nil when empty or invalid.
func ParseDueDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseEstimate parses free text into minutes, nil when empty, invalid or negative.
func ParseEstimate(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
