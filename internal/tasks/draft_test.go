package tasks

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDraftPayloadOmitsEmptyFields(t *testing.T) {
	d := Draft{Title: "Buy milk", Priority: PriorityLow, Tags: []string{}}

	payload := d.Payload()
	if payload.DueDate != nil {
		t.Errorf("expected nil due date, got %v", payload.DueDate)
	}
	if payload.EstimatedTime != nil {
		t.Errorf("expected nil estimated time, got %v", *payload.EstimatedTime)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := body["due_date"]; ok {
		t.Errorf("due_date should be absent, body = %s", data)
	}
	if _, ok := body["estimated_time"]; ok {
		t.Errorf("estimated_time should be absent, body = %s", data)
	}
	if body["title"] != "Buy milk" || body["priority"] != "low" {
		t.Errorf("unexpected body %s", data)
	}
}

func TestDraftPayloadParsesFields(t *testing.T) {
	d := Draft{Title: "  Report  ", Priority: PriorityHigh, DueDate: "2025-04-01T09:30", EstimatedTime: "45"}

	payload := d.Payload()
	if payload.Title != "Report" {
		t.Errorf("Title: got %q, want %q", payload.Title, "Report")
	}
	want := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	if payload.DueDate == nil || !payload.DueDate.Equal(want) {
		t.Errorf("DueDate: got %v, want %v", payload.DueDate, want)
	}
	if payload.EstimatedTime == nil || *payload.EstimatedTime != 45 {
		t.Errorf("EstimatedTime: got %v, want 45", payload.EstimatedTime)
	}
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"not a date", false},
		{"2025-04-01", true},
		{"2025-04-01 10:00", true},
		{"2025-04-01T10:00", true},
		{"2025-04-01T10:00:00Z", true},
	}
	for _, tt := range tests {
		got := ParseDueDate(tt.in)
		if (got != nil) != tt.want {
			t.Errorf("ParseDueDate(%q): got %v, want parsed=%v", tt.in, got, tt.want)
		}
	}
}

func TestParseEstimate(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"", nil},
		{"abc", nil},
		{"-5", nil},
		{"0", Ptr(0)},
		{" 90 ", Ptr(90)},
	}
	for _, tt := range tests {
		got := ParseEstimate(tt.in)
		switch {
		case got == nil && tt.want == nil:
		case got == nil || tt.want == nil || *got != *tt.want:
			t.Errorf("ParseEstimate(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDraftTags(t *testing.T) {
	d := NewDraft()
	d.CurrentTag = "  ui  "
	d.AddTag()
	d.CurrentTag = "   "
	d.AddTag()
	d.CurrentTag = "mobile"
	d.AddTag()

	if len(d.Tags) != 2 || d.Tags[0] != "ui" || d.Tags[1] != "mobile" {
		t.Fatalf("Tags: got %v, want [ui mobile]", d.Tags)
	}
	if d.CurrentTag != "   " {
		t.Errorf("blank staged tag should be left untouched, got %q", d.CurrentTag)
	}

	d.RemoveTag(0)
	d.RemoveTag(5)
	if len(d.Tags) != 1 || d.Tags[0] != "mobile" {
		t.Errorf("Tags after remove: got %v, want [mobile]", d.Tags)
	}
}

func TestDraftFromTaskRoundTrip(t *testing.T) {
	due := time.Date(2025, 5, 2, 8, 15, 0, 0, time.UTC)
	task := Task{ID: "9", Title: "Edit me", Priority: PriorityUrgent, Tags: []string{"a"}, DueDate: &due, EstimatedTime: Ptr(30)}

	d := DraftFromTask(task)
	if d.DueDate != "2025-05-02T08:15" {
		t.Errorf("DueDate: got %q", d.DueDate)
	}
	if d.EstimatedTime != "30" {
		t.Errorf("EstimatedTime: got %q", d.EstimatedTime)
	}

	p := d.Patch()
	if p.DueDate == nil || !p.DueDate.Equal(due) {
		t.Errorf("patch DueDate: got %v, want %v", p.DueDate, due)
	}
	if *p.Priority != PriorityUrgent || *p.Title != "Edit me" {
		t.Errorf("patch fields: got %q / %q", *p.Title, *p.Priority)
	}
}

func TestPatchMarshalOnlySetFields(t *testing.T) {
	data, err := json.Marshal(Patch{Completed: Ptr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"completed":true}` {
		t.Errorf("got %s, want {\"completed\":true}", data)
	}

	data, err = json.Marshal(Patch{Tags: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"tags":[]}` {
		t.Errorf("got %s, want {\"tags\":[]}", data)
	}

	if !(Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}

func TestPatchApply(t *testing.T) {
	task := Task{ID: "1", Title: "x", Priority: PriorityLow, Tags: []string{"a"}}
	Patch{Completed: Ptr(true), Priority: Ptr(PriorityHigh)}.Apply(&task)

	if !task.Completed || task.Priority != PriorityHigh {
		t.Errorf("got %+v", task)
	}
	if task.Title != "x" || len(task.Tags) != 1 {
		t.Errorf("untouched fields changed: %+v", task)
	}
}

func TestParsePriority(t *testing.T) {
	if p, err := ParsePriority(" URGENT "); err != nil || p != PriorityUrgent {
		t.Errorf("got %q, %v", p, err)
	}
	if _, err := ParsePriority("normal"); err == nil {
		t.Error("expected error for normal")
	}
}
