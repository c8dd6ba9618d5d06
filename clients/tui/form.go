package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// draftForm edits a tasks.Draft. The huh fields point into heap-allocated
// values so the form keeps working when the model is copied.
type draftForm struct {
	editID string
	draft  *tasks.Draft
	tags   *string
	form   *huh.Form
}

func newDraftForm(d tasks.Draft, editID string) *draftForm {
	f := &draftForm{
		editID: editID,
		draft:  &d,
		tags:   new(string),
	}
	*f.tags = strings.Join(d.Tags, ", ")

	priorities := make([]huh.Option[tasks.Priority], len(tasks.Priorities))
	for i, p := range tasks.Priorities {
		priorities[i] = huh.NewOption(string(p), p)
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&f.draft.Title).Validate(validateTitle),
			huh.NewSelect[tasks.Priority]().Title("Priority").Options(priorities...).Value(&f.draft.Priority),
			huh.NewInput().Title("Tags (comma-separated)").Value(f.tags),
			huh.NewInput().Title("Due date").Placeholder("YYYY-MM-DDTHH:MM").Value(&f.draft.DueDate).Validate(validateDue),
			huh.NewInput().Title("Estimate (minutes)").Value(&f.draft.EstimatedTime).Validate(validateEstimate),
		),
	).WithShowHelp(true).WithShowErrors(true)
	return f
}

func (f *draftForm) editing() bool {
	return f.editID != ""
}

// result commits the tag text into the draft and returns a copy of it.
func (f *draftForm) result() tasks.Draft {
	d := *f.draft
	d.Tags = []string{}
	for _, tag := range strings.Split(*f.tags, ",") {
		d.CurrentTag = tag
		d.AddTag()
	}
	return d
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("title is required")
	}
	return nil
}

func validateDue(s string) error {
	if strings.TrimSpace(s) != "" && tasks.ParseDueDate(s) == nil {
		return errors.New("use YYYY-MM-DD or YYYY-MM-DDTHH:MM")
	}
	return nil
}

func validateEstimate(s string) error {
	if strings.TrimSpace(s) != "" && tasks.ParseEstimate(s) == nil {
		return errors.New("minutes must be a whole number >= 0")
	}
	return nil
}
