package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/store"
	"github.com/dohr-michael/taskdeck/internal/tasks"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeSearch
	modeConfirmDelete
)

// Options configures an App.
type Options struct {
	Context context.Context
	Store   *store.Store
	Events  <-chan events.Event // store events; nil disables live updates
	View    *tasks.View         // nil means tasks.NewView()
	Now     func() time.Time
}

// App is the main TUI application model: a filtered, sorted task list backed
// by a store.
type App struct {
	ctx    context.Context
	store  *store.Store
	events <-chan events.Event
	view   *tasks.View
	now    func() time.Time

	state   store.State
	visible []tasks.Task
	cursor  int
	mode    mode
	form    *draftForm
	search  textinput.Model
	help    help.Model
	status  string

	width    int
	height   int
	live     bool
	quitting bool
}

// NewApp creates a new TUI application.
func NewApp(opts Options) *App {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.View == nil {
		opts.View = tasks.NewView()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ti := textinput.New()
	ti.Placeholder = "title or tag"
	ti.Prompt = "/ "

	return &App{
		ctx:    opts.Context,
		store:  opts.Store,
		events: opts.Events,
		view:   opts.View,
		now:    opts.Now,
		search: ti,
		help:   help.New(),
	}
}

// Init starts the initial load and the store event listener.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.run("load", "", a.store.Start), a.listen())
}

// Update handles messages and updates state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case StoreEventMsg:
		a.sync()
		return a, a.listen()

	case EventsClosedMsg:
		return a, nil

	case ConnectedMsg:
		a.live = true
		return a, nil

	case DisconnectedMsg:
		a.live = false
		return a, nil

	case OpDoneMsg:
		a.sync()
		switch {
		case msg.Err != nil:
			a.status = fmt.Sprintf("%s failed: %v", msg.Op, msg.Err)
		case msg.Op != "load" && msg.Op != "refresh":
			a.status = ""
		}
		return a, nil

	case CreateFailedMsg:
		a.sync()
		a.status = fmt.Sprintf("%s: %v", store.MsgCreateFailed, msg.Err)
		return a.openForm(msg.Draft, "")

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.quitting = true
			return a, tea.Quit
		}
		switch a.mode {
		case modeForm:
			return a.updateForm(msg)
		case modeSearch:
			return a.updateSearch(msg)
		case modeConfirmDelete:
			return a.updateConfirm(msg)
		}
		return a.updateList(msg)
	}

	if a.mode == modeForm {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a *App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		a.quitting = true
		return a, tea.Quit
	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, keys.Down):
		if a.cursor < len(a.visible)-1 {
			a.cursor++
		}
	case key.Matches(msg, keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, keys.New):
		return a.openForm(tasks.NewDraft(), "")
	case key.Matches(msg, keys.Edit):
		if t, ok := a.selected(); ok {
			return a.openForm(tasks.DraftFromTask(t), t.ID)
		}
	case key.Matches(msg, keys.Toggle):
		if t, ok := a.selected(); ok {
			return a, a.update("toggle", t.ID, tasks.Patch{Completed: tasks.Ptr(!t.Completed)})
		}
	case key.Matches(msg, keys.Star):
		if t, ok := a.selected(); ok {
			return a, a.update("star", t.ID, tasks.Patch{Starred: tasks.Ptr(!t.Starred)})
		}
	case key.Matches(msg, keys.Archive):
		if t, ok := a.selected(); ok {
			return a, a.update("archive", t.ID, tasks.Patch{Archived: tasks.Ptr(true)})
		}
	case key.Matches(msg, keys.Delete):
		if _, ok := a.selected(); ok {
			a.mode = modeConfirmDelete
		}
	case key.Matches(msg, keys.Search):
		a.mode = modeSearch
		a.search.SetValue(a.view.Search)
		return a, a.search.Focus()
	case key.Matches(msg, keys.Sort):
		a.view.SortBy = cycle(tasks.SortFields, a.view.SortBy)
		a.refilter()
	case key.Matches(msg, keys.Mode):
		a.view.Mode = cycle(tasks.ViewModes, a.view.Mode)
		a.refilter()
	case key.Matches(msg, keys.Reset):
		a.view.Reset()
		a.refilter()
	case key.Matches(msg, keys.Refresh):
		return a, a.run("refresh", "", a.store.Refresh)
	default:
		for _, pk := range priorityKeys {
			if key.Matches(msg, pk.binding) {
				a.view.TogglePriority(pk.priority)
				a.refilter()
				break
			}
		}
	}
	return a, nil
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.mode = modeList
		a.search.Blur()
		return a, nil
	case "esc":
		a.mode = modeList
		a.search.Blur()
		a.search.SetValue("")
		a.view.Search = ""
		a.refilter()
		return a, nil
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	a.view.Search = a.search.Value()
	a.refilter()
	return a, cmd
}

func (a *App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.mode = modeList
	t, ok := a.selected()
	if !ok || !key.Matches(msg, keys.Confirm) {
		return a, nil
	}
	st := a.store
	id := t.ID
	return a, a.run("delete", id, func(ctx context.Context) error {
		return st.Remove(ctx, id)
	})
}

func (a *App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, keys.Back) {
		a.closeForm()
		return a, nil
	}

	form, cmd := a.form.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form.form = f
	}

	switch a.form.form.State {
	case huh.StateCompleted:
		df := a.form
		a.closeForm()
		return a, a.submit(df)
	case huh.StateAborted:
		a.closeForm()
		return a, nil
	}
	return a, cmd
}

func (a *App) openForm(d tasks.Draft, editID string) (tea.Model, tea.Cmd) {
	a.form = newDraftForm(d, editID)
	a.mode = modeForm
	return a, a.form.form.Init()
}

func (a *App) closeForm() {
	a.form = nil
	a.mode = modeList
}

// submit sends the form result to the store. A failed create reopens the
// form with the same contents.
func (a *App) submit(f *draftForm) tea.Cmd {
	d := f.result()
	st := a.store
	if f.editing() {
		id := f.editID
		return a.run("edit", id, func(ctx context.Context) error {
			_, err := st.ApplyUpdate(ctx, id, d.Patch())
			return err
		})
	}

	ctx := a.ctx
	return func() tea.Msg {
		if _, err := st.Add(ctx, d.Payload()); err != nil {
			return CreateFailedMsg{Draft: d, Err: err}
		}
		return OpDoneMsg{Op: "create"}
	}
}

func (a *App) update(op, id string, p tasks.Patch) tea.Cmd {
	st := a.store
	return a.run(op, id, func(ctx context.Context) error {
		_, err := st.ApplyUpdate(ctx, id, p)
		return err
	})
}

func (a *App) run(op, id string, fn func(context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return OpDoneMsg{Op: op, ID: id, Err: fn(ctx)}
	}
}

// listen waits for the next store event.
func (a *App) listen() tea.Cmd {
	if a.events == nil {
		return nil
	}
	ch := a.events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return EventsClosedMsg{}
		}
		return StoreEventMsg{Event: e}
	}
}

func (a *App) sync() {
	a.state = a.store.Snapshot()
	a.refilter()
}

func (a *App) refilter() {
	a.visible = a.view.Apply(a.state.Tasks)
	if a.cursor >= len(a.visible) {
		a.cursor = len(a.visible) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) selected() (tasks.Task, bool) {
	if a.cursor < 0 || a.cursor >= len(a.visible) {
		return tasks.Task{}, false
	}
	return a.visible[a.cursor], true
}

// Visible returns the tasks currently shown, in display order.
func (a *App) Visible() []tasks.Task {
	return append([]tasks.Task(nil), a.visible...)
}

// View renders the UI.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	sections := []string{a.headerView(), MutedStyle.Render(a.filterSummary()), ""}

	if a.mode == modeForm && a.form != nil {
		title := "New task"
		if a.form.editing() {
			title = "Edit task"
		}
		sections = append(sections, TitleStyle.Render(title), FormBorderStyle.Render(a.form.form.View()))
	} else {
		sections = append(sections, a.listView())
	}

	switch a.mode {
	case modeSearch:
		sections = append(sections, a.search.View())
	case modeConfirmDelete:
		if t, ok := a.selected(); ok {
			sections = append(sections, ErrorStyle.Render(fmt.Sprintf("Delete %q? (y/N)", t.Title)))
		}
	}

	if a.state.Error != "" {
		sections = append(sections, ErrorStyle.Render(a.state.Error))
	}
	if a.status != "" {
		sections = append(sections, StatusBarStyle.Render(a.status))
	}
	sections = append(sections, "", a.help.View(keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a *App) headerView() string {
	s := tasks.ComputeStats(a.state.Tasks, a.now())
	counters := fmt.Sprintf("%d active · %d completed · %d overdue · %d due today",
		s.Active, s.Completed, s.Overdue, s.DueToday)
	feed := MutedStyle.Render("○ offline")
	if a.live {
		feed = StarStyle.Render("● live")
	}
	return TitleStyle.Render("taskdeck") + "  " + MutedStyle.Render(counters) + "  " + feed
}

func (a *App) filterSummary() string {
	parts := []string{"view: " + string(a.view.Mode), "sort: " + string(a.view.SortBy)}
	var selected []string
	for _, p := range tasks.Priorities {
		if a.view.Priorities[p] {
			selected = append(selected, string(p))
		}
	}
	if len(selected) > 0 {
		parts = append(parts, "priority: "+strings.Join(selected, ","))
	}
	if a.view.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", a.view.Search))
	}
	return strings.Join(parts, " · ")
}

func (a *App) listView() string {
	if a.state.IsLoading && len(a.state.Tasks) == 0 {
		return MutedStyle.Render("Loading…")
	}
	if len(a.visible) == 0 {
		if a.view.HasActiveFilters() {
			return MutedStyle.Render("No tasks match the current filters (c to clear)")
		}
		return MutedStyle.Render("No tasks yet (n to add one)")
	}

	rows := make([]string, len(a.visible))
	for i, t := range a.visible {
		rows[i] = a.row(t, i == a.cursor)
	}
	return strings.Join(rows, "\n")
}

func (a *App) row(t tasks.Task, selected bool) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	star := " "
	if t.Starred {
		star = StarStyle.Render("★")
	}
	title := t.Title
	switch {
	case t.Completed:
		title = DoneStyle.Render(title)
	case selected:
		title = SelectedStyle.Render(title)
	}

	parts := []string{check, star, title, PriorityStyle(t.Priority).Render(string(t.Priority))}
	for _, tag := range t.Tags {
		parts = append(parts, MutedStyle.Render("#"+tag))
	}
	if t.DueDate != nil {
		parts = append(parts, a.dueLabel(t))
	}
	if t.EstimatedTime != nil {
		parts = append(parts, MutedStyle.Render(fmt.Sprintf("~%dm", *t.EstimatedTime)))
	}

	cursor := "  "
	if selected {
		cursor = SelectedStyle.Render("> ")
	}
	return cursor + strings.Join(parts, " ")
}

func (a *App) dueLabel(t tasks.Task) string {
	label := "due " + t.DueDate.Local().Format("2006-01-02 15:04")
	if !t.Completed && a.now().After(*t.DueDate) {
		return ErrorStyle.Render(label + " (overdue)")
	}
	return MutedStyle.Render(label)
}

// cycle returns the element after cur in list, wrapping around.
func cycle[T comparable](list []T, cur T) T {
	for i, v := range list {
		if v == cur {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}
