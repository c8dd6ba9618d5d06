package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Star    key.Binding
	Archive key.Binding
	Delete  key.Binding
	New     key.Binding
	Edit    key.Binding
	Search  key.Binding
	Urgent  key.Binding
	High    key.Binding
	Medium  key.Binding
	Low     key.Binding
	Sort    key.Binding
	Mode    key.Binding
	Reset   key.Binding
	Refresh key.Binding
	Help    key.Binding
	Confirm key.Binding
	Back    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "x"),
		key.WithHelp("space", "done"),
	),
	Star: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "star"),
	),
	Archive: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "archive"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e", "enter"),
		key.WithHelp("e", "edit"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Urgent: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "urgent"),
	),
	High: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "high"),
	),
	Medium: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "medium"),
	),
	Low: key.NewBinding(
		key.WithKeys("4"),
		key.WithHelp("4", "low"),
	),
	Sort: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "sort"),
	),
	Mode: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "view"),
	),
	Reset: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear filters"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.New, k.Edit, k.Search, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.Star},
		{k.New, k.Edit, k.Archive, k.Delete},
		{k.Urgent, k.High, k.Medium, k.Low},
		{k.Search, k.Sort, k.Mode, k.Reset},
		{k.Refresh, k.Help, k.Back, k.Quit},
	}
}

// priorityKeys maps the priority filter bindings to their priority.
var priorityKeys = []struct {
	binding  key.Binding
	priority tasks.Priority
}{
	{keys.Urgent, tasks.PriorityUrgent},
	{keys.High, tasks.PriorityHigh},
	{keys.Medium, tasks.PriorityMedium},
	{keys.Low, tasks.PriorityLow},
}
