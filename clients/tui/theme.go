// Package tui provides a terminal user interface for the taskdeck gateway.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// Adaptive colors (light/dark terminal detection).
var (
	ColorAccent   = lipgloss.AdaptiveColor{Light: "#0070F3", Dark: "#79C0FF"}
	ColorStar     = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	ColorDone     = lipgloss.AdaptiveColor{Light: "#065F46", Dark: "#7EE2B8"}
	ColorError    = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FF6B6B"}
	ColorMuted    = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	ColorStatusBg = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}
	ColorStatusFg = lipgloss.AdaptiveColor{Light: "#374151", Dark: "#D1D5DB"}
	ColorBorder   = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}
)

// Priority colors, most urgent first.
var priorityColors = map[tasks.Priority]lipgloss.AdaptiveColor{
	tasks.PriorityUrgent: {Light: "#DC2626", Dark: "#FF6B6B"},
	tasks.PriorityHigh:   {Light: "#C2410C", Dark: "#FDBA74"},
	tasks.PriorityMedium: {Light: "#0070F3", Dark: "#79C0FF"},
	tasks.PriorityLow:    {Light: "#6B7280", Dark: "#9CA3AF"},
}

// Component styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StarStyle = lipgloss.NewStyle().
			Foreground(ColorStar)

	DoneStyle = lipgloss.NewStyle().
			Foreground(ColorDone).
			Strikethrough(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorStatusBg).
			Foreground(ColorStatusFg).
			Padding(0, 1)

	FormBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)

// PriorityStyle returns the label style for p.
func PriorityStyle(p tasks.Priority) lipgloss.Style {
	c, ok := priorityColors[p]
	if !ok {
		return MutedStyle
	}
	return lipgloss.NewStyle().Foreground(c)
}
