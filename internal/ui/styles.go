package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the dashboard.
type Styles struct {
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Title     lipgloss.Style
	Label     lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Cursor    lipgloss.Style
	Selected  lipgloss.Style
	Column    lipgloss.Style
	Focused   lipgloss.Style
	Footer    lipgloss.Style
}

// DefaultStyles returns the dashboard's green-on-dark palette.
func DefaultStyles() Styles {
	green := lipgloss.Color("#2e7d32")
	light := lipgloss.Color("#a5d6a7")
	muted := lipgloss.Color("#8a8a8a")

	return Styles{
		Tab: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 2),
		ActiveTab: lipgloss.NewStyle().
			Background(green).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),
		Title: lipgloss.NewStyle().
			Foreground(light).
			Bold(true).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Foreground(light),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e57373")),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#81c784")),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffb74d")),
		Cursor: lipgloss.NewStyle().
			Foreground(light).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true),
		Column: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1).
			Width(28),
		Focused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(green).
			Padding(0, 1).
			Width(28),
		Footer: lipgloss.NewStyle().
			Foreground(muted).
			MarginTop(1),
	}
}
