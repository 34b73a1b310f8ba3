// Package themes holds the visual styles of the dashboard.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Balance       lipgloss.Style
	Tab           lipgloss.Style
	ActiveTab     lipgloss.Style
	Label         lipgloss.Style
	FocusedLabel  lipgloss.Style
	Choice        lipgloss.Style
	Disabled      lipgloss.Style
	Modal         lipgloss.Style
	RoundedBox    lipgloss.Style
	Credit        lipgloss.Style
	Debit         lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Error         lipgloss.Color
	Warning       lipgloss.Color
	Success       lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	Primary: lipgloss.Color("#2ec4b6"),
	Success: lipgloss.Color("#10b981"),
	Warning: lipgloss.Color("#f59e0b"),
	Error:   lipgloss.Color("#ef4444"),
	Border:  lipgloss.Color("#404040"),
	Muted:   lipgloss.Color("#737373"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")).
		MarginBottom(1),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Bold: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Balance: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#2ec4b6")),

	Tab: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")).
		Padding(0, 2),
	ActiveTab: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")).
		Background(lipgloss.Color("#2ec4b6")).
		Padding(0, 2),

	Label: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")).
		Width(10),
	FocusedLabel: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#2ec4b6")).
		Width(10),
	Choice: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Disabled: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#525252")),

	Modal: lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("#2ec4b6")).
		Padding(1, 3),
	RoundedBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(1, 2),

	Credit: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10b981")),
	Debit: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")),

	StatusSuccess: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10b981")).
		Bold(true),
	StatusWarning: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f59e0b")).
		Bold(true),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ef4444")).
		Bold(true),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3b82f6")).
		Bold(true),
}
