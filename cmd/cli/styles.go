package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Shared styles for the CLI package
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b7280")).
			Width(14)

	// Status styles
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	// Subscription styles
	expiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Strikethrough(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	// Pricing styles
	planTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	popularBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#f59e0b")).
				Background(lipgloss.Color("#f59e0b15")).
				Padding(0, 1)

	planFeatureStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#10b981")).
				Margin(0, 0, 0, 2)

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3b82f6"))

	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b7280")).
			Margin(0, 0, 1, 2)
)
