package cli

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	errorText lipgloss.Style
	status    lipgloss.Style
	interim   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94")).Bold(true),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		interim:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
	}
}
