package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = lipgloss.Color("12")
	colorUser   = lipgloss.Color("14")
	colorMuted  = lipgloss.Color("8")
	colorOK     = lipgloss.Color("10")
	colorWarn   = lipgloss.Color("11")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)

	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorUser)
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	// transcript entries; width is set per render
	bubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().Bold(true).Foreground(colorOK)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarn)
	dimStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	helpStyle    = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
)
