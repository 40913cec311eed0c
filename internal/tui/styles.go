package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Catppuccin Mocha inspired).
var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"} // Blue
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#cba6f7"} // Mauve
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"} // Green
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"} // Yellow
	ColorError     = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"} // Red
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"} // Overlay0
)

// Styles contains the lipgloss styles of the slicing views.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	Help        lipgloss.Style
	ProgressBar lipgloss.Style
	Spinner     lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(ColorSecondary),
		Success: lipgloss.NewStyle().
			Foreground(ColorSuccess),
		Warning: lipgloss.NewStyle().
			Foreground(ColorWarning),
		Error: lipgloss.NewStyle().
			Foreground(ColorError),
		Info: lipgloss.NewStyle().
			Foreground(ColorPrimary),
		Help: lipgloss.NewStyle().
			Foreground(ColorMuted),
		ProgressBar: lipgloss.NewStyle().
			Foreground(ColorSuccess),
		Spinner: lipgloss.NewStyle().
			Foreground(ColorPrimary),
	}
}
