package statusui

import "github.com/charmbracelet/lipgloss"

// Color scheme adapted from runforge/internal/sentinel/styles.go.
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	phaseStyle  = lipgloss.NewStyle().Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
