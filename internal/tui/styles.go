// internal/tui/styles.go
package tui

import "github.com/charmbracelet/lipgloss"

// --- STYLES ---
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#575B7E")).
			Padding(0, 1)

	labelStyle   = lipgloss.NewStyle().Bold(true).Width(7)
	sectionStyle = lipgloss.NewStyle().Bold(true).Width(18)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	ledOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	ledOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	registerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(7).
			Align(lipgloss.Center)
	registerBadStyle = registerStyle.Copy().BorderForeground(lipgloss.Color("196"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)
