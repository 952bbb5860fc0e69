package console

import "github.com/charmbracelet/lipgloss"

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 2)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 2)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	aiStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	answerStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).BorderForeground(lipgloss.Color("62")).PaddingLeft(1)
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var priorityColors = map[string]lipgloss.Color{
	"critical": lipgloss.Color("9"),
	"high":     lipgloss.Color("208"),
	"medium":   lipgloss.Color("11"),
	"low":      lipgloss.Color("10"),
}

var statusColors = map[string]lipgloss.Color{
	"open":        lipgloss.Color("12"),
	"in-progress": lipgloss.Color("11"),
	"waiting":     lipgloss.Color("13"),
	"resolved":    lipgloss.Color("10"),
	"closed":      lipgloss.Color("244"),
	"escalated":   lipgloss.Color("9"),
}
