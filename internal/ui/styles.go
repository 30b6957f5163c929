package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Primary   = lipgloss.Color("#22d3ee") // Cyan accent
	Secondary = lipgloss.Color("#7C3AED") // Violet
	Success   = lipgloss.Color("#10B981") // Emerald
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
)

// Text styles
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
	PeerStyle    = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	StatusStyle  = lipgloss.NewStyle().Background(Primary).Foreground(lipgloss.Color("#111827")).Padding(0, 1).Bold(true)
)

var BoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Primary).Padding(1, 2)

const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconLink    = "🔗"
	IconRoom    = "🚪"
	IconPeer    = "👤"
	IconCall    = "📞"
	IconWaiting = "⏳"
)
