package report

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	borderColor  = lipgloss.Color("#6B7280") // Gray
)

// styles holds the text styles for one renderer. The plain set renders
// every string unchanged so output stays byte-stable for pipes and tests.
type styles struct {
	title    lipgloss.Style
	section  lipgloss.Style
	muted    lipgloss.Style
	critical lipgloss.Style
	warning  lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	border   lipgloss.Style
	header   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{
			title: plain, section: plain, muted: plain, critical: plain,
			warning: plain, success: plain, failure: plain, border: plain,
			header: lipgloss.NewStyle().Padding(0, 1),
		}
	}
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
		section:  lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
		muted:    lipgloss.NewStyle().Foreground(mutedColor),
		critical: lipgloss.NewStyle().Bold(true).Foreground(errorColor),
		warning:  lipgloss.NewStyle().Foreground(warningColor),
		success:  lipgloss.NewStyle().Foreground(successColor),
		failure:  lipgloss.NewStyle().Bold(true).Foreground(errorColor),
		border:   lipgloss.NewStyle().Foreground(borderColor),
		header:   lipgloss.NewStyle().Bold(true).Padding(0, 1),
	}
}

// severity picks the style for a finding severity on the 0-10 scale.
func (s styles) severity(v float64) lipgloss.Style {
	switch {
	case v >= 8:
		return s.critical
	case v >= 6:
		return s.warning
	default:
		return s.muted
	}
}
