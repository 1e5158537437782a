package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// PositionBar renders elapsed/total playback position as a bar with a
// time readout.
type PositionBar struct {
	Width       int
	Current     time.Duration
	Total       time.Duration
	BarChar     string
	EmptyChar   string
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
	TimeStyle   lipgloss.Style
}

// NewPositionBar creates a position bar sized to the given width.
func NewPositionBar(width int) PositionBar {
	return PositionBar{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		TimeStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// SetPosition sets the current and total durations
func (p *PositionBar) SetPosition(current, total time.Duration) {
	p.Current = current
	p.Total = total
}

// View renders the bar
func (p PositionBar) View() string {
	var percent float64
	if p.Total > 0 {
		percent = float64(p.Current) / float64(p.Total)
	}
	if percent > 1 {
		percent = 1
	}

	barWidth := p.Width - 14 // Leave room for time display
	if barWidth < 10 {
		barWidth = 10
	}

	filled := int(float64(barWidth) * percent)
	empty := barWidth - filled

	var sb strings.Builder
	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, empty)))
	sb.WriteString(" ")
	sb.WriteString(p.TimeStyle.Render(FormatDuration(p.Current) + "/" + FormatDuration(p.Total)))

	return sb.String()
}

// FormatDuration formats a duration as MM:SS
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}
