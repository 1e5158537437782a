package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/slowverb/slowverb/api"
	"github.com/slowverb/slowverb/internal/ui/components"
)

// PlayerView displays the loaded track, transport state and the full
// effect chain readout.
type PlayerView struct {
	Width  int
	Height int
	State  *api.PlaybackState

	PositionBar components.PositionBar

	// Export progress, shown only while an offline render runs.
	Exporting  bool
	ExportPct  float64
	ExportPath string
	exportBar  progress.Model

	// Styles
	TitleStyle    lipgloss.Style
	ArtistStyle   lipgloss.Style
	AlbumStyle    lipgloss.Style
	StatusStyle   lipgloss.Style
	ParamStyle    lipgloss.Style
	ValueStyle    lipgloss.Style
	ControlsStyle lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewPlayerView creates a new player view
func NewPlayerView(width, height int) PlayerView {
	return PlayerView{
		Width:       width,
		Height:      height,
		PositionBar: components.NewPositionBar(width - 8),
		exportBar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(width-20)),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		AlbumStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		ParamStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		ValueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}
}

// SetState updates the playback state
func (v *PlayerView) SetState(state *api.PlaybackState) {
	v.State = state
	if state != nil && state.CurrentTrack != nil {
		v.PositionBar.SetPosition(state.Position, state.CurrentTrack.Duration)
	}
}

// Update handles messages
func (v PlayerView) Update(msg tea.Msg) (PlayerView, tea.Cmd) {
	return v, nil
}

// View renders the player view
func (v PlayerView) View() string {
	var sb strings.Builder

	if v.State == nil || v.State.CurrentTrack == nil {
		sb.WriteString(v.TitleStyle.Render("♪ Nothing loaded"))
		sb.WriteString("\n\n")
		sb.WriteString(v.ControlsStyle.Render("Select a track and press Enter"))
		return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
	}

	track := v.State.CurrentTrack

	var statusIcon string
	switch v.State.Status {
	case api.StatusPlaying:
		statusIcon = "▶"
	case api.StatusExporting:
		statusIcon = "⇣"
	default:
		statusIcon = "⏸"
	}

	sb.WriteString(v.StatusStyle.Render(statusIcon + " "))
	sb.WriteString(v.TitleStyle.Render(track.Title))
	sb.WriteString("\n")
	sb.WriteString(v.ArtistStyle.Render(track.Artist))
	if track.Album != "" {
		sb.WriteString(v.AlbumStyle.Render("  " + track.Album))
	}
	sb.WriteString("\n\n")

	sb.WriteString(v.PositionBar.View())
	sb.WriteString("\n\n")

	sb.WriteString(v.renderEffects())
	sb.WriteString("\n")

	volumeBar := renderVolumeBar(v.State.Volume)
	sb.WriteString(fmt.Sprintf("Volume: %s %d%%", volumeBar, int(v.State.Volume*100)))

	if v.Exporting {
		sb.WriteString("\n\n")
		sb.WriteString(v.ParamStyle.Render("Exporting "))
		sb.WriteString(v.exportBar.ViewAs(v.ExportPct))
	} else if v.ExportPath != "" {
		sb.WriteString("\n\n")
		sb.WriteString(v.ParamStyle.Render("Saved: ") + v.ValueStyle.Render(v.ExportPath))
	}

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}

// renderEffects renders the rate, pitch, reverb and EQ readout
func (v PlayerView) renderEffects() string {
	p := v.State.Params

	pitch := "linked"
	if v.State.Mode == api.RateIndependent {
		pitch = fmt.Sprintf("%+d st", int(p.PitchCents)/100)
	}

	line1 := fmt.Sprintf("%s %s   %s %s   %s %s   %s %d%%",
		v.ParamStyle.Render("Speed"),
		v.ValueStyle.Render(fmt.Sprintf("%.2fx", p.Rate)),
		v.ParamStyle.Render("Pitch"),
		v.ValueStyle.Render(pitch),
		v.ParamStyle.Render("Mode"),
		v.ValueStyle.Render(v.State.Mode.String()),
		v.ParamStyle.Render("Reverb"),
		int(p.ReverbMix))

	line2 := fmt.Sprintf("%s  low %s  mid %s  high %s",
		v.ParamStyle.Render("EQ"),
		v.ValueStyle.Render(fmt.Sprintf("%+.1f dB", p.BandGains[0])),
		v.ValueStyle.Render(fmt.Sprintf("%+.1f dB", p.BandGains[1])),
		v.ValueStyle.Render(fmt.Sprintf("%+.1f dB", p.BandGains[2])))

	return line1 + "\n" + line2 + "\n"
}

// renderVolumeBar renders a volume bar
func renderVolumeBar(volume float64) string {
	filled := int(volume * 10)
	if filled > 10 {
		filled = 10
	}
	empty := 10 - filled

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return filledStyle.Render(strings.Repeat("●", filled)) + emptyStyle.Render(strings.Repeat("○", empty))
}
