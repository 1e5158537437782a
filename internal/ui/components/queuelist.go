package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/slowverb/slowverb/api"
)

// QueueList is a scrollable list of queued tracks with a marker on the
// track currently loaded into the engine.
type QueueList struct {
	Items         []*api.Track
	Selected      int
	Playing       int // index of the loaded track, -1 for none
	Height        int
	Width         int
	Offset        int
	SelectedStyle lipgloss.Style
	NormalStyle   lipgloss.Style
	PlayingStyle  lipgloss.Style
	TitleStyle    lipgloss.Style
}

// NewQueueList creates a new queue list
func NewQueueList(height, width int) QueueList {
	return QueueList{
		Items:    make([]*api.Track, 0),
		Selected: 0,
		Playing:  -1,
		Height:   height,
		Width:    width,
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		NormalStyle: lipgloss.NewStyle().
			Padding(0, 1),
		PlayingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Padding(0, 1),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
	}
}

// SetItems sets the list items
func (l *QueueList) SetItems(items []*api.Track) {
	l.Items = items
	l.Selected = 0
	l.Offset = 0
}

// Update handles navigation keys
func (l QueueList) Update(msg tea.Msg) (QueueList, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home":
			l.Selected = 0
			l.Offset = 0
		case "end":
			if len(l.Items) > 0 {
				l.Selected = len(l.Items) - 1
				l.ensureVisible()
			}
		case "pgup":
			l.Selected -= l.Height - 2
			if l.Selected < 0 {
				l.Selected = 0
			}
			l.ensureVisible()
		case "pgdown":
			l.Selected += l.Height - 2
			if l.Selected >= len(l.Items) {
				l.Selected = len(l.Items) - 1
			}
			l.ensureVisible()
		}
	}
	return l, nil
}

// MoveUp moves selection up
func (l *QueueList) MoveUp() {
	if l.Selected > 0 {
		l.Selected--
		l.ensureVisible()
	}
}

// MoveDown moves selection down
func (l *QueueList) MoveDown() {
	if l.Selected < len(l.Items)-1 {
		l.Selected++
		l.ensureVisible()
	}
}

// ensureVisible ensures the selected item is visible
func (l *QueueList) ensureVisible() {
	visibleHeight := l.Height - 2
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	if l.Selected < l.Offset {
		l.Offset = l.Selected
	} else if l.Selected >= l.Offset+visibleHeight {
		l.Offset = l.Selected - visibleHeight + 1
	}
}

// SelectedItem returns the currently selected track
func (l *QueueList) SelectedItem() *api.Track {
	if l.Selected >= 0 && l.Selected < len(l.Items) {
		return l.Items[l.Selected]
	}
	return nil
}

// View renders the queue list
func (l QueueList) View() string {
	var sb strings.Builder

	sb.WriteString(l.TitleStyle.Render("Queue"))
	sb.WriteString("\n")

	if len(l.Items) == 0 {
		sb.WriteString(l.NormalStyle.Render("No tracks"))
		return sb.String()
	}

	visibleHeight := l.Height - 2
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	end := l.Offset + visibleHeight
	if end > len(l.Items) {
		end = len(l.Items)
	}

	for i := l.Offset; i < end; i++ {
		track := l.Items[i]

		marker := "  "
		if i == l.Playing {
			marker = "▶ "
		}
		line := fmt.Sprintf("%s%s - %s  %s",
			marker,
			truncate(track.Artist, 20),
			truncate(track.Title, 32),
			FormatDuration(track.Duration))

		if len(line) > l.Width-2 && l.Width > 5 {
			line = line[:l.Width-5] + "..."
		}

		switch {
		case i == l.Selected:
			sb.WriteString(l.SelectedStyle.Render(line))
		case i == l.Playing:
			sb.WriteString(l.PlayingStyle.Render(line))
		default:
			sb.WriteString(l.NormalStyle.Render(line))
		}

		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	if len(l.Items) > visibleHeight {
		sb.WriteString("\n")
		sb.WriteString(l.NormalStyle.Render(fmt.Sprintf("  [%d/%d]", l.Selected+1, len(l.Items))))
	}

	return sb.String()
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
