package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/slowverb/slowverb/api"
	"github.com/slowverb/slowverb/internal/ui/components"
)

// QueueView wraps the queue list component.
type QueueView struct {
	Width  int
	Height int
	List   components.QueueList
}

// NewQueueView creates a new queue view
func NewQueueView(width, height int) QueueView {
	list := components.NewQueueList(height, width)
	return QueueView{
		Width:  width,
		Height: height,
		List:   list,
	}
}

// SetTracks sets the queued tracks
func (v *QueueView) SetTracks(tracks []*api.Track) {
	v.List.SetItems(tracks)
}

// SetPlaying marks the loaded track index, -1 for none.
func (v *QueueView) SetPlaying(index int) {
	v.List.Playing = index
}

// SelectedTrack returns the highlighted track
func (v *QueueView) SelectedTrack() *api.Track {
	return v.List.SelectedItem()
}

// SelectedIndex returns the highlighted index
func (v *QueueView) SelectedIndex() int {
	return v.List.Selected
}

// Update handles messages
func (v QueueView) Update(msg tea.Msg) (QueueView, tea.Cmd) {
	var cmd tea.Cmd
	v.List.Height = v.Height
	v.List.Width = v.Width
	v.List, cmd = v.List.Update(msg)
	return v, cmd
}

// View renders the queue view
func (v QueueView) View() string {
	return v.List.View()
}
