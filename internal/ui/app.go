package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/slowverb/slowverb/api"
	"github.com/slowverb/slowverb/internal/audio"
	"github.com/slowverb/slowverb/internal/config"
	"github.com/slowverb/slowverb/internal/remote"
	"github.com/slowverb/slowverb/internal/ui/views"
	"github.com/slowverb/slowverb/pkg/events"
)

const (
	skipSeconds   = 5.0
	rateStep      = 0.05
	pitchStepCent = 100.0
	reverbStep    = 5.0
	volumeStep    = 0.1
)

// Model is the main bubbletea model
type Model struct {
	width  int
	height int

	playerView views.PlayerView
	queueView  views.QueueView

	engine  *audio.Engine
	adapter *remote.Adapter
	queue   *remote.Queue
	cfg     *config.Config

	eventCh <-chan api.Event
	err     error
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// EngineEventMsg carries one event off the engine bus
type EngineEventMsg struct {
	Event api.Event
}

// NewModel creates a new application model
func NewModel(engine *audio.Engine, adapter *remote.Adapter, queue *remote.Queue,
	bus *events.EventBus, cfg *config.Config) Model {
	m := Model{
		width:   80,
		height:  24,
		engine:  engine,
		adapter: adapter,
		queue:   queue,
		cfg:     cfg,
		eventCh: bus.SubscribeAll(),
	}

	m.playerView = views.NewPlayerView(m.width, 14)
	m.queueView = views.NewQueueView(m.width, m.height-16)
	m.queueView.SetTracks(queue.All())
	m.queueView.SetPlaying(-1)

	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.nextEvent())
}

// tickCmd returns a command that ticks every 500ms
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// nextEvent returns a command that waits for the next bus event
func (m Model) nextEvent() tea.Cmd {
	ch := m.eventCh
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return EngineEventMsg{Event: event}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playerView.Width = m.width
		m.queueView.Width = m.width
		m.queueView.Height = m.height - 16

	case TickMsg:
		m.refreshState()
		cmds = append(cmds, tickCmd())

	case EngineEventMsg:
		m.applyEvent(msg.Event)
		cmds = append(cmds, m.nextEvent())

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		if cmd != nil {
			return m, cmd
		}
	}

	return m, tea.Batch(cmds...)
}

// refreshState pulls a fresh snapshot from the engine into the views
func (m *Model) refreshState() {
	state := m.engine.State()
	m.playerView.SetState(&state)
	if state.Status == api.StatusUnloaded {
		m.queueView.SetPlaying(-1)
	} else {
		m.queueView.SetPlaying(m.queue.Index())
	}
}

// applyEvent folds one bus event into the model
func (m *Model) applyEvent(event api.Event) {
	switch event.Type {
	case api.EventExportProgress:
		if pct, ok := event.Payload.(float64); ok {
			m.playerView.Exporting = true
			m.playerView.ExportPct = pct
		}
	case api.EventExportDone:
		m.playerView.Exporting = false
		if result, ok := event.Payload.(api.ExportResult); ok {
			if result.Err != nil {
				m.err = result.Err
			} else {
				m.playerView.ExportPath = result.OutputPath
			}
		}
	case api.EventError:
		if err, ok := event.Payload.(error); ok {
			m.err = err
		}
	}
	m.refreshState()
}

// handleKey dispatches a key press; nil means it was not a global binding
// and fell through to the queue list.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	keys := m.cfg.KeyBindings
	key := msg.String()

	if key == "ctrl+c" || key == keys.Quit {
		return tea.Quit
	}

	var err error
	switch key {
	case keys.PlayPause:
		err = m.adapter.Handle(remote.Command{Kind: remote.CmdToggle})
	case keys.SeekForward:
		err = m.adapter.Handle(remote.Command{Kind: remote.CmdSkip, Seconds: skipSeconds})
	case keys.SeekBack:
		err = m.adapter.Handle(remote.Command{Kind: remote.CmdSkip, Seconds: -skipSeconds})
	case keys.Next:
		err = m.adapter.Handle(remote.Command{Kind: remote.CmdNext})
	case keys.Previous:
		err = m.adapter.Handle(remote.Command{Kind: remote.CmdPrevious})
	case keys.PresetA:
		err = m.adapter.Handle(remote.Command{Kind: remote.CmdPresetA})
	case keys.PresetB:
		err = m.adapter.Handle(remote.Command{Kind: remote.CmdPresetB})

	case keys.RateUp:
		err = m.nudgeParams(func(p *api.EffectParams) {
			p.Rate = clamp(p.Rate+rateStep, api.MinRate, api.MaxRate)
		})
	case keys.RateDown:
		err = m.nudgeParams(func(p *api.EffectParams) {
			p.Rate = clamp(p.Rate-rateStep, api.MinRate, api.MaxRate)
		})
	case keys.PitchUp:
		err = m.nudgeParams(func(p *api.EffectParams) {
			p.PitchCents = clamp(p.PitchCents+pitchStepCent, api.MinPitchCents, api.MaxPitchCents)
		})
	case keys.PitchDown:
		err = m.nudgeParams(func(p *api.EffectParams) {
			p.PitchCents = clamp(p.PitchCents-pitchStepCent, api.MinPitchCents, api.MaxPitchCents)
		})
	case keys.ReverbUp:
		err = m.nudgeParams(func(p *api.EffectParams) {
			p.ReverbMix = clamp(p.ReverbMix+reverbStep, 0, 100)
		})
	case keys.ReverbDown:
		err = m.nudgeParams(func(p *api.EffectParams) {
			p.ReverbMix = clamp(p.ReverbMix-reverbStep, 0, 100)
		})

	case keys.ModeToggle:
		mode := api.RateIndependent
		if m.engine.State().Mode == api.RateIndependent {
			mode = api.RateLinked
		}
		err = m.engine.SetRateMode(mode)

	case keys.VolumeUp:
		err = m.engine.SetVolume(clamp(m.engine.State().Volume+volumeStep, 0, 1))
	case keys.VolumeDown:
		err = m.engine.SetVolume(clamp(m.engine.State().Volume-volumeStep, 0, 1))

	case keys.Export:
		m.playerView.ExportPath = ""
		err = m.engine.Export(api.ExportSettings{
			Directory: m.cfg.ExportDirectory,
			BitDepth:  m.cfg.ExportBitDepth,
		}, nil, nil)
		if err == nil {
			m.playerView.Exporting = true
			m.playerView.ExportPct = 0
		}

	case "enter":
		if track := m.queueView.SelectedTrack(); track != nil {
			m.queue.JumpTo(m.queueView.SelectedIndex())
			if _, err = m.engine.Load(track.FilePath); err == nil {
				err = m.engine.Play()
			}
		}

	default:
		m.queueView, _ = m.queueView.Update(msg)
		return nil
	}

	m.err = err
	m.refreshState()
	return nil
}

// nudgeParams adjusts the current effect parameters and reapplies them
func (m *Model) nudgeParams(adjust func(*api.EffectParams)) error {
	params := m.engine.State().Params
	adjust(&params)
	return m.engine.SetEffectParams(params)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// View renders the UI
func (m Model) View() string {
	var sb string

	sb += m.playerView.View()
	sb += "\n"
	sb += m.queueView.View()

	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
		sb += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	sb += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(
		"[Space] Play/Pause  [←/→] Seek  [n/p] Track  [[/]] Speed  [{/}] Pitch  "+
			"[,/.] Reverb  [m] Mode  [a/b] Preset  [e] Export  [q] Quit",
	)

	return sb
}

// Run starts the bubbletea program
func Run(engine *audio.Engine, adapter *remote.Adapter, queue *remote.Queue,
	bus *events.EventBus, cfg *config.Config) error {
	model := NewModel(engine, adapter, queue, bus, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
