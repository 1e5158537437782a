package remote

import (
	"context"

	"github.com/slowverb/slowverb/api"
	"github.com/slowverb/slowverb/internal/audio"
	engerrors "github.com/slowverb/slowverb/pkg/errors"
	"github.com/slowverb/slowverb/pkg/events"
)

// CommandKind enumerates the normalized transport command vocabulary.
type CommandKind int

const (
	CmdPlay CommandKind = iota
	CmdPause
	CmdToggle
	CmdSeek     // absolute, Seconds holds the target
	CmdSkip     // relative, Seconds holds the signed interval
	CmdNext
	CmdPrevious
	CmdPresetA // "like": apply preset A effect parameters
	CmdPresetB // "dislike": apply preset B effect parameters
)

// Command is one normalized transport command, however it was sourced.
type Command struct {
	Kind    CommandKind
	Seconds float64
}

// CommandSource delivers normalized transport commands from the outside
// world (system media keys, a TUI, anything).
type CommandSource interface {
	Commands() <-chan Command
}

// EndOfTrackPolicy decides what happens when a track completes naturally.
type EndOfTrackPolicy int

const (
	PolicyStop EndOfTrackPolicy = iota
	PolicyLoop
	PolicyAdvance
)

// ParsePolicy maps a config string onto a policy; unknown values stop.
func ParsePolicy(s string) EndOfTrackPolicy {
	switch s {
	case "loop":
		return PolicyLoop
	case "advance":
		return PolicyAdvance
	default:
		return PolicyStop
	}
}

// Adapter normalizes transport commands into engine calls and pushes a
// now-playing snapshot outward after every command.
type Adapter struct {
	engine  *audio.Engine
	queue   *Queue
	bus     *events.EventBus
	presetA api.EffectParams
	presetB api.EffectParams
	policy  EndOfTrackPolicy
}

// NewAdapter wires an adapter to the engine and its event bus.
func NewAdapter(engine *audio.Engine, queue *Queue, bus *events.EventBus,
	presetA, presetB api.EffectParams, policy EndOfTrackPolicy) *Adapter {
	return &Adapter{
		engine:  engine,
		queue:   queue,
		bus:     bus,
		presetA: presetA,
		presetB: presetB,
		policy:  policy,
	}
}

// Handle executes one command against the engine. Commands fail with
// ErrNoSourceLoaded and no side effects when nothing is loaded. A snapshot
// is published whether the command succeeded or not.
func (a *Adapter) Handle(cmd Command) error {
	defer a.publish()

	if a.engine.State().Status == api.StatusUnloaded {
		return engerrors.ErrNoSourceLoaded
	}

	switch cmd.Kind {
	case CmdPlay:
		return a.engine.Play()
	case CmdPause:
		return a.engine.Pause()
	case CmdToggle:
		return a.engine.Toggle()
	case CmdSeek:
		return a.engine.Seek(cmd.Seconds)
	case CmdSkip:
		return a.skip(cmd.Seconds)
	case CmdNext:
		return a.step(a.queue.Next())
	case CmdPrevious:
		return a.step(a.queue.Previous())
	case CmdPresetA:
		return a.engine.SetEffectParams(a.presetA)
	case CmdPresetB:
		return a.engine.SetEffectParams(a.presetB)
	default:
		return engerrors.NewEngineError("remote", "", engerrors.ErrInvalidParams)
	}
}

// skip clamps the relative jump into the valid seek range before issuing
// an absolute seek.
func (a *Adapter) skip(interval float64) error {
	now := a.engine.NowPlaying()
	target := now.Elapsed + interval
	if target < 0 {
		target = 0
	}
	if target >= now.Duration {
		target = now.Duration - 0.05
		if target < 0 {
			target = 0
		}
	}
	return a.engine.Seek(target)
}

func (a *Adapter) step(track *api.Track) error {
	if track == nil {
		return engerrors.ErrEndOfQueue
	}
	if _, err := a.engine.Load(track.FilePath); err != nil {
		return err
	}
	return a.engine.Play()
}

// publish pushes the literal-transport now-playing snapshot outward.
func (a *Adapter) publish() {
	a.bus.Publish(api.Event{Type: api.EventNowPlaying, Payload: a.engine.NowPlaying()})
}

// Run consumes commands from src and applies the end-of-track policy to
// natural completions until ctx is done. src may be nil when commands only
// arrive via Handle.
func (a *Adapter) Run(ctx context.Context, src CommandSource) {
	var commands <-chan Command
	if src != nil {
		commands = src.Commands()
	}
	ended := a.bus.Subscribe(api.EventTrackEnded)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-commands:
			a.Handle(cmd)
		case <-ended:
			a.trackEnded()
		}
	}
}

// trackEnded applies the configured policy after a natural completion. The
// engine has already parked itself at frame 0 with the reschedule flag set,
// so looping is a plain play.
func (a *Adapter) trackEnded() {
	switch a.policy {
	case PolicyLoop:
		a.engine.Play()
	case PolicyAdvance:
		if next := a.queue.Next(); next != nil {
			if _, err := a.engine.Load(next.FilePath); err == nil {
				a.engine.Play()
			}
		}
	}
	a.publish()
}
