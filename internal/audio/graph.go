package audio

import (
	"fmt"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/slowverb/slowverb/api"
	engerrors "github.com/slowverb/slowverb/pkg/errors"
)

// Graph owns the ordered streamer chain
//
//	segment -> counter -> {rate stage} -> EQ -> reverb -> ctrl -> volume -> sink
//
// where the rate stage is either a lone resampler (linked mode) or a
// resampler followed by pitch compensation (independent mode). The bracketed
// part up to the reverb is rebuilt on every reschedule; ctrl and volume
// survive for the lifetime of a configuration. All mutations of the live
// chain happen under the sink lock.
type Graph struct {
	sink   Sink
	source *Source
	mode   api.RateMode
	params api.EffectParams

	counter   *frameCounter
	resampler *beep.Resampler
	pitchComp *pitchCompStage
	eq        *eqStage
	rev       *reverbStage
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	tail      *sustainStreamer

	baseFrame  int
	generation int
	configured bool

	// onSegmentDone fires on the render thread when the scheduled segment
	// plays to its natural end, carrying the segment's generation so stale
	// completions can be told apart from the live segment's. It must not
	// mutate engine state directly.
	onSegmentDone func(generation int)
}

// sustainStreamer keeps the chain alive in the output mixer after the
// scheduled segment drains, emitting silence until the next reschedule.
// Without it the mixer would drop the chain on end-of-file and a later
// resume would go nowhere.
type sustainStreamer struct {
	src beep.Streamer
}

func (s *sustainStreamer) Stream(samples [][2]float64) (int, bool) {
	n, _ := s.src.Stream(samples)
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (s *sustainStreamer) Err() error { return s.src.Err() }

// NewGraph creates a graph rendering into sink.
func NewGraph(sink Sink) *Graph {
	return &Graph{sink: sink, params: api.DefaultEffectParams()}
}

// SetSegmentDoneFunc registers the natural-completion callback.
func (g *Graph) SetSegmentDoneFunc(fn func(generation int)) { g.onSegmentDone = fn }

// Generation identifies the currently scheduled segment. It changes on
// every reschedule.
func (g *Graph) Generation() int { return g.generation }

// Configure attaches all stages for src in the selected mode, schedules the
// source from frame 0 and leaves the transport paused. A previous
// configuration is discarded wholesale.
func (g *Graph) Configure(src *Source, mode api.RateMode, params api.EffectParams) error {
	g.sink.Stop()

	sampleRate := float64(src.SampleRate())

	rev, err := newReverbStage(sampleRate)
	if err != nil {
		return engerrors.NewEngineError("configure", src.track.Title, err)
	}
	pitchComp, err := newPitchCompStage(sampleRate)
	if err != nil {
		return engerrors.NewEngineError("configure", src.track.Title, err)
	}

	g.source = src
	g.mode = mode
	g.eq = newEQStage(sampleRate)
	g.rev = rev
	g.pitchComp = pitchComp
	g.ctrl = &beep.Ctrl{Paused: true}
	g.volume = &effects.Volume{Streamer: g.ctrl, Base: 2, Volume: 0}
	g.tail = &sustainStreamer{src: g.volume}
	g.configured = true

	if err := g.applyParams(params); err != nil {
		g.configured = false
		return err
	}
	if err := g.reschedule(0); err != nil {
		g.configured = false
		return err
	}
	return nil
}

// reschedule seeks the source to fromFrame and relinks the input side of
// the chain as a fresh segment covering the rest of the file. Stage filter
// state is cleared. Callers hold the sink lock unless the sink is stopped.
func (g *Graph) reschedule(fromFrame int) error {
	if err := g.source.stream.Seek(fromFrame); err != nil {
		return engerrors.NewEngineError("reschedule", g.source.track.Title, err)
	}

	g.generation++
	gen := g.generation
	g.counter = &frameCounter{src: beep.Take(g.source.Len()-fromFrame, g.source.stream)}
	segment := beep.Seq(g.counter, beep.Callback(func() { g.segmentDone(gen) }))

	var rate beep.Streamer
	switch g.mode {
	case api.RateLinked:
		g.resampler = beep.ResampleRatio(resampleQualityHQ, g.params.Rate, segment)
		rate = g.resampler
	default:
		g.resampler = beep.ResampleRatio(resampleQuality, g.params.Rate, segment)
		g.pitchComp.src = g.resampler
		rate = g.pitchComp
	}

	g.eq.src = rate
	g.eq.reset()
	g.rev.src = g.eq
	g.rev.reset()
	g.ctrl.Streamer = g.rev
	g.baseFrame = fromFrame
	return nil
}

func (g *Graph) segmentDone(generation int) {
	if g.onSegmentDone != nil {
		g.onSegmentDone(generation)
	}
}

// Reschedule relinks the segment under the sink lock.
func (g *Graph) Reschedule(fromFrame int) error {
	if !g.configured {
		return engerrors.ErrNoSourceLoaded
	}
	g.sink.Lock()
	defer g.sink.Unlock()
	return g.reschedule(fromFrame)
}

// StartTransport makes the sink pull the chain and unpauses it. A failed
// start leaves the graph paused but consistent, and the call can simply be
// retried.
func (g *Graph) StartTransport() error {
	if !g.configured {
		return engerrors.ErrNoSourceLoaded
	}
	if !g.sink.Running() {
		if err := g.sink.Start(g.source.format, g.tail); err != nil {
			return fmt.Errorf("%w: %v", engerrors.ErrTransportFailed, err)
		}
	}
	g.sink.Lock()
	g.ctrl.Paused = false
	g.sink.Unlock()
	return nil
}

// PauseTransport halts the chain without detaching it from the sink.
func (g *Graph) PauseTransport() {
	if !g.configured {
		return
	}
	g.sink.Lock()
	g.ctrl.Paused = true
	g.sink.Unlock()
}

// TransportRunning reports whether samples are literally being rendered:
// the sink is pulling and the control point is not paused.
func (g *Graph) TransportRunning() bool {
	if !g.configured || !g.sink.Running() {
		return false
	}
	g.sink.Lock()
	paused := g.ctrl.Paused
	g.sink.Unlock()
	return !paused
}

// CurrentFrame returns the absolute frame position in the source: the base
// frame of the scheduled segment plus the frames consumed from it so far.
func (g *Graph) CurrentFrame() int {
	if !g.configured {
		return 0
	}
	f := g.baseFrame + g.counter.frames()
	if l := g.source.Len(); f > l {
		f = l
	}
	return f
}

// SeekFrame stops the transport, schedules the sub-range starting at
// toFrame as a new segment and, if the transport was running before the
// seek, resumes it so the observable playing state is preserved.
func (g *Graph) SeekFrame(toFrame int) error {
	if !g.configured {
		return engerrors.ErrNoSourceLoaded
	}
	if toFrame < 0 || g.source.Len()-toFrame <= 0 {
		return engerrors.ErrSeekOutOfBounds
	}

	wasRunning := g.TransportRunning()
	g.sink.Lock()
	defer g.sink.Unlock()

	g.ctrl.Paused = true
	if err := g.reschedule(toFrame); err != nil {
		return err
	}
	if wasRunning {
		g.ctrl.Paused = false
	}
	return nil
}

// SwapRateMode is a topology change: stop, relink the input side with the
// stage for the new mode, reschedule from frame 0 and stay paused.
func (g *Graph) SwapRateMode(mode api.RateMode) error {
	if !g.configured {
		return engerrors.ErrNoSourceLoaded
	}
	g.sink.Lock()
	defer g.sink.Unlock()

	g.ctrl.Paused = true
	g.mode = mode
	if err := g.applyParamsLocked(g.params); err != nil {
		return err
	}
	return g.reschedule(0)
}

// ApplyEffectParams writes the parameter set into the live stages. No
// topology change: the resampler ratio, pitch compensation, band gains and
// reverb mix are updated in place between render pulls.
func (g *Graph) ApplyEffectParams(params api.EffectParams) error {
	if !params.Valid() {
		return engerrors.ErrInvalidParams
	}
	if !g.configured {
		g.params = params
		return nil
	}
	g.sink.Lock()
	defer g.sink.Unlock()
	return g.applyParamsLocked(params)
}

func (g *Graph) applyParamsLocked(params api.EffectParams) error {
	if g.resampler != nil {
		g.resampler.SetRatio(params.Rate)
	}
	return g.applyParams(params)
}

func (g *Graph) applyParams(params api.EffectParams) error {
	if g.mode == api.RateIndependent {
		if err := g.pitchComp.setRatio(compensationRatio(params.Rate, params.PitchCents)); err != nil {
			return engerrors.NewEngineError("apply_params", "", err)
		}
	}
	g.eq.setBandGains(params.BandGains)
	if err := g.rev.setMix(params.ReverbMix); err != nil {
		return engerrors.NewEngineError("apply_params", "", err)
	}
	g.params = params
	return nil
}

// SetVolume sets the master level in [0, 1].
func (g *Graph) SetVolume(level float64) {
	if !g.configured {
		return
	}
	g.sink.Lock()
	g.volume.Volume = level*2 - 1 // convert to the -1..1 exponential scale
	g.volume.Silent = level == 0
	g.sink.Unlock()
}

// Mode returns the currently connected rate mode.
func (g *Graph) Mode() api.RateMode { return g.mode }

// Params returns the last applied parameter set.
func (g *Graph) Params() api.EffectParams { return g.params }

// Source returns the current source, or nil before Configure.
func (g *Graph) Source() *Source {
	if !g.configured {
		return nil
	}
	return g.source
}

// BeginOffline detaches the chain from the realtime sink and schedules the
// entire source for manual rendering from frame 0.
func (g *Graph) BeginOffline() error {
	if !g.configured {
		return engerrors.ErrNoSourceLoaded
	}
	g.sink.Stop()
	g.ctrl.Paused = false
	return g.reschedule(0)
}

// PullOffline requests rendered frames directly from the effect chain,
// bypassing the realtime control point. Only valid between BeginOffline and
// EndOffline, when no sink is pulling.
func (g *Graph) PullOffline(buf [][2]float64) (int, bool) {
	return g.rev.Stream(buf)
}

// OfflineErr returns the pending stream error, if any, after a short pull.
func (g *Graph) OfflineErr() error { return g.rev.Err() }

// EndOffline reschedules the source from frame 0 and reattaches the chain
// to the realtime sink, paused. Called unconditionally after an export,
// whether it succeeded or not.
func (g *Graph) EndOffline() error {
	if !g.configured {
		return engerrors.ErrNoSourceLoaded
	}
	g.ctrl.Paused = true
	if err := g.reschedule(0); err != nil {
		return err
	}
	return g.sink.Start(g.source.format, g.tail)
}

// Shutdown detaches from the sink and drops the configuration.
func (g *Graph) Shutdown() {
	g.sink.Stop()
	g.configured = false
}
