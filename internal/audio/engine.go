package audio

import (
	"context"
	"time"

	"github.com/slowverb/slowverb/api"
	engerrors "github.com/slowverb/slowverb/pkg/errors"
	"github.com/slowverb/slowverb/pkg/events"
)

// MetadataWriter embeds title/artist/artwork into an exported file. The
// pass is best-effort: a failure leaves the metadata-less file in place.
type MetadataWriter interface {
	Write(path string, track api.Track) error
}

// Options configures an engine at construction time; nothing is read from
// a global settings store.
type Options struct {
	Mode     api.RateMode
	Volume   float64
	Params   api.EffectParams
	Meta     MetadataWriter // nil skips the export metadata pass
	ExportTo string         // default export directory; "" = next to source
}

// Engine is the audio engine controller: it owns the processing graph, the
// playback state machine and the absolute-position bookkeeping. All mutable
// state is owned by the single run goroutine; public methods and render
// callbacks post commands into it.
type Engine struct {
	graph *Graph
	sink  Sink
	bus   *events.EventBus

	commands chan command

	// Everything below is touched only by the run goroutine.
	status      api.PlaybackStatus
	source      *Source
	track       api.Track
	volume      float64
	params      api.EffectParams
	mode        api.RateMode
	pausedFrame int
	// pendingReschedule is set when a segment played to its natural end;
	// the next play must schedule from frame 0 instead of resuming.
	pendingReschedule bool
	exporting         bool
	meta              MetadataWriter
	exportTo          string
}

type cmdKind int

const (
	cmdLoad cmdKind = iota
	cmdPlay
	cmdPause
	cmdToggle
	cmdSeek
	cmdSetParams
	cmdSetMode
	cmdSetVolume
	cmdExport
	cmdSegmentDone
	cmdExportDone
	cmdSnapshot
	cmdTick
)

type command struct {
	kind    cmdKind
	payload interface{}
	reply   chan response
}

type response struct {
	err   error
	track api.Track
	state api.PlaybackState
	now   api.NowPlaying
}

type exportRequest struct {
	settings   api.ExportSettings
	onProgress func(float64)
	onComplete func(string, error)
}

type exportOutcome struct {
	request    exportRequest
	outputPath string
	err        error
}

// NewEngine creates an engine rendering into sink and reporting on bus.
func NewEngine(sink Sink, bus *events.EventBus, opts Options) *Engine {
	if opts.Volume == 0 {
		opts.Volume = 0.7
	}
	params := opts.Params
	if !params.Valid() {
		params = api.DefaultEffectParams()
	}
	e := &Engine{
		graph:    NewGraph(sink),
		sink:     sink,
		bus:      bus,
		commands: make(chan command, 16),
		status:   api.StatusUnloaded,
		volume:   opts.Volume,
		params:   params,
		mode:     opts.Mode,
		meta:     opts.Meta,
		exportTo: opts.ExportTo,
	}
	e.graph.SetSegmentDoneFunc(e.segmentDone)
	return e
}

// Start begins the engine goroutines.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
	go e.tickPosition(ctx)
}

// Events returns the bus carrying the engine's notifications.
func (e *Engine) Events() *events.EventBus { return e.bus }

// segmentDone is invoked on the render thread when the scheduled segment
// plays out. It posts into the command loop rather than mutating state.
func (e *Engine) segmentDone(generation int) {
	go func() {
		e.commands <- command{kind: cmdSegmentDone, payload: generation}
	}()
}

// tickPosition publishes the playback position periodically while playing.
func (e *Engine) tickPosition(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case e.commands <- command{kind: cmdTick}:
			default:
			}
		}
	}
}

// run is the single-writer command loop that owns all engine state.
func (e *Engine) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case cmd := <-e.commands:
			e.handle(cmd)
		}
	}
}

func (e *Engine) handle(cmd command) {
	switch cmd.kind {
	case cmdLoad:
		path := cmd.payload.(string)
		track, err := e.load(path)
		cmd.reply <- response{err: err, track: track}

	case cmdPlay:
		cmd.reply <- response{err: e.play()}

	case cmdPause:
		cmd.reply <- response{err: e.pause()}

	case cmdToggle:
		if e.status == api.StatusPlaying {
			cmd.reply <- response{err: e.pause()}
		} else {
			cmd.reply <- response{err: e.play()}
		}

	case cmdSeek:
		cmd.reply <- response{err: e.seek(cmd.payload.(float64))}

	case cmdSetParams:
		cmd.reply <- response{err: e.setParams(cmd.payload.(api.EffectParams))}

	case cmdSetMode:
		cmd.reply <- response{err: e.setMode(cmd.payload.(api.RateMode))}

	case cmdSetVolume:
		cmd.reply <- response{err: e.setVolume(cmd.payload.(float64))}

	case cmdExport:
		cmd.reply <- response{err: e.beginExport(cmd.payload.(exportRequest))}

	case cmdSegmentDone:
		e.handleSegmentDone(cmd.payload.(int))

	case cmdExportDone:
		e.finishExport(cmd.payload.(exportOutcome))

	case cmdSnapshot:
		cmd.reply <- response{state: e.snapshot(), now: e.nowPlaying()}

	case cmdTick:
		if e.status == api.StatusPlaying {
			e.bus.Publish(api.Event{
				Type:    api.EventPositionUpdate,
				Payload: e.position(),
			})
		}
	}
}

func (e *Engine) load(path string) (api.Track, error) {
	if e.exporting {
		return api.Track{}, engerrors.ErrEngineBusy
	}

	src, err := OpenSource(path)
	if err != nil {
		e.bus.Publish(api.Event{Type: api.EventError, Payload: err})
		return api.Track{}, err
	}

	if err := e.graph.Configure(src, e.mode, e.params); err != nil {
		src.Close()
		e.status = api.StatusUnloaded
		e.bus.Publish(api.Event{Type: api.EventError, Payload: err})
		return api.Track{}, err
	}

	// Replace the old source wholesale; all position state is invalid now.
	if e.source != nil {
		e.source.Close()
	}
	e.source = src
	e.track = src.Track()
	e.status = api.StatusReady
	e.pausedFrame = 0
	e.pendingReschedule = false
	e.graph.SetVolume(e.volume)

	e.bus.Publish(api.Event{Type: api.EventTrackLoaded, Payload: e.track})
	e.publishState()
	return e.track, nil
}

func (e *Engine) play() error {
	switch e.status {
	case api.StatusUnloaded:
		return engerrors.ErrNoSourceLoaded
	case api.StatusExporting:
		return engerrors.ErrEngineBusy
	case api.StatusPlaying:
		return nil
	}

	if e.pendingReschedule {
		if err := e.graph.Reschedule(0); err != nil {
			return err
		}
		e.pendingReschedule = false
		e.pausedFrame = 0
	}

	if err := e.graph.StartTransport(); err != nil {
		// Retryable: the graph is intact, the caller may simply play again.
		return engerrors.NewEngineError("play", e.track.Title, err)
	}
	e.status = api.StatusPlaying
	e.publishState()
	return nil
}

func (e *Engine) pause() error {
	if e.status != api.StatusPlaying {
		// Idempotent: pausing while paused or stopped is a no-op.
		return nil
	}

	// Capture the absolute frame before stopping the transport; the live
	// elapsed signal is only valid while the segment is running.
	frame := e.graph.CurrentFrame()
	e.graph.PauseTransport()
	e.pausedFrame = frame
	e.status = api.StatusReady
	e.publishState()
	return nil
}

func (e *Engine) seek(seconds float64) error {
	switch e.status {
	case api.StatusUnloaded:
		return engerrors.ErrNoSourceLoaded
	case api.StatusExporting:
		return engerrors.ErrEngineBusy
	}

	frame := int(seconds * float64(e.source.SampleRate()))
	if err := e.graph.SeekFrame(frame); err != nil {
		return err
	}
	e.pausedFrame = frame
	e.pendingReschedule = false
	e.bus.Publish(api.Event{Type: api.EventPositionUpdate, Payload: e.position()})
	return nil
}

func (e *Engine) setParams(p api.EffectParams) error {
	if e.exporting {
		return engerrors.ErrEngineBusy
	}
	if !p.Valid() {
		return engerrors.ErrInvalidParams
	}
	if err := e.graph.ApplyEffectParams(p); err != nil {
		return err
	}
	e.params = p
	e.publishState()
	return nil
}

func (e *Engine) setMode(m api.RateMode) error {
	if e.exporting {
		return engerrors.ErrEngineBusy
	}
	if e.mode == m {
		return nil
	}
	e.mode = m
	if e.status == api.StatusUnloaded {
		return nil
	}

	// Topology change: the graph comes back paused at frame 0 regardless
	// of what was happening before.
	if err := e.graph.SwapRateMode(m); err != nil {
		return err
	}
	e.status = api.StatusReady
	e.pausedFrame = 0
	e.pendingReschedule = false
	e.publishState()
	return nil
}

func (e *Engine) setVolume(level float64) error {
	if level < 0 || level > 1 {
		return engerrors.ErrInvalidVolume
	}
	e.volume = level
	e.graph.SetVolume(level)
	e.publishState()
	return nil
}

func (e *Engine) handleSegmentDone(generation int) {
	// During export the worker goroutine owns the graph and reschedules
	// it, so the realtime segment's completion means nothing there. The
	// status check must come first: it keeps this goroutine off the graph
	// while the worker is mutating it.
	if e.status != api.StatusPlaying && e.status != api.StatusReady {
		return
	}
	// Stale completions: an earlier segment's callback racing a
	// reschedule. A matching generation is authoritative even when a
	// pause was handled between the segment draining and this command
	// arriving; the segment still played to its end, and dropping the
	// completion would wedge the next play() on the drained segment.
	if generation != e.graph.Generation() {
		return
	}

	// Natural end-of-file: indistinguishable from a pause at the callback
	// site except for this flag.
	e.graph.PauseTransport()
	e.status = api.StatusReady
	e.pausedFrame = 0
	e.pendingReschedule = true
	e.bus.Publish(api.Event{Type: api.EventTrackEnded, Payload: e.track})
	e.publishState()
}

func (e *Engine) snapshot() api.PlaybackState {
	state := api.PlaybackState{
		Status: e.status,
		Volume: e.volume,
		Params: e.params,
		Mode:   e.mode,
	}
	if e.status != api.StatusUnloaded {
		track := e.track
		state.CurrentTrack = &track
		state.Position = e.source.SampleRate().D(e.currentFrame())
	}
	return state
}

func (e *Engine) nowPlaying() api.NowPlaying {
	if e.status == api.StatusUnloaded {
		return api.NowPlaying{}
	}
	now := api.NowPlaying{
		Title:      e.track.Title,
		Artist:     e.track.Artist,
		ArtworkRef: e.track.CoverArt,
		Elapsed:    e.position(),
		Duration:   float64(e.source.Len()) / float64(e.source.SampleRate()),
	}
	// The literal transport state, not the high-level status: the two can
	// disagree transiently and the snapshot must not.
	if e.graph.TransportRunning() {
		now.EffectiveRate = e.params.Rate
	}
	return now
}

func (e *Engine) currentFrame() int {
	switch e.status {
	case api.StatusPlaying:
		return e.graph.CurrentFrame()
	case api.StatusReady, api.StatusExporting:
		return e.pausedFrame
	default:
		return 0
	}
}

func (e *Engine) position() float64 {
	if e.status == api.StatusUnloaded {
		return 0
	}
	return float64(e.currentFrame()) / float64(e.source.SampleRate())
}

func (e *Engine) publishState() {
	e.bus.Publish(api.Event{Type: api.EventStateChange, Payload: e.snapshot()})
	e.bus.Publish(api.Event{Type: api.EventNowPlaying, Payload: e.nowPlaying()})
}

func (e *Engine) shutdown() {
	if e.source != nil {
		e.source.Close()
		e.source = nil
	}
	e.graph.Shutdown()
	e.status = api.StatusUnloaded
}

// roundTrip posts a command and waits for the run goroutine's answer.
func (e *Engine) roundTrip(kind cmdKind, payload interface{}) response {
	reply := make(chan response, 1)
	e.commands <- command{kind: kind, payload: payload, reply: reply}
	return <-reply
}

// Load opens path, reads its metadata and configures the graph for it.
// Any previously loaded source is replaced wholesale.
func (e *Engine) Load(path string) (api.Track, error) {
	r := e.roundTrip(cmdLoad, path)
	return r.track, r.err
}

// Play starts or resumes playback.
func (e *Engine) Play() error {
	return e.roundTrip(cmdPlay, nil).err
}

// Pause pauses playback, capturing the current absolute position.
func (e *Engine) Pause() error {
	return e.roundTrip(cmdPause, nil).err
}

// Toggle pauses if playing, otherwise plays.
func (e *Engine) Toggle() error {
	return e.roundTrip(cmdToggle, nil).err
}

// Seek moves the playhead to the given time. Out-of-bounds positions are
// rejected without any state change.
func (e *Engine) Seek(seconds float64) error {
	return e.roundTrip(cmdSeek, seconds).err
}

// SetEffectParams applies the full parameter set to the live graph.
func (e *Engine) SetEffectParams(p api.EffectParams) error {
	return e.roundTrip(cmdSetParams, p).err
}

// SetRateMode switches between the independent and linked tempo/pitch
// stages. Playback position resets to zero.
func (e *Engine) SetRateMode(m api.RateMode) error {
	return e.roundTrip(cmdSetMode, m).err
}

// SetVolume sets the master volume in [0, 1].
func (e *Engine) SetVolume(level float64) error {
	return e.roundTrip(cmdSetVolume, level).err
}

// Export renders the whole source through the current effect chain into an
// encoded file. Progress and the terminal result arrive on the callbacks;
// the call itself returns once the job is accepted or refused.
func (e *Engine) Export(settings api.ExportSettings, onProgress func(float64), onComplete func(string, error)) error {
	return e.roundTrip(cmdExport, exportRequest{
		settings:   settings,
		onProgress: onProgress,
		onComplete: onComplete,
	}).err
}

// State returns a snapshot of the engine state.
func (e *Engine) State() api.PlaybackState {
	return e.roundTrip(cmdSnapshot, nil).state
}

// NowPlaying returns the current status snapshot.
func (e *Engine) NowPlaying() api.NowPlaying {
	return e.roundTrip(cmdSnapshot, nil).now
}

// CurrentTime returns the playhead position in seconds.
func (e *Engine) CurrentTime() float64 {
	return e.roundTrip(cmdSnapshot, nil).now.Elapsed
}

// Duration returns the source duration in seconds.
func (e *Engine) Duration() float64 {
	return e.roundTrip(cmdSnapshot, nil).now.Duration
}

// IsPlaying reports whether the engine is in the playing state.
func (e *Engine) IsPlaying() bool {
	return e.roundTrip(cmdSnapshot, nil).state.Status == api.StatusPlaying
}
