package audio

import (
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	engerrors "github.com/slowverb/slowverb/pkg/errors"
)

// Sink is the output end of the processing graph. The real implementation
// drives a speaker device; tests and offline rendering pump the graph
// without one. Running reports whether the device is literally pulling
// samples, which is the transport truth the now-playing snapshot relies on
// rather than the high-level engine status.
type Sink interface {
	// Start (re)activates the output device for format and begins pulling
	// from s. Safe to call again after a failure; a failed Start leaves the
	// sink stopped.
	Start(format beep.Format, s beep.Streamer) error
	// Stop detaches the current streamer and stops pulling.
	Stop()
	// Lock serializes graph mutations against the render thread.
	Lock()
	Unlock()
	// Running reports whether the sink currently drives the graph.
	Running() bool
}

// speakerSink renders through the beep speaker device.
type speakerSink struct {
	mu      sync.Mutex
	inited  bool
	rate    beep.SampleRate
	running bool
}

// NewSpeakerSink returns a Sink backed by the system audio device.
func NewSpeakerSink() Sink {
	return &speakerSink{}
}

func (s *speakerSink) Start(format beep.Format, stream beep.Streamer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inited || s.rate != format.SampleRate {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			s.inited = false
			s.running = false
			return engerrors.NewEngineError("speaker_init", "", err)
		}
		s.inited = true
		s.rate = format.SampleRate
	}

	speaker.Play(stream)
	s.running = true
	return nil
}

func (s *speakerSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inited {
		speaker.Clear()
	}
	s.running = false
}

func (s *speakerSink) Lock() {
	speaker.Lock()
}

func (s *speakerSink) Unlock() {
	speaker.Unlock()
}

func (s *speakerSink) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
