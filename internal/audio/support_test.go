package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/slowverb/slowverb/pkg/events"
)

// memStreamer is an in-memory beep.StreamSeekCloser over precomputed
// samples.
type memStreamer struct {
	data   [][2]float64
	pos    int
	closed bool
}

func newMemStreamer(frames int) *memStreamer {
	data := make([][2]float64, frames)
	for i := range data {
		v := math.Sin(2 * math.Pi * float64(i) / 64)
		data[i] = [2]float64{v, v}
	}
	return &memStreamer{data: data}
}

func (m *memStreamer) Stream(samples [][2]float64) (int, bool) {
	if m.pos >= len(m.data) {
		return 0, false
	}
	n := copy(samples, m.data[m.pos:])
	m.pos += n
	return n, true
}

func (m *memStreamer) Err() error    { return nil }
func (m *memStreamer) Len() int      { return len(m.data) }
func (m *memStreamer) Position() int { return m.pos }

func (m *memStreamer) Seek(p int) error {
	if p < 0 || p > len(m.data) {
		return fmt.Errorf("seek out of range: %d", p)
	}
	m.pos = p
	return nil
}

func (m *memStreamer) Close() error {
	m.closed = true
	return nil
}

// fakeSink stands in for the speaker: it holds the streamer and lets tests
// pump frames through the chain on demand.
type fakeSink struct {
	mu      sync.Mutex
	stream  beep.Streamer
	running bool
	starts  int
}

func newFakeSink() *fakeSink { return &fakeSink{} }

func (s *fakeSink) Start(format beep.Format, stream beep.Streamer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
	s.running = true
	s.starts++
	return nil
}

func (s *fakeSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = nil
	s.running = false
}

func (s *fakeSink) Lock()   { s.mu.Lock() }
func (s *fakeSink) Unlock() { s.mu.Unlock() }

func (s *fakeSink) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// pump pulls frames through the attached streamer the way the speaker
// render loop would.
func (s *fakeSink) pump(frames int) {
	buf := make([][2]float64, 512)
	for frames > 0 {
		n := len(buf)
		if frames < n {
			n = frames
		}
		s.mu.Lock()
		if s.stream == nil || !s.running {
			s.mu.Unlock()
			return
		}
		s.stream.Stream(buf[:n])
		s.mu.Unlock()
		frames -= n
	}
}

const testSampleRate = 8000

// writeTestWAV writes a playable 16-bit stereo sine WAV and returns its
// path.
func writeTestWAV(t *testing.T, dir, name string, frames int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := gowav.NewEncoder(f, testSampleRate, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: testSampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, frames*2),
	}
	for i := 0; i < frames; i++ {
		v := int(math.Sin(2*math.Pi*float64(i)/64) * 16000)
		buf.Data[2*i] = v
		buf.Data[2*i+1] = v
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	return path
}

// newTestEngine builds an engine over a fake sink and starts its loop.
func newTestEngine(t *testing.T, opts Options) (*Engine, *fakeSink, *events.EventBus) {
	t.Helper()

	sink := newFakeSink()
	bus := events.NewEventBus()
	engine := NewEngine(sink, bus, opts)

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	t.Cleanup(cancel)
	t.Cleanup(bus.Close)

	return engine, sink, bus
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
