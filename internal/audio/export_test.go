package audio

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/slowverb/slowverb/api"
	engerrors "github.com/slowverb/slowverb/pkg/errors"
)

func TestExportFileName(t *testing.T) {
	defaults := api.DefaultEffectParams()

	slowedReverb := defaults
	slowedReverb.Rate = 0.8
	slowedReverb.ReverbMix = 40

	pitched := defaults
	pitched.PitchCents = 200

	fast := defaults
	fast.Rate = 1.25

	halfUp := defaults
	halfUp.PitchCents = 150

	halfDown := defaults
	halfDown.PitchCents = -50

	everything := api.EffectParams{Rate: 0.75, PitchCents: -100, ReverbMix: 25}

	tests := []struct {
		name   string
		title  string
		params api.EffectParams
		mode   api.RateMode
		want   string
	}{
		{"defaults", "Song", defaults, api.RateIndependent, "Song"},
		{"slowed with reverb", "Song", slowedReverb, api.RateIndependent, "Song Speed 0.80x Reverb 40%"},
		{"pitch only", "Song", pitched, api.RateIndependent, "Song Pitch +2st"},
		{"pitch rounds up", "Song", halfUp, api.RateIndependent, "Song Pitch +2st"},
		{"pitch rounds away from zero", "Song", halfDown, api.RateIndependent, "Song Pitch -1st"},
		{"linked gets HQ", "Song", fast, api.RateLinked, "Song Speed 1.25x HQ"},
		{"linked hides pitch", "Song", pitched, api.RateLinked, "Song HQ"},
		{"all effects", "Song", everything, api.RateIndependent, "Song Speed 0.75x Pitch -1st Reverb 25%"},
		{"slash sanitized", "AC/DC - Song", defaults, api.RateIndependent, "AC-DC - Song"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExportFileName(tt.title, tt.params, tt.mode)
			if got != tt.want {
				t.Errorf("ExportFileName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExportWithoutSource(t *testing.T) {
	engine, _, _ := newTestEngine(t, Options{})

	err := engine.Export(api.ExportSettings{Directory: t.TempDir()}, nil, nil)
	if !errors.Is(err, engerrors.ErrNoSourceLoaded) {
		t.Errorf("Export = %v, want ErrNoSourceLoaded", err)
	}
}

func TestExportRendersFile(t *testing.T) {
	engine, sink, _ := newTestEngine(t, Options{})
	srcDir := t.TempDir()
	outDir := t.TempDir()
	path := writeTestWAV(t, srcDir, "Song.wav", 6000)
	if _, err := engine.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var progress []float64
	done := make(chan struct {
		path string
		err  error
	}, 1)

	err := engine.Export(api.ExportSettings{Directory: outDir, BitDepth: 16},
		func(p float64) { progress = append(progress, p) },
		func(outPath string, err error) {
			done <- struct {
				path string
				err  error
			}{outPath, err}
		})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	result := <-done
	if result.err != nil {
		t.Fatalf("export failed: %v", result.err)
	}

	wantPath := filepath.Join(outDir, "Song.wav")
	if result.path != wantPath {
		t.Errorf("output path = %q, want %q", result.path, wantPath)
	}
	info, err := os.Stat(result.path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	// 6000 stereo frames at 16 bit is 24000 data bytes plus headers.
	if info.Size() < 20000 {
		t.Errorf("output file suspiciously small: %d bytes", info.Size())
	}

	if len(progress) == 0 {
		t.Fatal("no progress reported")
	}
	// One emission per successful pull, and 6000 frames at the 4096-frame
	// pull size is exactly two pulls.
	if len(progress) != 2 {
		t.Errorf("progress emissions = %d, want 2", len(progress))
	}
	last := progress[len(progress)-1]
	if last < 0.95 || last > 1.0 {
		t.Errorf("final progress = %v, want about 1.0", last)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("progress regressed: %v after %v", progress[i], progress[i-1])
		}
	}

	// The engine must come back paused at zero and immediately playable.
	waitFor(t, "post-export ready", func() bool {
		s := engine.State()
		return s.Status == api.StatusReady && s.Position == 0
	})
	if err := engine.Play(); err != nil {
		t.Fatalf("Play after export: %v", err)
	}
	sink.pump(512)
	if pos := engine.State().Position; pos <= 0 {
		t.Error("playback did not advance after export")
	}
}

func TestExportBakesParamsIntoName(t *testing.T) {
	engine, _, _ := newTestEngine(t, Options{})
	outDir := t.TempDir()
	path := writeTestWAV(t, t.TempDir(), "Song.wav", 4000)
	if _, err := engine.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	params := api.DefaultEffectParams()
	params.Rate = 0.8
	params.ReverbMix = 40
	if err := engine.SetEffectParams(params); err != nil {
		t.Fatalf("SetEffectParams: %v", err)
	}

	done := make(chan string, 1)
	err := engine.Export(api.ExportSettings{Directory: outDir},
		nil,
		func(outPath string, err error) {
			if err != nil {
				t.Errorf("export failed: %v", err)
			}
			done <- outPath
		})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	got := <-done
	want := filepath.Join(outDir, "Song Speed 0.80x Reverb 40%.wav")
	if got != want {
		t.Errorf("output path = %q, want %q", got, want)
	}
}

func TestExportIgnoresStraySegmentCompletion(t *testing.T) {
	engine, _, _ := newTestEngine(t, Options{})
	path := writeTestWAV(t, t.TempDir(), "Song.wav", 6000)
	if _, err := engine.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	gen := engine.graph.Generation()

	release := make(chan struct{})
	var once sync.Once
	done := make(chan error, 1)
	err := engine.Export(api.ExportSettings{Directory: t.TempDir()},
		func(float64) { once.Do(func() { <-release }) },
		func(_ string, err error) { done <- err })
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	// The worker owns the graph for the whole job, so a realtime segment
	// completion arriving mid-export must be dropped without the command
	// loop touching the graph.
	engine.commands <- command{kind: cmdSegmentDone, payload: gen}
	if got := engine.State().Status; got != api.StatusExporting {
		t.Fatalf("Status = %v mid-export, want Exporting", got)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("export failed: %v", err)
	}
	state := engine.State()
	if state.Status != api.StatusReady || state.Position != 0 {
		t.Errorf("post-export state = %v at %v, want Ready at 0", state.Status, state.Position)
	}
}

func TestExportRefusedWhileExporting(t *testing.T) {
	engine, _, _ := newTestEngine(t, Options{})
	path := writeTestWAV(t, t.TempDir(), "Song.wav", 4000)
	if _, err := engine.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Drive the state machine directly on the owning goroutine's behalf:
	// beginExport flips to exporting before any rendering happens, so a
	// second request must be refused deterministically.
	e := engine
	resp := e.roundTrip(cmdExport, exportRequest{settings: api.ExportSettings{Directory: t.TempDir()}})
	if resp.err != nil {
		t.Fatalf("first export refused: %v", resp.err)
	}

	err := engine.Export(api.ExportSettings{Directory: t.TempDir()}, nil, nil)
	if err != nil && !errors.Is(err, engerrors.ErrExportInProgress) {
		t.Errorf("second export = %v, want ErrExportInProgress or nil after completion", err)
	}

	waitFor(t, "export settles", func() bool {
		return engine.State().Status == api.StatusReady
	})
}

func TestQuantizeClamps(t *testing.T) {
	scale := float64(1<<15) - 1

	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{1, int(scale)},
		{-1, -int(scale)},
		{1.5, int(scale)},
		{-2, -int(scale)},
		{0.5, int(0.5 * scale)},
	}
	for _, tt := range tests {
		if got := quantize(tt.in, scale); got != tt.want {
			t.Errorf("quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
