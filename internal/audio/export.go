package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/slowverb/slowverb/api"
	engerrors "github.com/slowverb/slowverb/pkg/errors"
)

// exportPullFrames is the maximum frame count requested per manual render
// pull while the graph is in offline mode.
const exportPullFrames = 4096

// ExportFileName derives the output name (without extension) from the
// source title and the non-default effect parameters baked into the render.
// Path separators are sanitized out of the title.
func ExportFileName(title string, params api.EffectParams, mode api.RateMode) string {
	name := strings.ReplaceAll(title, "/", "-")
	if params.Rate != 1.0 {
		name += fmt.Sprintf(" Speed %.2fx", params.Rate)
	}
	if mode == api.RateLinked {
		name += " HQ"
	} else if params.PitchCents != 0 {
		name += fmt.Sprintf(" Pitch %+dst", int(math.Round(params.PitchCents/100)))
	}
	if params.ReverbMix != 0 {
		name += fmt.Sprintf(" Reverb %d%%", int(params.ReverbMix))
	}
	return name
}

// beginExport validates and accepts an export job, flips the engine into
// the exporting state and hands the graph to a worker goroutine. Runs on
// the owning goroutine.
func (e *Engine) beginExport(req exportRequest) error {
	if e.status == api.StatusUnloaded {
		return engerrors.ErrNoSourceLoaded
	}
	if e.exporting {
		return engerrors.ErrExportInProgress
	}

	if req.settings.BitDepth != 16 && req.settings.BitDepth != 24 {
		req.settings.BitDepth = 16
	}
	if req.settings.Directory == "" {
		req.settings.Directory = e.exportTo
	}
	if req.settings.Directory == "" {
		req.settings.Directory = filepath.Dir(e.track.FilePath)
	}

	e.graph.PauseTransport()
	e.pausedFrame = 0
	e.exporting = true
	e.status = api.StatusExporting
	e.publishState()

	// The worker owns the graph until it posts cmdExportDone; every other
	// command is refused while the status is Exporting.
	go e.runExport(req)
	return nil
}

// runExport drives the offline render on a background goroutine and posts
// the outcome back into the command loop.
func (e *Engine) runExport(req exportRequest) {
	path, err := e.renderOffline(req)
	e.commands <- command{kind: cmdExportDone, payload: exportOutcome{
		request:    req,
		outputPath: path,
		err:        err,
	}}
}

// renderOffline switches the graph into manual rendering mode and pulls the
// whole source through the configured effect chain into a WAV encoder.
func (e *Engine) renderOffline(req exportRequest) (string, error) {
	src := e.graph.Source()
	if err := e.graph.BeginOffline(); err != nil {
		return "", &engerrors.ExportError{Kind: engerrors.ErrRenderingFailed, Err: err}
	}

	name := ExportFileName(e.track.Title, e.params, e.mode) + ".wav"
	outPath := filepath.Join(req.settings.Directory, name)

	f, err := os.Create(outPath)
	if err != nil {
		return "", &engerrors.ExportError{Kind: engerrors.ErrEncodingFailed, Err: err}
	}

	sampleRate := int(src.SampleRate())
	bitDepth := req.settings.BitDepth
	enc := wav.NewEncoder(f, sampleRate, bitDepth, 2, 1)

	buf := make([][2]float64, exportPullFrames)
	intBuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, 0, exportPullFrames*2),
	}
	scale := float64(int(1)<<(bitDepth-1)) - 1

	total := src.Len()
	rendered := 0
	var fatal error

	for rendered < total {
		want := total - rendered
		if want > exportPullFrames {
			want = exportPullFrames
		}

		n, ok := e.graph.PullOffline(buf[:want])
		if n > 0 {
			intBuf.Data = intBuf.Data[:n*2]
			for i := 0; i < n; i++ {
				intBuf.Data[2*i] = quantize(buf[i][0], scale)
				intBuf.Data[2*i+1] = quantize(buf[i][1], scale)
			}
			if err := enc.Write(intBuf); err != nil {
				fatal = &engerrors.ExportError{Kind: engerrors.ErrEncodingFailed, Err: err}
				break
			}
			rendered += n
			progress := float64(rendered) / float64(total)
			if req.onProgress != nil {
				req.onProgress(progress)
			}
			e.bus.Publish(api.Event{Type: api.EventExportProgress, Payload: progress})
		}
		if !ok {
			if serr := e.graph.OfflineErr(); serr != nil {
				fatal = &engerrors.ExportError{Kind: engerrors.ErrRenderingFailed, Err: serr}
			}
			// A clean drain before the expected frame count is still a
			// completed render: the rate stage shortens or stretches the
			// output relative to the source length.
			break
		}
		// n == 0 with ok means the chain had nothing ready this pull;
		// retry without consuming anything.
	}

	if err := enc.Close(); err != nil && fatal == nil {
		fatal = &engerrors.ExportError{Kind: engerrors.ErrEncodingFailed, Err: err}
	}
	if err := f.Close(); err != nil && fatal == nil {
		fatal = &engerrors.ExportError{Kind: engerrors.ErrEncodingFailed, Err: err}
	}

	if fatal != nil {
		os.Remove(outPath)
		return "", fatal
	}
	return outPath, nil
}

// finishExport restores the graph to realtime playback. Runs on the owning
// goroutine; the restore happens whether the render succeeded or not, so a
// failed export never leaves playback unusable.
func (e *Engine) finishExport(out exportOutcome) {
	if err := e.graph.EndOffline(); err != nil {
		e.bus.Publish(api.Event{Type: api.EventError, Payload: err})
	}
	e.exporting = false
	e.status = api.StatusReady
	e.pausedFrame = 0
	e.pendingReschedule = false
	e.publishState()

	if out.err != nil {
		if out.request.onComplete != nil {
			out.request.onComplete("", out.err)
		}
		e.bus.Publish(api.Event{Type: api.EventExportDone, Payload: api.ExportResult{Err: out.err}})
		return
	}

	// Second pass: embed metadata into the produced file. Best-effort and
	// off the owning goroutine; on failure the effects-only file stands.
	meta := e.meta
	track := e.track
	bus := e.bus
	onComplete := out.request.onComplete
	go func() {
		if meta != nil {
			_ = meta.Write(out.outputPath, track)
		}
		if onComplete != nil {
			onComplete(out.outputPath, nil)
		}
		bus.Publish(api.Event{Type: api.EventExportDone, Payload: api.ExportResult{OutputPath: out.outputPath}})
	}()
}

func quantize(v, scale float64) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(v * scale)
}
