package audio

import (
	"os"

	"github.com/faiface/beep"
	"github.com/slowverb/slowverb/api"
	"github.com/slowverb/slowverb/internal/media"
	engerrors "github.com/slowverb/slowverb/pkg/errors"
)

// Source is an opened audio file together with the metadata captured at
// load time. Length and sample rate are fixed once the file is open;
// loading a new file replaces the Source wholesale.
type Source struct {
	file   *os.File
	stream beep.StreamSeekCloser
	format beep.Format
	track  api.Track
}

// OpenSource opens and decodes path and reads its tags.
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, engerrors.NewEngineError("open", path, err)
	}

	stream, format, err := DecodeAudio(f, path)
	if err != nil {
		f.Close()
		return nil, engerrors.NewEngineError("decode", path, err)
	}

	track := media.ReadTrack(path)
	track.Duration = format.SampleRate.D(stream.Len())

	return &Source{
		file:   f,
		stream: stream,
		format: format,
		track:  track,
	}, nil
}

// NewSourceFromStream wraps an already decoded stream. Used by the export
// second pass and by tests; file-backed sources come from OpenSource.
func NewSourceFromStream(stream beep.StreamSeekCloser, format beep.Format, track api.Track) *Source {
	track.Duration = format.SampleRate.D(stream.Len())
	return &Source{stream: stream, format: format, track: track}
}

// Len returns the source length in frames.
func (s *Source) Len() int { return s.stream.Len() }

// SampleRate returns the source sample rate in Hz.
func (s *Source) SampleRate() beep.SampleRate { return s.format.SampleRate }

// Format returns the processing format every stage connection must match.
func (s *Source) Format() beep.Format { return s.format }

// Track returns the metadata captured at load time.
func (s *Source) Track() api.Track { return s.track }

// Close releases the decoder and the underlying file.
func (s *Source) Close() error {
	err := s.stream.Close()
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
