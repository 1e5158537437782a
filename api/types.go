package api

import "time"

// Track holds the metadata captured once when a source file is loaded.
type Track struct {
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Album    string        `json:"album"`
	Duration time.Duration `json:"duration"`
	FilePath string        `json:"file_path"`
	CoverArt []byte        `json:"-"`
}

// RateMode selects which tempo/pitch stage drives the processing graph.
type RateMode int

const (
	// RateIndependent stretches tempo and shifts pitch as two free parameters.
	RateIndependent RateMode = iota
	// RateLinked changes speed by resampling; pitch follows the rate.
	RateLinked
)

func (m RateMode) String() string {
	switch m {
	case RateIndependent:
		return "independent"
	case RateLinked:
		return "linked"
	default:
		return "unknown"
	}
}

// ParseRateMode maps a config string to a RateMode. Unknown values fall
// back to RateIndependent.
func ParseRateMode(s string) RateMode {
	if s == "linked" {
		return RateLinked
	}
	return RateIndependent
}

// Effect parameter limits.
const (
	MinRate       = 0.5
	MaxRate       = 2.0
	MinPitchCents = -1200
	MaxPitchCents = 1200
	MinBandGainDB = -12.0
	MaxBandGainDB = 12.0
)

// EffectParams is the full set of continuous effect controls. All fields are
// applied to the live graph; PitchCents is only audible in independent mode.
type EffectParams struct {
	Rate       float64    `json:"rate"`               // 0.5 .. 2.0
	PitchCents float64    `json:"pitch_cents"`        // -1200 .. 1200
	ReverbMix  float64    `json:"reverb_mix_percent"` // 0 .. 100
	BandGains  [3]float64 `json:"band_gains_db"`      // low/mid/high, each -12 .. +12
}

// DefaultEffectParams returns the neutral parameter set.
func DefaultEffectParams() EffectParams {
	return EffectParams{Rate: 1.0}
}

// Valid reports whether every parameter is inside its documented range.
func (p EffectParams) Valid() bool {
	if p.Rate < MinRate || p.Rate > MaxRate {
		return false
	}
	if p.PitchCents < MinPitchCents || p.PitchCents > MaxPitchCents {
		return false
	}
	if p.ReverbMix < 0 || p.ReverbMix > 100 {
		return false
	}
	for _, g := range p.BandGains {
		if g < MinBandGainDB || g > MaxBandGainDB {
			return false
		}
	}
	return true
}

// PlaybackStatus is the authoritative high-level engine state.
type PlaybackStatus int

const (
	StatusUnloaded PlaybackStatus = iota
	StatusReady
	StatusPlaying
	StatusExporting
)

func (s PlaybackStatus) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusExporting:
		return "exporting"
	default:
		return "unknown"
	}
}

// PlaybackState is the snapshot the engine hands out to observers.
type PlaybackState struct {
	Status       PlaybackStatus
	CurrentTrack *Track
	Position     time.Duration
	Volume       float64
	Params       EffectParams
	Mode         RateMode
}

// NowPlaying is the status snapshot pushed outward after every transport
// command. EffectiveRate is zero whenever the transport is not literally
// running, regardless of what Status claims.
type NowPlaying struct {
	Title         string
	Artist        string
	ArtworkRef    []byte
	Elapsed       float64 // seconds
	Duration      float64 // seconds
	EffectiveRate float64
}

// ExportSettings selects the output container parameters for an offline
// render.
type ExportSettings struct {
	Directory string
	BitDepth  int // 16 or 24
}

// Event is a single engine notification.
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventType identifies engine events on the bus.
type EventType int

const (
	EventTrackLoaded EventType = iota
	EventTrackEnded
	EventStateChange
	EventPositionUpdate
	EventNowPlaying
	EventExportProgress
	EventExportDone
	EventError
)

// ExportResult is the terminal payload of EventExportDone.
type ExportResult struct {
	OutputPath string
	Err        error
}
