package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNoSourceLoaded   = errors.New("no source loaded")
	ErrInvalidFormat    = errors.New("unsupported audio format")
	ErrSeekOutOfBounds  = errors.New("seek position out of bounds")
	ErrExportInProgress = errors.New("export already in progress")
	ErrEngineBusy       = errors.New("engine is busy exporting")
	ErrInvalidParams    = errors.New("effect parameters out of range")
	ErrInvalidVolume    = errors.New("volume must be between 0.0 and 1.0")
	ErrEndOfQueue       = errors.New("no more tracks in queue")
	ErrTransportFailed  = errors.New("transport failed to start")
	ErrRenderingFailed  = errors.New("offline rendering failed")
	ErrEncodingFailed   = errors.New("output encoding failed")
)

// EngineError wraps errors with the operation and track context in which
// they occurred.
type EngineError struct {
	Op    string // Operation that failed
	Track string // Track title or path if applicable
	Err   error  // Underlying error
}

func (e *EngineError) Error() string {
	if e.Track != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Track, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError
func NewEngineError(op, track string, err error) *EngineError {
	return &EngineError{Op: op, Track: track, Err: err}
}

// ExportError marks a terminal export failure. Kind is one of
// ErrRenderingFailed or ErrEncodingFailed so callers can match the phase
// with errors.Is, and Err carries the underlying cause.
type ExportError struct {
	Kind error
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func (e *ExportError) Is(target error) bool {
	return target == e.Kind
}
