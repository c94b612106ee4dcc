package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the synthesis pipeline. Per-backend failures are
// recovered inside the fallback chain; only ErrInvalidInput and the terminal
// AllBackendsFailedError reach the caller.
var (
	// ErrInvalidInput indicates the request text is empty or unusable.
	ErrInvalidInput = errors.New("text is empty or unusable")

	// ErrBackendUnavailable indicates a backend could not be reached or loaded.
	ErrBackendUnavailable = errors.New("synthesis backend unavailable")

	// ErrBackendTimeout indicates a backend attempt exceeded its time budget.
	ErrBackendTimeout = errors.New("synthesis backend timed out")

	// ErrUnsupportedInput indicates a backend rejected this particular text.
	ErrUnsupportedInput = errors.New("backend cannot synthesize this input")

	// ErrCacheStore indicates the byte store failed while writing audio.
	ErrCacheStore = errors.New("cache store write failed")

	// ErrAllBackendsFailed indicates every backend in the chain failed.
	ErrAllBackendsFailed = errors.New("all synthesis backends failed")

	// ErrDuplicateBackend indicates a backend ID was registered twice.
	ErrDuplicateBackend = errors.New("backend already registered")

	// ErrUnknownBackend indicates a backend ID is not in the registry.
	ErrUnknownBackend = errors.New("unknown backend")
)

// ErrorKind classifies a failed synthesis attempt for the attempt log.
type ErrorKind string

const (
	ErrorKindUnavailable ErrorKind = "UNAVAILABLE"
	ErrorKindTimeout     ErrorKind = "TIMEOUT"
	ErrorKindUnsupported ErrorKind = "UNSUPPORTED"
	ErrorKindInternal    ErrorKind = "INTERNAL"
)

// Systemic reports whether this kind of failure indicates the backend itself
// is unhealthy, as opposed to rejecting one particular request.
func (k ErrorKind) Systemic() bool {
	switch k {
	case ErrorKindUnavailable, ErrorKindTimeout:
		return true
	default:
		return false
	}
}

// classifyError maps an attempt error to its kind.
func classifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrBackendTimeout) || errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, ErrBackendUnavailable):
		return ErrorKindUnavailable
	case errors.Is(err, ErrUnsupportedInput):
		return ErrorKindUnsupported
	default:
		return ErrorKindInternal
	}
}

// AllBackendsFailedError is the terminal failure of a fallback chain. It
// carries the ordered per-backend attempt log for diagnostics and the original
// request text so callers can fall back to displaying it.
type AllBackendsFailedError struct {
	Text     string
	Attempts []Attempt
}

// Error implements the error interface.
func (e *AllBackendsFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all synthesis backends failed: no backend available"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.BackendID, a.Kind))
	}
	return fmt.Sprintf("all synthesis backends failed after %d attempts (%s)",
		len(e.Attempts), strings.Join(parts, ", "))
}

// Unwrap lets errors.Is match against ErrAllBackendsFailed.
func (e *AllBackendsFailedError) Unwrap() error {
	return ErrAllBackendsFailed
}
