// Package tts implements the synthesis orchestration core: a registry of
// ranked backends, a fallback chain that tries them in priority order, and
// the glue between text normalization and the audio cache.
package tts

import (
	"time"

	"github.com/vietvoice/vietvoice/internal/ttypes"
)

// LoadState tracks a backend's lifecycle in the registry.
type LoadState int

const (
	// StateUnloaded indicates the backend has never been used.
	StateUnloaded LoadState = iota

	// StateLoading indicates a first use is in progress.
	StateLoading

	// StateReady indicates the backend has synthesized successfully.
	StateReady

	// StateFailed indicates the last use failed systemically; the backend
	// sits out its cool-down window before being retried.
	StateFailed
)

// String returns the string representation of the state.
func (s LoadState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Descriptor describes one registered backend: its identity, rank in the
// fallback chain and current health.
type Descriptor struct {
	// ID uniquely identifies the backend.
	ID string

	// Priority ranks the backend in the fallback chain; lower is tried
	// first. Ties are broken by registration order.
	Priority int

	// Capabilities advertises what the backend can do.
	Capabilities ttypes.Capabilities

	// MaxTextLength is the longest canonical text the backend accepts, in
	// bytes. Zero means unlimited.
	MaxTextLength int

	// State is the backend's current load state.
	State LoadState

	// RetryAt is when a failed backend leaves its cool-down window.
	// Zero unless State is StateFailed.
	RetryAt time.Time
}

// BackendInfo is one catalog entry: a backend's identity and rank plus the
// human-facing metadata its implementation advertises.
type BackendInfo struct {
	// ID uniquely identifies the backend.
	ID string

	// Name is the human-readable backend name.
	Name string

	// QualityTier is the fidelity tier the backend delivers.
	QualityTier ttypes.Quality

	// Offline reports whether the backend works without a network.
	Offline bool

	// SampleRate is the output sample rate in Hz.
	SampleRate int

	// Priority is the backend's rank in the fallback chain.
	Priority int

	// MaxTextLength is the longest accepted canonical text in bytes.
	// Zero means unlimited.
	MaxTextLength int

	// State is the backend's current load state.
	State LoadState

	// RetryAt is when a failed backend leaves its cool-down window.
	RetryAt time.Time
}

// Attempt records one backend invocation inside a fallback chain, for the
// terminal error's diagnostics and for metrics.
type Attempt struct {
	// BackendID identifies the backend that was tried.
	BackendID string

	// Kind classifies why the attempt failed.
	Kind ErrorKind

	// Err is the underlying attempt error.
	Err error

	// Duration is how long the attempt took.
	Duration time.Duration
}

// Result is a completed synthesis: the audio plus its provenance.
type Result struct {
	// Audio is the synthesized audio bytes.
	Audio []byte

	// BackendID is the backend that produced the audio, possibly on an
	// earlier request if CacheHit is set.
	BackendID string

	// CacheHit reports whether the audio came from the cache.
	CacheHit bool

	// CanonicalText is the normalized text that was synthesized.
	CanonicalText string

	// Attempts is the chain's attempt log. Empty on a cache hit and for
	// callers that waited on another request's in-flight synthesis.
	Attempts []Attempt

	// Duration is the total time spent serving the request.
	Duration time.Duration
}
