// Package ttypes contains shared types and interfaces for the synthesis system.
// This package is used to break import cycles between the tts, engines, and cache packages.
package ttypes

import (
	"context"
)

// Quality selects the speed/fidelity trade-off for synthesis.
type Quality string

const (
	// QualityFast prefers low latency over fidelity.
	QualityFast Quality = "fast"

	// QualityBalanced is the default trade-off.
	QualityBalanced Quality = "balanced"

	// QualityHigh prefers fidelity over latency.
	QualityHigh Quality = "high"
)

// Valid reports whether the quality value is one of the known tiers.
func (q Quality) Valid() bool {
	switch q {
	case QualityFast, QualityBalanced, QualityHigh:
		return true
	}
	return false
}

// Speed limits for voice configuration.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// VoiceConfig describes a synthesis intent. Together with the canonical text
// it identifies the audio to produce. It is treated as an immutable value.
type VoiceConfig struct {
	// Speed is the speech rate multiplier (1.0 = normal).
	Speed float64

	// Pitch is the pitch adjustment (0.0 = neutral).
	Pitch float64

	// PreferredBackend, when set, moves that backend to the front of the
	// fallback chain. It is a soft preference, not a hard requirement.
	PreferredBackend string

	// Quality selects the fidelity tier.
	Quality Quality
}

// DefaultVoiceConfig returns a neutral voice configuration.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		Speed:   1.0,
		Pitch:   0.0,
		Quality: QualityBalanced,
	}
}

// Clamped returns a copy with out-of-range fields forced into their valid
// ranges and an empty quality replaced by the balanced tier.
func (v VoiceConfig) Clamped() VoiceConfig {
	if v.Speed < MinSpeed {
		v.Speed = MinSpeed
	}
	if v.Speed > MaxSpeed {
		v.Speed = MaxSpeed
	}
	if !v.Quality.Valid() {
		v.Quality = QualityBalanced
	}
	return v
}

// Capabilities describes what a synthesis backend can do and how it presents
// itself in catalogs.
type Capabilities struct {
	Name            string  // Human-readable backend name
	QualityTier     Quality // Fidelity tier the backend delivers
	Streaming       bool    // Can deliver audio incrementally
	VoiceCloning    bool    // Can mimic a reference voice
	RequiresNetwork bool    // Needs internet connection
	SampleRate      int     // Output sample rate in Hz
}

// Backend is the single invocation contract every synthesis capability
// provider implements, whether a locally loaded model or a cloud call.
type Backend interface {
	// ID returns the unique backend identifier.
	ID() string

	// Capabilities returns what the backend can do.
	Capabilities() Capabilities

	// Synthesize converts canonical text to audio bytes. Implementations
	// must honor ctx cancellation; the caller applies the per-attempt
	// timeout.
	Synthesize(ctx context.Context, text string, voice VoiceConfig) ([]byte, error)

	// Validate checks that the backend is properly configured (model files,
	// API keys, binaries). Called once before the backend's first use.
	Validate() error

	// Close releases any resources held by the backend.
	Close() error
}
