// Package mock provides a synthesis backend for testing. Its audio output is
// deterministic ("<id>:<text>"), so tests can assert provenance and
// byte-identity without decoding anything.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/vietvoice/vietvoice/internal/ttypes"
)

// Backend implements ttypes.Backend for testing.
type Backend struct {
	id string

	mu       sync.Mutex
	delay    time.Duration
	failWith error // persistent failure when set
	failNext int   // fail this many calls with failWith
	calls    int
}

// New creates a mock backend with the given ID.
func New(id string) *Backend {
	return &Backend{id: id}
}

// SetDelay makes every synthesis take at least d.
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// FailWith makes every synthesis fail with err until called with nil.
func (b *Backend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = err
	b.failNext = 0
}

// FailNext makes the next n syntheses fail with err, then recover.
func (b *Backend) FailNext(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = err
	b.failNext = n
}

// Calls returns how many times Synthesize was invoked.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// ID returns the backend identifier.
func (b *Backend) ID() string {
	return b.id
}

// Capabilities returns what this backend can do.
func (b *Backend) Capabilities() ttypes.Capabilities {
	return ttypes.Capabilities{
		Name:        "Mock (" + b.id + ")",
		QualityTier: ttypes.QualityFast,
		SampleRate:  22050,
	}
}

// Synthesize returns deterministic audio bytes for text.
func (b *Backend) Synthesize(ctx context.Context, text string, voice ttypes.VoiceConfig) ([]byte, error) {
	b.mu.Lock()
	b.calls++
	delay := b.delay
	var err error
	if b.failWith != nil {
		err = b.failWith
		if b.failNext > 0 {
			b.failNext--
			if b.failNext == 0 {
				b.failWith = nil
			}
		}
	}
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte(b.id + ":" + text), nil
}

// Validate always succeeds.
func (b *Backend) Validate() error {
	return nil
}

// Close always succeeds.
func (b *Backend) Close() error {
	return nil
}

var _ ttypes.Backend = (*Backend)(nil)
