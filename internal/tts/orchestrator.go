package tts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vietvoice/vietvoice/internal/cache"
	"github.com/vietvoice/vietvoice/internal/normalizer"
	"github.com/vietvoice/vietvoice/internal/ttypes"
)

// Orchestrator runs the synthesis pipeline: normalize, look up the cache,
// and on a miss walk the registered backends in priority order until one
// produces audio. Safe for concurrent use.
type Orchestrator struct {
	cfg      Config
	norm     *normalizer.Normalizer
	registry *Registry
	cache    *cache.Cache
	metrics  *MetricsCollector
	logger   *log.Logger

	mu       sync.RWMutex
	backends map[string]ttypes.Backend
}

// New creates an orchestrator. The metrics collector may be nil.
func New(cfg Config, norm *normalizer.Normalizer, registry *Registry, audioCache *cache.Cache, metrics *MetricsCollector, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		norm:     norm,
		registry: registry,
		cache:    audioCache,
		metrics:  metrics,
		logger:   logger,
		backends: make(map[string]ttypes.Backend),
	}
}

// RegisterBackend adds a backend and its descriptor to the fallback chain.
func (o *Orchestrator) RegisterBackend(desc Descriptor, backend ttypes.Backend) error {
	if backend == nil {
		return fmt.Errorf("backend '%s' is nil", desc.ID)
	}
	if err := o.registry.Register(desc); err != nil {
		return err
	}
	o.mu.Lock()
	o.backends[desc.ID] = backend
	o.mu.Unlock()
	return nil
}

// Registry returns the backend registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Cache returns the audio cache.
func (o *Orchestrator) Cache() *cache.Cache {
	return o.cache
}

// Metrics returns the metrics collector, which may be nil.
func (o *Orchestrator) Metrics() *MetricsCollector {
	return o.metrics
}

// DescribeBackend returns the catalog entry for one registered backend.
func (o *Orchestrator) DescribeBackend(id string) (BackendInfo, error) {
	info, ok := o.registry.Describe(id)
	if !ok {
		return BackendInfo{}, fmt.Errorf("%w: '%s'", ErrUnknownBackend, id)
	}
	return info, nil
}

// DescribeBackends returns the catalog entries for every registered backend
// in priority order.
func (o *Orchestrator) DescribeBackends() []BackendInfo {
	return o.registry.DescribeAll()
}

// Generate converts raw text to audio. The cache-hit path never invokes a
// backend; on a miss, concurrent requests for the same key share a single
// synthesis through the fallback chain.
func (o *Orchestrator) Generate(ctx context.Context, rawText string, voice ttypes.VoiceConfig) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(rawText) == "" {
		err := fmt.Errorf("%w: nothing to synthesize", ErrInvalidInput)
		o.metrics.RecordRequest(nil, err)
		return nil, err
	}
	voice = voice.Clamped()

	canonical := o.norm.Normalize(rawText)
	if canonical == "" {
		err := fmt.Errorf("%w: text has no speakable content", ErrInvalidInput)
		o.metrics.RecordRequest(nil, err)
		return nil, err
	}
	key := cache.Key(canonical, voice)

	if entry, ok := o.cache.Get(key); ok {
		result := &Result{
			Audio:         entry.Audio,
			BackendID:     entry.BackendID,
			CacheHit:      true,
			CanonicalText: canonical,
			Duration:      time.Since(start),
		}
		o.logger.Debug("cache hit", "key", key, "backend", entry.BackendID)
		o.metrics.RecordRequest(result, nil)
		return result, nil
	}

	// attempts is filled only when this caller wins the flight; waiters
	// share the winner's entry but not its attempt log.
	var attempts []Attempt
	var hitInFlight bool
	entry, _, err := o.cache.Flight(key, func() (*cache.Entry, error) {
		// Another caller may have finished between our miss and entering
		// the flight.
		if entry, ok := o.cache.Get(key); ok {
			hitInFlight = true
			return entry, nil
		}
		return o.synthesize(ctx, rawText, canonical, voice, key, &attempts)
	})
	if err != nil {
		o.metrics.RecordRequest(nil, err)
		return nil, err
	}

	result := &Result{
		Audio:         entry.Audio,
		BackendID:     entry.BackendID,
		CacheHit:      hitInFlight,
		CanonicalText: canonical,
		Attempts:      attempts,
		Duration:      time.Since(start),
	}
	o.metrics.RecordRequest(result, nil)
	return result, nil
}

// synthesize walks the fallback chain for one cache key. Exactly one caller
// per key runs this at a time.
func (o *Orchestrator) synthesize(ctx context.Context, rawText, canonical string, voice ttypes.VoiceConfig, key string, attempts *[]Attempt) (*cache.Entry, error) {
	for _, desc := range o.chain(voice.PreferredBackend) {
		// Too-long text is a skip, not a failure: the backend never saw
		// the request.
		if desc.MaxTextLength > 0 && len(canonical) > desc.MaxTextLength {
			o.logger.Debug("skipping backend, text too long",
				"backend", desc.ID,
				"textLength", len(canonical),
				"max", desc.MaxTextLength)
			continue
		}

		o.mu.RLock()
		backend, ok := o.backends[desc.ID]
		o.mu.RUnlock()
		if !ok {
			continue
		}

		firstUse := desc.State == StateUnloaded
		if firstUse {
			o.registry.MarkLoading(desc.ID)
		}

		attemptStart := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		audio, err := backend.Synthesize(attemptCtx, canonical, voice)
		cancel()
		duration := time.Since(attemptStart)
		o.metrics.RecordAttempt(desc.ID, err)

		if err == nil {
			o.registry.MarkReady(desc.ID)
			if perr := o.cache.Put(key, audio, desc.ID); perr != nil {
				// Caching is an optimization; the audio is still served.
				o.logger.Warn("audio not cached",
					"key", key,
					"error", fmt.Errorf("%w: %v", ErrCacheStore, perr))
			}
			o.logger.Info("synthesis complete",
				"backend", desc.ID,
				"bytes", len(audio),
				"duration", duration)
			return &cache.Entry{
				Key:       key,
				Audio:     audio,
				Size:      int64(len(audio)),
				BackendID: desc.ID,
				CreatedAt: time.Now(),
			}, nil
		}

		kind := classifyError(err)
		*attempts = append(*attempts, Attempt{
			BackendID: desc.ID,
			Kind:      kind,
			Err:       err,
			Duration:  duration,
		})
		if kind.Systemic() {
			o.registry.MarkFailed(desc.ID, o.cfg.CoolDown)
		} else if firstUse {
			// A per-request rejection says nothing about the backend's
			// health; put the first-use state back so it is not stuck
			// in loading.
			o.registry.MarkUnloaded(desc.ID)
		}
		o.logger.Warn("backend attempt failed",
			"backend", desc.ID,
			"kind", kind,
			"duration", duration,
			"error", err)

		// The caller is gone; further attempts would fail the same way.
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &AllBackendsFailedError{Text: rawText, Attempts: *attempts}
}

// chain returns the backends to try, in order. A preferred backend is a soft
// preference: it moves to the front when eligible, and an ineligible one is
// attempted anyway only when nothing else is available.
func (o *Orchestrator) chain(preferred string) []Descriptor {
	list := o.registry.List()
	if preferred == "" {
		return list
	}
	for i, d := range list {
		if d.ID == preferred {
			if i > 0 {
				reordered := make([]Descriptor, 0, len(list))
				reordered = append(reordered, d)
				reordered = append(reordered, list[:i]...)
				reordered = append(reordered, list[i+1:]...)
				return reordered
			}
			return list
		}
	}
	if len(list) == 0 {
		if d, ok := o.registry.Get(preferred); ok {
			return []Descriptor{d}
		}
	}
	return list
}

// Close shuts down all registered backends.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []string
	for id, backend := range o.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("backend shutdown: %s", strings.Join(errs, "; "))
	}
	return nil
}
