package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vietvoice/vietvoice/internal/cache"
	"github.com/vietvoice/vietvoice/internal/normalizer"
	"github.com/vietvoice/vietvoice/internal/tts/engines/mock"
	"github.com/vietvoice/vietvoice/internal/ttypes"
)

func testOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	logger := log.New(io.Discard)
	cfg := DefaultConfig()
	cfg.AttemptTimeout = 2 * time.Second
	cfg.CoolDown = 100 * time.Millisecond
	audioCache := cache.New(cache.NewMemoryStore(), 1<<20, logger)
	return New(cfg, normalizer.New(), NewRegistry(logger), audioCache, NewMetricsCollector(), logger)
}

func mustRegister(t *testing.T, o *Orchestrator, desc Descriptor, b ttypes.Backend) {
	t.Helper()
	if err := o.RegisterBackend(desc, b); err != nil {
		t.Fatalf("RegisterBackend(%s) failed: %v", desc.ID, err)
	}
}

func TestGenerateInvalidInput(t *testing.T) {
	o := testOrchestrator(t)
	mustRegister(t, o, Descriptor{ID: "a", Priority: 1}, mock.New("a"))

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := o.Generate(context.Background(), text, ttypes.DefaultVoiceConfig()); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Generate(%q) error = %v, want ErrInvalidInput", text, err)
		}
	}
}

func TestGenerateCacheHit(t *testing.T) {
	o := testOrchestrator(t)
	backend := mock.New("a")
	mustRegister(t, o, Descriptor{ID: "a", Priority: 1}, backend)

	voice := ttypes.DefaultVoiceConfig()
	first, err := o.Generate(context.Background(), "Xin chào Hà Nội", voice)
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	if first.CacheHit {
		t.Error("first call should not be a cache hit")
	}
	if first.BackendID != "a" {
		t.Errorf("provenance = %s, want a", first.BackendID)
	}

	second, err := o.Generate(context.Background(), "Xin chào Hà Nội", voice)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if !second.CacheHit {
		t.Error("second call should be a cache hit")
	}
	if !bytes.Equal(first.Audio, second.Audio) {
		t.Error("cached audio differs from synthesized audio")
	}
	if backend.Calls() != 1 {
		t.Errorf("backend invoked %d times, want 1: the hit path must not synthesize", backend.Calls())
	}
}

func TestGenerateVoiceAffectsKey(t *testing.T) {
	o := testOrchestrator(t)
	backend := mock.New("a")
	mustRegister(t, o, Descriptor{ID: "a", Priority: 1}, backend)

	slow := ttypes.VoiceConfig{Speed: 0.8, Quality: ttypes.QualityBalanced}
	fast := ttypes.VoiceConfig{Speed: 1.5, Quality: ttypes.QualityBalanced}

	if _, err := o.Generate(context.Background(), "chào", slow); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Generate(context.Background(), "chào", fast); err != nil {
		t.Fatal(err)
	}
	if backend.Calls() != 2 {
		t.Errorf("different voice configs must synthesize separately, got %d calls", backend.Calls())
	}
}

func TestGenerateSingleFlight(t *testing.T) {
	o := testOrchestrator(t)
	backend := mock.New("a")
	backend.SetDelay(50 * time.Millisecond)
	mustRegister(t, o, Descriptor{ID: "a", Priority: 1}, backend)

	const workers = 8
	voice := ttypes.DefaultVoiceConfig()
	results := make([]*Result, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := o.Generate(context.Background(), "Đà Nẵng", voice)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	if backend.Calls() != 1 {
		t.Errorf("backend invoked %d times for one key, want 1", backend.Calls())
	}
	for i := 1; i < workers; i++ {
		if results[i] == nil || results[0] == nil {
			continue
		}
		if !bytes.Equal(results[i].Audio, results[0].Audio) {
			t.Errorf("worker %d observed different audio", i)
		}
	}
}

func TestGenerateFallbackOrder(t *testing.T) {
	o := testOrchestrator(t)
	primary := mock.New("primary")
	primary.FailWith(fmt.Errorf("%w: connection refused", ErrBackendUnavailable))
	secondary := mock.New("secondary")
	mustRegister(t, o, Descriptor{ID: "primary", Priority: 1}, primary)
	mustRegister(t, o, Descriptor{ID: "secondary", Priority: 2}, secondary)

	voice := ttypes.DefaultVoiceConfig()
	result, err := o.Generate(context.Background(), "Huế", voice)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.BackendID != "secondary" {
		t.Errorf("provenance = %s, want secondary", result.BackendID)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("attempt log length = %d, want 1", len(result.Attempts))
	}
	if a := result.Attempts[0]; a.BackendID != "primary" || a.Kind != ErrorKindUnavailable {
		t.Errorf("attempt = %+v, want primary/UNAVAILABLE", a)
	}

	// Inside the cool-down window the failed backend is skipped entirely.
	primaryCalls := primary.Calls()
	if _, err := o.Generate(context.Background(), "Nha Trang", voice); err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if primary.Calls() != primaryCalls {
		t.Error("backend in cool-down must not be invoked")
	}

	// After the window it is retried.
	primary.FailWith(nil)
	time.Sleep(150 * time.Millisecond)
	result, err = o.Generate(context.Background(), "Cần Thơ", voice)
	if err != nil {
		t.Fatalf("third Generate failed: %v", err)
	}
	if result.BackendID != "primary" {
		t.Errorf("recovered backend should serve again, provenance = %s", result.BackendID)
	}
}

func TestGenerateUnsupportedInputDoesNotCoolDown(t *testing.T) {
	o := testOrchestrator(t)
	picky := mock.New("picky")
	picky.FailNext(1, fmt.Errorf("%w: bad characters", ErrUnsupportedInput))
	fallback := mock.New("fallback")
	mustRegister(t, o, Descriptor{ID: "picky", Priority: 1}, picky)
	mustRegister(t, o, Descriptor{ID: "fallback", Priority: 2}, fallback)

	voice := ttypes.DefaultVoiceConfig()
	result, err := o.Generate(context.Background(), "Phú Quốc", voice)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.BackendID != "fallback" {
		t.Errorf("provenance = %s, want fallback", result.BackendID)
	}

	// Rejecting one request is not systemic: the backend stays in the chain.
	result, err = o.Generate(context.Background(), "Hội An", voice)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if result.BackendID != "picky" {
		t.Errorf("backend should not cool down after unsupported input, provenance = %s", result.BackendID)
	}
}

func TestGenerateFirstUseFailureResetsState(t *testing.T) {
	o := testOrchestrator(t)
	picky := mock.New("picky")
	picky.FailNext(1, fmt.Errorf("%w: bad characters", ErrUnsupportedInput))
	mustRegister(t, o, Descriptor{ID: "picky", Priority: 1}, picky)

	voice := ttypes.DefaultVoiceConfig()
	if _, err := o.Generate(context.Background(), "Mũi Né", voice); !errors.Is(err, ErrAllBackendsFailed) {
		t.Fatalf("error = %v, want ErrAllBackendsFailed", err)
	}

	// A per-request rejection during first use must not leave the backend
	// stuck in the loading state.
	d, ok := o.Registry().Get("picky")
	if !ok {
		t.Fatal("backend vanished from the registry")
	}
	if d.State != StateUnloaded {
		t.Errorf("state after first-use rejection = %s, want unloaded", d.State)
	}

	result, err := o.Generate(context.Background(), "Mũi Né", voice)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.BackendID != "picky" {
		t.Errorf("provenance = %s, want picky", result.BackendID)
	}
	if d, _ := o.Registry().Get("picky"); d.State != StateReady {
		t.Errorf("state after success = %s, want ready", d.State)
	}
}

func TestDescribeBackend(t *testing.T) {
	o := testOrchestrator(t)
	backend := mock.New("a")
	mustRegister(t, o, Descriptor{
		ID:           "a",
		Priority:     1,
		Capabilities: backend.Capabilities(),
	}, backend)

	info, err := o.DescribeBackend("a")
	if err != nil {
		t.Fatalf("DescribeBackend failed: %v", err)
	}
	if info.Name == "" {
		t.Error("catalog entry should carry a human-readable name")
	}
	if !info.QualityTier.Valid() {
		t.Errorf("QualityTier = %q is not a known tier", info.QualityTier)
	}
	if !info.Offline {
		t.Error("the backend needs no network, Offline should be set")
	}

	if _, err := o.DescribeBackend("nope"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("error = %v, want ErrUnknownBackend", err)
	}

	all := o.DescribeBackends()
	if len(all) != 1 || all[0].ID != "a" {
		t.Errorf("DescribeBackends = %+v, want the one registered backend", all)
	}
}

func TestGenerateMaxTextLengthSkip(t *testing.T) {
	o := testOrchestrator(t)
	tiny := mock.New("tiny")
	big := mock.New("big")
	mustRegister(t, o, Descriptor{ID: "tiny", Priority: 1, MaxTextLength: 4}, tiny)
	mustRegister(t, o, Descriptor{ID: "big", Priority: 2}, big)

	result, err := o.Generate(context.Background(), "Thành phố Hồ Chí Minh tuyệt đẹp", ttypes.DefaultVoiceConfig())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.BackendID != "big" {
		t.Errorf("provenance = %s, want big", result.BackendID)
	}
	if tiny.Calls() != 0 {
		t.Error("backend with too-small max length must not be invoked")
	}
	if len(result.Attempts) != 0 {
		t.Errorf("a length skip must not count as an attempt, log = %v", result.Attempts)
	}
}

func TestGeneratePreferredBackend(t *testing.T) {
	o := testOrchestrator(t)
	first := mock.New("first")
	second := mock.New("second")
	mustRegister(t, o, Descriptor{ID: "first", Priority: 1}, first)
	mustRegister(t, o, Descriptor{ID: "second", Priority: 2}, second)

	voice := ttypes.DefaultVoiceConfig()
	voice.PreferredBackend = "second"

	result, err := o.Generate(context.Background(), "Vịnh Hạ Long", voice)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.BackendID != "second" {
		t.Errorf("provenance = %s, want the preferred backend", result.BackendID)
	}
	if first.Calls() != 0 {
		t.Error("preferred backend succeeded, the rest of the chain must stay untouched")
	}
}

func TestGenerateAllBackendsFailed(t *testing.T) {
	o := testOrchestrator(t)
	a := mock.New("a")
	a.FailWith(fmt.Errorf("%w: down", ErrBackendUnavailable))
	b := mock.New("b")
	b.FailWith(fmt.Errorf("%w: also down", ErrBackendUnavailable))
	mustRegister(t, o, Descriptor{ID: "a", Priority: 1}, a)
	mustRegister(t, o, Descriptor{ID: "b", Priority: 2}, b)

	_, err := o.Generate(context.Background(), "Sapa mùa đông", ttypes.DefaultVoiceConfig())
	if !errors.Is(err, ErrAllBackendsFailed) {
		t.Fatalf("error = %v, want ErrAllBackendsFailed", err)
	}

	var terminal *AllBackendsFailedError
	if !errors.As(err, &terminal) {
		t.Fatalf("error %T does not carry the attempt log", err)
	}
	if len(terminal.Attempts) != 2 {
		t.Errorf("attempt log length = %d, want 2", len(terminal.Attempts))
	}
	if terminal.Text != "Sapa mùa đông" {
		t.Errorf("terminal error should carry the original text, got %q", terminal.Text)
	}
	if stats := o.Cache().Stats(); stats.Items != 0 {
		t.Errorf("nothing may be cached on total failure, items = %d", stats.Items)
	}
}

func TestGenerateMetrics(t *testing.T) {
	o := testOrchestrator(t)
	mustRegister(t, o, Descriptor{ID: "a", Priority: 1}, mock.New("a"))

	voice := ttypes.DefaultVoiceConfig()
	if _, err := o.Generate(context.Background(), "Đà Lạt", voice); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Generate(context.Background(), "Đà Lạt", voice); err != nil {
		t.Fatal(err)
	}

	snap := o.Metrics().Snapshot()
	if snap.Requests != 2 {
		t.Errorf("requests = %d, want 2", snap.Requests)
	}
	if snap.CacheHits != 1 {
		t.Errorf("cache hits = %d, want 1", snap.CacheHits)
	}
	if snap.BackendSuccess["a"] != 1 {
		t.Errorf("backend successes = %d, want 1", snap.BackendSuccess["a"])
	}
}
