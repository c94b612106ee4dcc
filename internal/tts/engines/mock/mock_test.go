package mock

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietvoice/vietvoice/internal/ttypes"
)

func TestSynthesizeDeterministic(t *testing.T) {
	b := New("test")
	voice := ttypes.DefaultVoiceConfig()

	first, err := b.Synthesize(context.Background(), "xin chào", voice)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	second, err := b.Synthesize(context.Background(), "xin chào", voice)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("mock audio must be deterministic")
	}
	if !bytes.Equal(first, []byte("test:xin chào")) {
		t.Errorf("audio = %q", first)
	}
	if b.Calls() != 2 {
		t.Errorf("calls = %d, want 2", b.Calls())
	}
}

func TestFailureModes(t *testing.T) {
	b := New("test")
	boom := errors.New("boom")

	b.FailNext(2, boom)
	for i := 0; i < 2; i++ {
		if _, err := b.Synthesize(context.Background(), "x", ttypes.DefaultVoiceConfig()); !errors.Is(err, boom) {
			t.Errorf("call %d: error = %v, want boom", i, err)
		}
	}
	if _, err := b.Synthesize(context.Background(), "x", ttypes.DefaultVoiceConfig()); err != nil {
		t.Errorf("backend should recover after FailNext runs out, got %v", err)
	}

	b.FailWith(boom)
	for i := 0; i < 3; i++ {
		if _, err := b.Synthesize(context.Background(), "x", ttypes.DefaultVoiceConfig()); !errors.Is(err, boom) {
			t.Errorf("FailWith should persist, call %d got %v", i, err)
		}
	}
	b.FailWith(nil)
	if _, err := b.Synthesize(context.Background(), "x", ttypes.DefaultVoiceConfig()); err != nil {
		t.Errorf("clearing FailWith should recover, got %v", err)
	}
}

func TestDelayHonorsContext(t *testing.T) {
	b := New("test")
	b.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := b.Synthesize(ctx, "x", ttypes.DefaultVoiceConfig())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Synthesize should give up when the context does")
	}
}
