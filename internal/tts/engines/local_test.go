package engines

import (
	"context"
	"errors"
	"testing"

	"github.com/vietvoice/vietvoice/internal/tts"
	"github.com/vietvoice/vietvoice/internal/ttypes"
)

func TestLocalValidate(t *testing.T) {
	cfg := tts.DefaultLocalConfig()
	cfg.Binary = "definitely-not-a-real-tts-binary"
	l := NewLocal(cfg)
	if err := l.Validate(); err == nil {
		t.Error("Validate should fail for a missing binary")
	}

	// Present binary but no model configured.
	cfg = tts.DefaultLocalConfig()
	cfg.Binary = "sh"
	cfg.ModelPath = ""
	l = NewLocal(cfg)
	if err := l.Validate(); err == nil {
		t.Error("Validate should fail without a model path")
	}
}

func TestLocalSynthesizeMissingBinary(t *testing.T) {
	cfg := tts.DefaultLocalConfig()
	cfg.Binary = "definitely-not-a-real-tts-binary"
	l := NewLocal(cfg)

	_, err := l.Synthesize(context.Background(), "xin chào", ttypes.DefaultVoiceConfig())
	if !errors.Is(err, tts.ErrBackendUnavailable) {
		t.Errorf("error = %v, want ErrBackendUnavailable", err)
	}
}

func TestLocalCapabilities(t *testing.T) {
	l := NewLocal(tts.DefaultLocalConfig())
	caps := l.Capabilities()
	if caps.RequiresNetwork {
		t.Error("local backend must work offline")
	}
	if caps.SampleRate != 22050 {
		t.Errorf("sample rate = %d", caps.SampleRate)
	}
	if caps.Name == "" {
		t.Error("backend should advertise a name")
	}
	if !caps.QualityTier.Valid() {
		t.Errorf("quality tier = %q is not a known tier", caps.QualityTier)
	}
}
