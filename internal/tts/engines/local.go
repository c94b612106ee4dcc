package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/vietvoice/vietvoice/internal/tts"
	"github.com/vietvoice/vietvoice/internal/ttypes"
)

// Local synthesizes speech by piping text through a piper-style subprocess.
// Works fully offline, which makes it the chain's last-resort backend.
type Local struct {
	cfg tts.LocalConfig
}

// NewLocal creates a local subprocess backend.
func NewLocal(cfg tts.LocalConfig) *Local {
	if cfg.Binary == "" {
		cfg.Binary = "piper"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Local{cfg: cfg}
}

// ID returns the backend identifier.
func (l *Local) ID() string {
	return "local"
}

// Capabilities returns what this backend can do.
func (l *Local) Capabilities() ttypes.Capabilities {
	return ttypes.Capabilities{
		Name:        "Piper",
		QualityTier: ttypes.QualityFast,
		SampleRate:  22050,
	}
}

// Synthesize converts text to raw PCM audio via the subprocess.
func (l *Local) Synthesize(ctx context.Context, text string, voice ttypes.VoiceConfig) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	args := []string{
		"--model", l.cfg.ModelPath,
		"--speaker", strconv.Itoa(l.cfg.SpeakerID),
		// Piper scales duration, so speed inverts into length.
		"--length-scale", fmt.Sprintf("%.2f", 1.0/voice.Speed),
		"--output-raw",
	}

	cmd := exec.CommandContext(ctx, l.cfg.Binary, args...)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s did not finish in %v", tts.ErrBackendTimeout, l.cfg.Binary, l.cfg.Timeout)
		}
		return nil, fmt.Errorf("%w: %s: %v, stderr: %s", tts.ErrBackendUnavailable, l.cfg.Binary, err, stderr.String())
	}

	audio := stdout.Bytes()
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: %s produced no audio, stderr: %s", tts.ErrBackendUnavailable, l.cfg.Binary, stderr.String())
	}
	return audio, nil
}

// Validate checks that the binary and model are present.
func (l *Local) Validate() error {
	if _, err := exec.LookPath(l.cfg.Binary); err != nil {
		return fmt.Errorf("local: %s not found in PATH: %w", l.cfg.Binary, err)
	}
	if l.cfg.ModelPath == "" {
		return fmt.Errorf("local: model_path not configured")
	}
	if _, err := os.Stat(l.cfg.ModelPath); err != nil {
		return fmt.Errorf("local: model not readable: %w", err)
	}
	return nil
}

// Close is a no-op; each synthesis runs its own subprocess.
func (l *Local) Close() error {
	return nil
}

var _ ttypes.Backend = (*Local)(nil)
