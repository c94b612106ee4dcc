// Package engines provides the synthesis backend implementations.
package engines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietvoice/vietvoice/internal/tts"
	"github.com/vietvoice/vietvoice/internal/ttypes"
)

const defaultGTTSEndpoint = "https://translate.google.com/translate_tts"

// GTTS synthesizes speech through the Google Translate TTS endpoint. It needs
// no API key, so requests are rate limited to avoid being blocked.
type GTTS struct {
	cfg     tts.GTTSConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewGTTS creates a Google Translate TTS backend.
func NewGTTS(cfg tts.GTTSConfig) *GTTS {
	if cfg.Language == "" {
		cfg.Language = "vi"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultGTTSEndpoint
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 50
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GTTS{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}
}

// ID returns the backend identifier.
func (g *GTTS) ID() string {
	return "gtts"
}

// Capabilities returns what this backend can do.
func (g *GTTS) Capabilities() ttypes.Capabilities {
	return ttypes.Capabilities{
		Name:            "Google Translate TTS",
		QualityTier:     ttypes.QualityBalanced,
		RequiresNetwork: true,
		SampleRate:      24000,
	}
}

// Synthesize converts text to MP3 audio.
func (g *GTTS) Synthesize(ctx context.Context, text string, voice ttypes.VoiceConfig) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", tts.ErrBackendTimeout, err)
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", g.cfg.Language)
	q.Set("q", text)
	speed := voice.Speed
	if g.cfg.Slow {
		speed = ttypes.MinSpeed
	}
	q.Set("ttsspeed", fmt.Sprintf("%.2f", speed))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// The tw-ob client is rejected without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", tts.ErrBackendTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", tts.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// continue
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: translate_tts status %d", tts.ErrUnsupportedInput, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: translate_tts status %d", tts.ErrBackendUnavailable, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", tts.ErrBackendUnavailable, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio response", tts.ErrBackendUnavailable)
	}
	return audio, nil
}

// Validate checks the backend configuration.
func (g *GTTS) Validate() error {
	if g.cfg.Language == "" {
		return fmt.Errorf("gtts: language not configured")
	}
	if _, err := url.Parse(g.cfg.Endpoint); err != nil {
		return fmt.Errorf("gtts: invalid endpoint: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (g *GTTS) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

var _ ttypes.Backend = (*GTTS)(nil)
