package engines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/vietvoice/vietvoice/internal/tts"
	"github.com/vietvoice/vietvoice/internal/ttypes"
)

// OpenAI synthesizes speech through the OpenAI speech API. Highest audio
// quality in the chain, but needs an API key and a network round trip.
type OpenAI struct {
	cfg    tts.OpenAIConfig
	client *openai.Client
}

// NewOpenAI creates an OpenAI speech backend.
func NewOpenAI(cfg tts.OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAI{
		cfg:    cfg,
		client: openai.NewClient(cfg.APIKey),
	}
}

// ID returns the backend identifier.
func (o *OpenAI) ID() string {
	return "openai"
}

// Capabilities returns what this backend can do.
func (o *OpenAI) Capabilities() ttypes.Capabilities {
	return ttypes.Capabilities{
		Name:            "OpenAI Speech",
		QualityTier:     ttypes.QualityHigh,
		Streaming:       true,
		RequiresNetwork: true,
		SampleRate:      24000,
	}
}

// Synthesize converts text to MP3 audio.
func (o *OpenAI) Synthesize(ctx context.Context, text string, voice ttypes.VoiceConfig) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	model := openai.SpeechModel(o.cfg.Model)
	if voice.Quality == ttypes.QualityHigh {
		model = openai.TTSModel1HD
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          model,
		Voice:          openai.SpeechVoice(o.cfg.Voice),
		Speed:          voice.Speed,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Input:          text,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", tts.ErrBackendUnavailable, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio response", tts.ErrBackendUnavailable)
	}
	return audio, nil
}

// classifyOpenAIError maps API errors onto the chain's error taxonomy.
func classifyOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", tts.ErrBackendTimeout, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %v", tts.ErrUnsupportedInput, err)
		}
	}
	return fmt.Errorf("%w: %v", tts.ErrBackendUnavailable, err)
}

// Validate checks the backend configuration.
func (o *OpenAI) Validate() error {
	if o.cfg.APIKey == "" {
		return fmt.Errorf("openai: api key not configured")
	}
	return nil
}

// Close is a no-op; the client holds no persistent resources.
func (o *OpenAI) Close() error {
	return nil
}

var _ ttypes.Backend = (*OpenAI)(nil)
