package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vietvoice/vietvoice/internal/normalizer"
)

// Config contains all synthesis orchestration options.
type Config struct {
	// Chain settings
	AttemptTimeout time.Duration `yaml:"attempt_timeout" env:"VIETVOICE_ATTEMPT_TIMEOUT" envDefault:"30s"`
	CoolDown       time.Duration `yaml:"cool_down" env:"VIETVOICE_COOL_DOWN" envDefault:"30s"`

	// Backends is the ordered fallback chain. Lower priority is tried first.
	Backends []BackendConfig `yaml:"backends"`

	// Cache settings
	Cache CacheConfig `yaml:"cache"`

	// Normalizer table overrides
	Normalizer NormalizerConfig `yaml:"normalizer"`

	// Backend-specific configurations
	GTTS   GTTSConfig   `yaml:"gtts"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Local  LocalConfig  `yaml:"local"`
	Mock   MockConfig   `yaml:"mock"`
}

// BackendConfig declares one entry of the fallback chain.
type BackendConfig struct {
	ID            string `yaml:"id" mapstructure:"id"`
	Type          string `yaml:"type" mapstructure:"type"` // gtts, openai, local or mock
	Priority      int    `yaml:"priority" mapstructure:"priority"`
	MaxTextLength int    `yaml:"max_text_length" mapstructure:"max_text_length"` // bytes; 0 = unlimited
}

// NormalizerConfig extends the built-in normalization tables. Entries merge
// over the defaults; a known written form is replaced, a new one is added.
// Entries are written/spoken pairs rather than maps because config loading
// lowercases map keys, which would corrupt case-sensitive forms like "TP.HCM".
type NormalizerConfig struct {
	Abbreviations []TableEntry `yaml:"abbreviations" mapstructure:"abbreviations"`
	Locations     []TableEntry `yaml:"locations" mapstructure:"locations"`
	CurrencyUnits []TableEntry `yaml:"currency_units" mapstructure:"currency_units"`
}

// TableEntry maps one written form to its spoken expansion.
type TableEntry struct {
	Written string `yaml:"written" mapstructure:"written"`
	Spoken  string `yaml:"spoken" mapstructure:"spoken"`
}

// CacheConfig contains audio cache settings.
type CacheConfig struct {
	Dir      string `yaml:"dir" env:"VIETVOICE_CACHE_DIR"`
	Capacity int64  `yaml:"capacity" env:"VIETVOICE_CACHE_CAPACITY" envDefault:"524288000"`
	Compress bool   `yaml:"compress" env:"VIETVOICE_CACHE_COMPRESS" envDefault:"true"`
}

// GTTSConfig contains Google Translate TTS backend settings.
type GTTSConfig struct {
	Language          string        `yaml:"language" env:"VIETVOICE_GTTS_LANGUAGE" envDefault:"vi"`
	Slow              bool          `yaml:"slow" env:"VIETVOICE_GTTS_SLOW" envDefault:"false"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"VIETVOICE_GTTS_REQUESTS_PER_MINUTE" envDefault:"50"`
	Endpoint          string        `yaml:"endpoint" env:"VIETVOICE_GTTS_ENDPOINT"`
	Timeout           time.Duration `yaml:"timeout" env:"VIETVOICE_GTTS_TIMEOUT" envDefault:"30s"`
}

// OpenAIConfig contains OpenAI speech backend settings.
type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key" env:"VIETVOICE_OPENAI_API_KEY"`
	Model   string        `yaml:"model" env:"VIETVOICE_OPENAI_MODEL" envDefault:"tts-1"`
	Voice   string        `yaml:"voice" env:"VIETVOICE_OPENAI_VOICE" envDefault:"alloy"`
	Timeout time.Duration `yaml:"timeout" env:"VIETVOICE_OPENAI_TIMEOUT" envDefault:"30s"`
}

// LocalConfig contains local subprocess backend settings.
type LocalConfig struct {
	Binary    string        `yaml:"binary" env:"VIETVOICE_LOCAL_BINARY" envDefault:"piper"`
	ModelPath string        `yaml:"model_path" env:"VIETVOICE_LOCAL_MODEL_PATH"`
	SpeakerID int           `yaml:"speaker_id" env:"VIETVOICE_LOCAL_SPEAKER_ID" envDefault:"0"`
	Timeout   time.Duration `yaml:"timeout" env:"VIETVOICE_LOCAL_TIMEOUT" envDefault:"30s"`
}

// MockConfig contains mock backend settings for testing.
type MockConfig struct {
	GenerationDelay time.Duration `yaml:"generation_delay" env:"VIETVOICE_MOCK_GENERATION_DELAY" envDefault:"10ms"`
	FailureRate     float64       `yaml:"failure_rate" env:"VIETVOICE_MOCK_FAILURE_RATE" envDefault:"0.0"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AttemptTimeout: 30 * time.Second,
		CoolDown:       30 * time.Second,

		Backends: []BackendConfig{
			{ID: "gtts", Type: "gtts", Priority: 1, MaxTextLength: 5000},
			{ID: "local", Type: "local", Priority: 2},
		},

		Cache:      DefaultCacheConfig(),
		Normalizer: NormalizerConfig{},
		GTTS:       DefaultGTTSConfig(),
		OpenAI:     DefaultOpenAIConfig(),
		Local:      DefaultLocalConfig(),
		Mock:       DefaultMockConfig(),
	}
}

// DefaultCacheConfig returns default cache configuration. The default
// directory sits under the user's home, falling back to the system temp
// directory when home cannot be resolved.
func DefaultCacheConfig() CacheConfig {
	dir := filepath.Join(os.TempDir(), "vietvoice", "cache")
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".vietvoice", "cache")
	}
	return CacheConfig{
		Dir:      dir,
		Capacity: 500 * 1024 * 1024,
		Compress: true,
	}
}

// DefaultGTTSConfig returns default Google Translate TTS configuration.
func DefaultGTTSConfig() GTTSConfig {
	return GTTSConfig{
		Language:          "vi",
		Slow:              false,
		RequestsPerMinute: 50,
		Timeout:           30 * time.Second,
	}
}

// DefaultOpenAIConfig returns default OpenAI speech configuration.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:   "tts-1",
		Voice:   "alloy",
		Timeout: 30 * time.Second,
	}
}

// DefaultLocalConfig returns default local subprocess configuration.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Binary:  "piper",
		Timeout: 30 * time.Second,
	}
}

// DefaultMockConfig returns default mock backend configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		GenerationDelay: 10 * time.Millisecond,
		FailureRate:     0.0,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.AttemptTimeout < time.Second {
		return fmt.Errorf("attempt_timeout must be at least 1 second, got %v", c.AttemptTimeout)
	}
	if c.CoolDown < 0 {
		return fmt.Errorf("cool_down cannot be negative, got %v", c.CoolDown)
	}

	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}
	validTypes := []string{"gtts", "openai", "local", "mock"}
	seen := make(map[string]bool, len(c.Backends))
	for i := range c.Backends {
		b := &c.Backends[i]
		if b.ID == "" {
			return fmt.Errorf("backend %d has no id", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate backend id '%s'", b.ID)
		}
		seen[b.ID] = true

		typeValid := false
		for _, t := range validTypes {
			if strings.EqualFold(b.Type, t) {
				typeValid = true
				b.Type = strings.ToLower(b.Type)
				break
			}
		}
		if !typeValid {
			return fmt.Errorf("invalid backend type '%s' for '%s': must be one of %v", b.Type, b.ID, validTypes)
		}
		if b.MaxTextLength < 0 {
			return fmt.Errorf("max_text_length for '%s' cannot be negative", b.ID)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := c.Normalizer.Validate(); err != nil {
		return fmt.Errorf("normalizer config: %w", err)
	}
	if err := c.GTTS.Validate(); err != nil {
		return fmt.Errorf("gtts config: %w", err)
	}
	if err := c.OpenAI.Validate(); err != nil {
		return fmt.Errorf("openai config: %w", err)
	}
	if err := c.Local.Validate(); err != nil {
		return fmt.Errorf("local config: %w", err)
	}
	if err := c.Mock.Validate(); err != nil {
		return fmt.Errorf("mock config: %w", err)
	}

	return nil
}

// Validate checks if the normalizer table overrides are valid.
func (c *NormalizerConfig) Validate() error {
	check := func(table string, entries []TableEntry) error {
		for i, e := range entries {
			if strings.TrimSpace(e.Written) == "" {
				return fmt.Errorf("%s entry %d has an empty written form", table, i)
			}
			if strings.TrimSpace(e.Spoken) == "" {
				return fmt.Errorf("%s entry '%s' has an empty spoken form", table, e.Written)
			}
		}
		return nil
	}
	if err := check("abbreviations", c.Abbreviations); err != nil {
		return err
	}
	if err := check("locations", c.Locations); err != nil {
		return err
	}
	return check("currency_units", c.CurrencyUnits)
}

// Tables returns the default normalization tables with the configured
// entries merged on top.
func (c *NormalizerConfig) Tables() normalizer.Tables {
	t := normalizer.DefaultTables()
	for _, e := range c.Abbreviations {
		t.Abbreviations[e.Written] = e.Spoken
	}
	for _, e := range c.Locations {
		t.Locations[e.Written] = e.Spoken
	}
	for _, e := range c.CurrencyUnits {
		t.CurrencyUnits[e.Written] = e.Spoken
	}
	return t
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("cache dir cannot be empty")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	return nil
}

// Validate checks if the Google Translate TTS configuration is valid.
func (c *GTTSConfig) Validate() error {
	if c.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("requests_per_minute must be at least 1, got %d", c.RequestsPerMinute)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the OpenAI configuration is valid.
func (c *OpenAIConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the local subprocess configuration is valid.
func (c *LocalConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("binary path cannot be empty")
	}
	if c.SpeakerID < 0 {
		return fmt.Errorf("speaker_id cannot be negative, got %d", c.SpeakerID)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.FailureRate < 0.0 || c.FailureRate > 1.0 {
		return fmt.Errorf("failure_rate must be between 0.0 and 1.0, got %f", c.FailureRate)
	}
	return nil
}
