package tts

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads synthesis configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	// Chain settings
	if viper.IsSet("tts.attempt_timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.attempt_timeout")); err == nil {
			cfg.AttemptTimeout = d
		}
	}
	if viper.IsSet("tts.cool_down") {
		if d, err := time.ParseDuration(viper.GetString("tts.cool_down")); err == nil {
			cfg.CoolDown = d
		}
	}

	// Backend chain: replaces the default list entirely when present.
	if viper.IsSet("tts.backends") {
		var backends []BackendConfig
		if err := viper.UnmarshalKey("tts.backends", &backends); err != nil {
			return cfg, fmt.Errorf("invalid tts.backends: %w", err)
		}
		cfg.Backends = backends
	}

	cfg.Cache = loadCacheConfig()

	// Normalizer table overrides: merged over the built-in tables.
	if viper.IsSet("tts.normalizer") {
		if err := viper.UnmarshalKey("tts.normalizer", &cfg.Normalizer); err != nil {
			return cfg, fmt.Errorf("invalid tts.normalizer: %w", err)
		}
	}

	cfg.GTTS = loadGTTSConfig()
	cfg.OpenAI = loadOpenAIConfig()
	cfg.Local = loadLocalConfig()
	cfg.Mock = loadMockConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid synthesis configuration: %w", err)
	}

	return cfg, nil
}

// loadCacheConfig loads cache configuration from Viper.
func loadCacheConfig() CacheConfig {
	cfg := DefaultCacheConfig()

	if viper.IsSet("tts.cache.dir") {
		cfg.Dir = viper.GetString("tts.cache.dir")
	}
	if viper.IsSet("tts.cache.capacity") {
		cfg.Capacity = viper.GetInt64("tts.cache.capacity")
	}
	if viper.IsSet("tts.cache.compress") {
		cfg.Compress = viper.GetBool("tts.cache.compress")
	}

	return cfg
}

// loadGTTSConfig loads Google Translate TTS configuration from Viper.
func loadGTTSConfig() GTTSConfig {
	cfg := DefaultGTTSConfig()

	if viper.IsSet("tts.gtts.language") {
		cfg.Language = viper.GetString("tts.gtts.language")
	}
	if viper.IsSet("tts.gtts.slow") {
		cfg.Slow = viper.GetBool("tts.gtts.slow")
	}
	if viper.IsSet("tts.gtts.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("tts.gtts.requests_per_minute")
	}
	if viper.IsSet("tts.gtts.endpoint") {
		cfg.Endpoint = viper.GetString("tts.gtts.endpoint")
	}
	if viper.IsSet("tts.gtts.timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.gtts.timeout")); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// loadOpenAIConfig loads OpenAI speech configuration from Viper.
func loadOpenAIConfig() OpenAIConfig {
	cfg := DefaultOpenAIConfig()

	if viper.IsSet("tts.openai.api_key") {
		cfg.APIKey = viper.GetString("tts.openai.api_key")
	}
	if viper.IsSet("tts.openai.model") {
		cfg.Model = viper.GetString("tts.openai.model")
	}
	if viper.IsSet("tts.openai.voice") {
		cfg.Voice = viper.GetString("tts.openai.voice")
	}
	if viper.IsSet("tts.openai.timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.openai.timeout")); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// loadLocalConfig loads local subprocess configuration from Viper.
func loadLocalConfig() LocalConfig {
	cfg := DefaultLocalConfig()

	if viper.IsSet("tts.local.binary") {
		cfg.Binary = viper.GetString("tts.local.binary")
	}
	if viper.IsSet("tts.local.model_path") {
		cfg.ModelPath = viper.GetString("tts.local.model_path")
	}
	if viper.IsSet("tts.local.speaker_id") {
		cfg.SpeakerID = viper.GetInt("tts.local.speaker_id")
	}
	if viper.IsSet("tts.local.timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.local.timeout")); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// loadMockConfig loads mock backend configuration from Viper.
func loadMockConfig() MockConfig {
	cfg := DefaultMockConfig()

	if viper.IsSet("tts.mock.generation_delay") {
		if d, err := time.ParseDuration(viper.GetString("tts.mock.generation_delay")); err == nil {
			cfg.GenerationDelay = d
		}
	}
	if viper.IsSet("tts.mock.failure_rate") {
		cfg.FailureRate = viper.GetFloat64("tts.mock.failure_rate")
	}

	return cfg
}

// SetDefaults sets default values in Viper for synthesis configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("tts.attempt_timeout", defaults.AttemptTimeout.String())
	viper.SetDefault("tts.cool_down", defaults.CoolDown.String())

	viper.SetDefault("tts.cache.dir", defaults.Cache.Dir)
	viper.SetDefault("tts.cache.capacity", defaults.Cache.Capacity)
	viper.SetDefault("tts.cache.compress", defaults.Cache.Compress)

	viper.SetDefault("tts.gtts.language", defaults.GTTS.Language)
	viper.SetDefault("tts.gtts.slow", defaults.GTTS.Slow)
	viper.SetDefault("tts.gtts.requests_per_minute", defaults.GTTS.RequestsPerMinute)
	viper.SetDefault("tts.gtts.timeout", defaults.GTTS.Timeout.String())

	viper.SetDefault("tts.openai.model", defaults.OpenAI.Model)
	viper.SetDefault("tts.openai.voice", defaults.OpenAI.Voice)
	viper.SetDefault("tts.openai.timeout", defaults.OpenAI.Timeout.String())

	viper.SetDefault("tts.local.binary", defaults.Local.Binary)
	viper.SetDefault("tts.local.speaker_id", defaults.Local.SpeakerID)
	viper.SetDefault("tts.local.timeout", defaults.Local.Timeout.String())

	viper.SetDefault("tts.mock.generation_delay", defaults.Mock.GenerationDelay.String())
	viper.SetDefault("tts.mock.failure_rate", defaults.Mock.FailureRate)
}
