package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# Synthesis orchestration configuration
tts:
  # Time budget for one backend attempt
  attempt_timeout: "30s"
  # How long a failed backend sits out of the chain
  cool_down: "30s"

  # Fallback chain; lower priority is tried first
  backends:
    - id: "gtts"
      type: "gtts"
      priority: 1
      max_text_length: 5000
    - id: "local"
      type: "local"
      priority: 2
    # - id: "openai"
    #   type: "openai"
    #   priority: 0

  # Content-addressed audio cache
  cache:
    # dir: "~/.vietvoice/cache"
    capacity: 524288000
    compress: true

  # Extra normalization table entries, merged over the built-in tables
  # normalizer:
  #   abbreviations:
  #     - written: "GS"
  #       spoken: "giáo sư"
  #   locations:
  #     - written: "ĐN"
  #       spoken: "Đà Nẵng"
  #   currency_units:
  #     - written: "JPY"
  #       spoken: "yên Nhật"

  # Google Translate TTS backend (no API key required)
  gtts:
    language: "vi"
    slow: false
    requests_per_minute: 50
    timeout: "30s"

  # OpenAI speech backend
  openai:
    # api_key: "your-api-key-here"
    model: "tts-1"
    voice: "alloy"
    timeout: "30s"

  # Local subprocess backend (offline fallback)
  local:
    binary: "piper"
    # model_path: "/path/to/vi_VN-model.onnx"
    speaker_id: 0
    timeout: "30s"

  # Mock backend (for testing)
  mock:
    generation_delay: "10ms"
    failure_rate: 0.0
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the vietvoice config file",
	Long:    "Edit the vietvoice config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.",
	Example: "vietvoice config\nvietvoice config --config path/to/config.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("VietVoice", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
