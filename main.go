// Package main provides the entry point for the vietvoice CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vietvoice/vietvoice/internal/cache"
	"github.com/vietvoice/vietvoice/internal/normalizer"
	"github.com/vietvoice/vietvoice/internal/tts"
	"github.com/vietvoice/vietvoice/internal/tts/engines"
	enginemock "github.com/vietvoice/vietvoice/internal/tts/engines/mock"
	"github.com/vietvoice/vietvoice/internal/ttypes"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	speakSpeed   float64
	speakPitch   float64
	speakQuality string
	speakBackend string
	speakOutput  string

	rootCmd = &cobra.Command{
		Use:           "vietvoice",
		Short:         "Vietnamese text-to-speech with backend fallback and caching",
		SilenceErrors: false,
		SilenceUsage:  true,
	}
)

// environment carries settings read outside the config file.
type environment struct {
	Debug bool `env:"VIETVOICE_DEBUG" envDefault:"false"`
}

var speakCmd = &cobra.Command{
	Use:   "speak [TEXT]",
	Short: "Synthesize Vietnamese text to speech audio",
	Long: "Synthesize Vietnamese text to speech audio.\n\n" +
		"Text is normalized first (numbers, dates, currency and abbreviations\n" +
		"are expanded to their spoken form), then synthesized through the\n" +
		"configured backend chain. Results are cached by content.",
	Example: "  vietvoice speak \"Giá phòng 500.000 VND một đêm\" -o phong.mp3\n" +
		"  echo \"Xin chào\" | vietvoice speak",
	Args: cobra.MaximumNArgs(1),
	RunE: runSpeak,
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [TEXT]",
	Short: "Print the canonical spoken form of Vietnamese text",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := textFromArgs(args)
		if err != nil {
			return err
		}
		cfg, err := tts.LoadConfigFromViper()
		if err != nil {
			return err
		}
		fmt.Println(normalizer.NewWithTables(cfg.Normalizer.Tables()).Normalize(text))
		return nil
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the configured synthesis backends",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		cfg, err := tts.LoadConfigFromViper()
		if err != nil {
			return err
		}
		entries, err := backendsFromConfig(cfg)
		if err != nil {
			return err
		}

		registry := tts.NewRegistry(log.Default())
		impls := make(map[string]ttypes.Backend, len(entries))
		for _, e := range entries {
			if err := registry.Register(e.desc); err != nil {
				return err
			}
			impls[e.desc.ID] = e.impl
		}
		defer func() {
			for _, impl := range impls {
				_ = impl.Close()
			}
		}()

		for _, info := range registry.DescribeAll() {
			status := "ok"
			if err := impls[info.ID].Validate(); err != nil {
				status = err.Error()
			}
			mode := "offline"
			if !info.Offline {
				mode = "network"
			}
			maxText := "unlimited"
			if info.MaxTextLength > 0 {
				maxText = fmt.Sprintf("%d bytes", info.MaxTextLength)
			}
			fmt.Printf("%-10s %-22s priority=%d  quality=%-9s %-8s max_text=%-12s %s\n",
				info.ID, info.Name, info.Priority, info.QualityTier, mode, maxText, status)
		}
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the audio cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show audio cache usage",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		cfg, err := tts.LoadConfigFromViper()
		if err != nil {
			return err
		}
		audioCache, closeStore, err := openCache(cfg.Cache)
		if err != nil {
			return err
		}
		defer closeStore()

		s := audioCache.Stats()
		fmt.Printf("directory:   %s\n", cfg.Cache.Dir)
		fmt.Printf("entries:     %d\n", s.Items)
		fmt.Printf("size:        %s of %s (%.1f%%)\n",
			humanize.IBytes(uint64(s.Size)),
			humanize.IBytes(uint64(s.Capacity)),
			float64(s.Size)/float64(s.Capacity)*100)
		fmt.Printf("compression: %v\n", cfg.Cache.Compress)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every cached audio entry",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		cfg, err := tts.LoadConfigFromViper()
		if err != nil {
			return err
		}
		audioCache, closeStore, err := openCache(cfg.Cache)
		if err != nil {
			return err
		}
		defer closeStore()

		freed := audioCache.Size()
		audioCache.Purge()
		fmt.Printf("purged %s\n", humanize.IBytes(uint64(freed)))
		return nil
	},
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text, err := textFromArgs(args)
	if err != nil {
		return err
	}

	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err
	}
	orch, closeAll, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	voice := ttypes.VoiceConfig{
		Speed:            speakSpeed,
		Pitch:            speakPitch,
		PreferredBackend: speakBackend,
		Quality:          ttypes.Quality(speakQuality),
	}
	if !voice.Quality.Valid() {
		return fmt.Errorf("invalid quality '%s': must be fast, balanced or high", speakQuality)
	}

	result, err := orch.Generate(cmd.Context(), text, voice)
	if err != nil {
		var terminal *tts.AllBackendsFailedError
		if errors.As(err, &terminal) {
			for _, a := range terminal.Attempts {
				log.Error("backend failed", "backend", a.BackendID, "kind", a.Kind, "error", a.Err)
			}
		}
		return err
	}

	if err := os.WriteFile(speakOutput, result.Audio, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	log.Info("audio written",
		"file", speakOutput,
		"size", humanize.Bytes(uint64(len(result.Audio))),
		"backend", result.BackendID,
		"cacheHit", result.CacheHit,
		"duration", result.Duration)
	return nil
}

// textFromArgs reads the request text from the argument or, when piped, from
// standard input.
func textFromArgs(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	piped, err := stdinIsPipe()
	if err != nil {
		return "", err
	}
	if !piped && len(args) == 0 {
		return "", errors.New("no text given: pass it as an argument or pipe it on stdin")
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// backendEntry pairs a chain descriptor with its implementation.
type backendEntry struct {
	desc tts.Descriptor
	impl ttypes.Backend
}

// backendsFromConfig constructs the configured backend implementations.
func backendsFromConfig(cfg tts.Config) ([]backendEntry, error) {
	entries := make([]backendEntry, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		var impl ttypes.Backend
		switch b.Type {
		case "gtts":
			impl = engines.NewGTTS(cfg.GTTS)
		case "openai":
			impl = engines.NewOpenAI(cfg.OpenAI)
		case "local":
			impl = engines.NewLocal(cfg.Local)
		case "mock":
			m := enginemock.New(b.ID)
			m.SetDelay(cfg.Mock.GenerationDelay)
			impl = m
		default:
			return nil, fmt.Errorf("unknown backend type '%s'", b.Type)
		}
		entries = append(entries, backendEntry{
			desc: tts.Descriptor{
				ID:            b.ID,
				Priority:      b.Priority,
				Capabilities:  impl.Capabilities(),
				MaxTextLength: b.MaxTextLength,
			},
			impl: impl,
		})
	}
	return entries, nil
}

// openCache opens the configured file-backed audio cache.
func openCache(cfg tts.CacheConfig) (*cache.Cache, func(), error) {
	store, err := cache.NewFileStore(cfg.Dir, cfg.Compress)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache store: %w", err)
	}
	audioCache := cache.New(store, cfg.Capacity, log.Default())
	return audioCache, func() { _ = store.Close() }, nil
}

// buildOrchestrator wires the normalizer, registry, cache and backends.
func buildOrchestrator(cfg tts.Config) (*tts.Orchestrator, func(), error) {
	audioCache, closeStore, err := openCache(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	orch := tts.New(cfg, normalizer.NewWithTables(cfg.Normalizer.Tables()),
		tts.NewRegistry(log.Default()), audioCache, tts.NewMetricsCollector(), log.Default())

	entries, err := backendsFromConfig(cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	for _, e := range entries {
		if err := orch.RegisterBackend(e.desc, e.impl); err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("register backend '%s': %w", e.desc.ID, err)
		}
	}

	closeAll := func() {
		if err := orch.Close(); err != nil {
			log.Warn("backend shutdown", "error", err)
		}
		closeStore()
	}
	return orch, closeAll, nil
}

func main() {
	ecfg, err := env.ParseAs[environment]()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if ecfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))

	speakCmd.Flags().Float64Var(&speakSpeed, "speed", 1.0, "speech speed multiplier (0.5 to 2.0)")
	speakCmd.Flags().Float64Var(&speakPitch, "pitch", 0.0, "pitch adjustment")
	speakCmd.Flags().StringVar(&speakQuality, "quality", string(ttypes.QualityBalanced), "synthesis quality (fast, balanced, high)")
	speakCmd.Flags().StringVar(&speakBackend, "backend", "", "preferred backend (soft preference)")
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "speech.mp3", "output audio file")

	cacheCmd.AddCommand(cacheStatsCmd, cachePurgeCmd)
	rootCmd.AddCommand(speakCmd, normalizeCmd, backendsCmd, cacheCmd, configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "vietvoice")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "vietvoice")}, dirs...)
	}
	if c := os.Getenv("VIETVOICE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("vietvoice")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("vietvoice")
	viper.AutomaticEnv()
	tts.SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		viper.OnConfigChange(func(e fsnotify.Event) {
			log.Info("configuration reloaded", "file", e.Name, "op", e.Op.String())
		})
		viper.WatchConfig()
		return
	}

	configFile = filepath.Join(dirs[0], "vietvoice.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
