// Package config handles loading and validating the readaloud configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Deployment modes. A process runs in exactly one of them.
const (
	ModeFile  = "file"  // synthesize to a stored file, optionally play it
	ModeSpeak = "speak" // the engine speaks directly, nothing is stored
)

// Synthesis backends.
const (
	BackendEspeak  = "espeak"
	BackendWyoming = "wyoming"
)

// Config is the root configuration for the readaloud server.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Playback   PlaybackConfig   `mapstructure:"playback"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
// A HealthPort of 0 disables the health server.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	Stdio StdioConfig `mapstructure:"stdio"`
	HTTP  HTTPConfig  `mapstructure:"http"`
	GRPC  GRPCConfig  `mapstructure:"grpc"`
}

// StdioConfig configures the MCP stdio transport.
type StdioConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// HTTPConfig configures the HTTP transport (MCP streamable HTTP + REST).
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TTSConfig selects the deployment mode and the synthesis backend.
type TTSConfig struct {
	Mode       string        `mapstructure:"mode"`    // "file" or "speak"
	Backend    string        `mapstructure:"backend"` // "espeak" or "wyoming"
	Timeout    time.Duration `mapstructure:"timeout"`
	Transcoder string        `mapstructure:"transcoder"` // binary used for mp3/ogg output
	Espeak     EspeakConfig  `mapstructure:"espeak"`
	Wyoming    WyomingConfig `mapstructure:"wyoming"`
}

// EspeakConfig holds settings for the espeak-ng / espeak subprocess engine.
type EspeakConfig struct {
	Binaries     []string `mapstructure:"binaries"`      // probed in order
	BaselineWPM  int      `mapstructure:"baseline_wpm"`  // words per minute at rate 1.0
	MaxAmplitude int      `mapstructure:"max_amplitude"` // amplitude at volume 1.0
}

// WyomingConfig holds settings for a Piper server speaking the Wyoming protocol.
type WyomingConfig struct {
	Endpoint string `mapstructure:"endpoint"` // host:port
	Voice    string `mapstructure:"voice"`    // default voice when the request names none
}

// StorageConfig configures the audio output directory and retention.
// A zero MaxAge or MaxFiles disables that retention rule.
type StorageConfig struct {
	OutputDir     string        `mapstructure:"output_dir"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	MaxFiles      int           `mapstructure:"max_files"`
	CleanupChance float64       `mapstructure:"cleanup_chance"` // probability of a sweep per request
}

// PlaybackConfig configures local audio playback.
type PlaybackConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./readaloud.yaml, ./configs/readaloud.yaml, /etc/readaloud/readaloud.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 0)
	v.SetDefault("transports.stdio.enabled", true)
	v.SetDefault("transports.http.enabled", false)
	v.SetDefault("transports.http.port", 8000)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("tts.mode", ModeFile)
	v.SetDefault("tts.backend", BackendEspeak)
	v.SetDefault("tts.timeout", "60s")
	v.SetDefault("tts.transcoder", "ffmpeg")
	v.SetDefault("tts.espeak.binaries", []string{"espeak-ng", "espeak"})
	v.SetDefault("tts.espeak.baseline_wpm", 175)
	v.SetDefault("tts.espeak.max_amplitude", 200)
	v.SetDefault("tts.wyoming.endpoint", "localhost:10200")
	v.SetDefault("tts.wyoming.voice", "en_US-lessac-medium")
	v.SetDefault("storage.output_dir", "audio_outputs")
	v.SetDefault("storage.max_age", "168h")
	v.SetDefault("storage.max_files", 100)
	v.SetDefault("storage.cleanup_chance", 0.1)
	v.SetDefault("playback.timeout", "5m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("readaloud")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/readaloud")
	}

	// Environment variables: READALOUD_TTS_MODE, READALOUD_STORAGE_OUTPUT_DIR, etc.
	v.SetEnvPrefix("READALOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional: env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in path-like fields (e.g., "${XDG_DATA_HOME}/readaloud")
	cfg.Storage.OutputDir = resolveEnvRef(cfg.Storage.OutputDir)
	cfg.TTS.Wyoming.Endpoint = resolveEnvRef(cfg.TTS.Wyoming.Endpoint)

	return &cfg, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.TTS.Mode {
	case ModeFile, ModeSpeak:
	default:
		return fmt.Errorf("tts.mode: unknown mode %q (want %q or %q)", c.TTS.Mode, ModeFile, ModeSpeak)
	}

	switch c.TTS.Backend {
	case BackendEspeak:
		if len(c.TTS.Espeak.Binaries) == 0 {
			return fmt.Errorf("tts.espeak.binaries: at least one binary is required")
		}
		if c.TTS.Espeak.BaselineWPM <= 0 || c.TTS.Espeak.MaxAmplitude <= 0 {
			return fmt.Errorf("tts.espeak: baseline_wpm and max_amplitude must be positive")
		}
	case BackendWyoming:
		if c.TTS.Mode == ModeSpeak {
			return fmt.Errorf("tts.mode %q is not supported by the %q backend", ModeSpeak, BackendWyoming)
		}
		if c.TTS.Wyoming.Endpoint == "" {
			return fmt.Errorf("tts.wyoming.endpoint is required")
		}
	default:
		return fmt.Errorf("tts.backend: unknown backend %q", c.TTS.Backend)
	}

	if c.TTS.Mode == ModeFile && c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required in %q mode", ModeFile)
	}
	if c.Storage.CleanupChance < 0 || c.Storage.CleanupChance > 1 {
		return fmt.Errorf("storage.cleanup_chance must be within [0, 1], got %v", c.Storage.CleanupChance)
	}
	if c.Storage.MaxAge < 0 || c.Storage.MaxFiles < 0 {
		return fmt.Errorf("storage: max_age and max_files must not be negative")
	}

	if !c.Transports.Stdio.Enabled && !c.Transports.HTTP.Enabled && !c.Transports.GRPC.Enabled {
		return fmt.Errorf("no transports enabled: enable at least one of stdio, http, grpc")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	return os.Expand(val, func(key string) string {
		if envVal, ok := os.LookupEnv(key); ok {
			return envVal
		}
		return "${" + key + "}"
	})
}

// SetupLogging configures the global slog logger based on config.
// Logs go to stderr: stdout carries the MCP stdio stream.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
