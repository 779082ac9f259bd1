package main

import (
	"fmt"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/dispatch"
	"github.com/nadzzz/readaloud/internal/playback"
	"github.com/nadzzz/readaloud/internal/proc"
	"github.com/nadzzz/readaloud/internal/storage"
	"github.com/nadzzz/readaloud/internal/tts"
	"github.com/nadzzz/readaloud/internal/tts/espeak"
	"github.com/nadzzz/readaloud/internal/tts/wyoming"
)

// app holds the components every subcommand works with.
type app struct {
	cfg        *config.Config
	engine     tts.Engine
	store      *storage.Store // nil in speak mode
	dispatcher *dispatch.Dispatcher
}

// loadConfig reads the configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	config.SetupLogging(cfg.Logging)
	return cfg, nil
}

// newApp validates cfg and wires the engine, store, player and dispatcher.
func newApp(cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	synthRunner := proc.ExecRunner{Timeout: cfg.TTS.Timeout}
	transcoder := tts.NewTranscoder(synthRunner, cfg.TTS.Transcoder)

	var engine tts.Engine
	switch cfg.TTS.Backend {
	case config.BackendWyoming:
		engine = wyoming.New(cfg.TTS.Wyoming, transcoder)
	default:
		engine = espeak.New(cfg.TTS.Espeak, synthRunner, transcoder)
	}

	var store *storage.Store
	if cfg.TTS.Mode == config.ModeFile {
		var err error
		if store, err = storage.New(cfg.Storage); err != nil {
			return nil, err
		}
	}

	// The player bounds each call with playback.timeout itself.
	player := playback.New(proc.ExecRunner{}, cfg.Playback)

	d := dispatch.New(engine, store, player, dispatch.Options{
		Mode:          cfg.TTS.Mode,
		CleanupChance: cfg.Storage.CleanupChance,
	})
	return &app{cfg: cfg, engine: engine, store: store, dispatcher: d}, nil
}

// loadApp is loadConfig followed by newApp.
func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}
