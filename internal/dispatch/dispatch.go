// Package dispatch implements the tool facade behind every transport.
//
// The dispatcher validates a read-aloud request, applies defaults, and then
// runs the configured deployment mode: in file mode it synthesizes to a new
// file in the store, records metadata and optionally plays the file; in
// speak mode the engine speaks directly and nothing is stored. Playback
// failures never fail a request whose file was produced.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/message"
	"github.com/nadzzz/readaloud/internal/playback"
	"github.com/nadzzz/readaloud/internal/storage"
	"github.com/nadzzz/readaloud/internal/tts"
)

// Player plays a stored audio file.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Options configures a Dispatcher.
type Options struct {
	// Mode is config.ModeFile or config.ModeSpeak.
	Mode string

	// CleanupChance is the probability that a file-mode request starts a
	// background retention sweep.
	CleanupChance float64
}

// Dispatcher is the tool facade.
type Dispatcher struct {
	engine tts.Engine
	store  *storage.Store // nil in speak mode
	player Player
	opts   Options

	// chance and now are replaceable for tests.
	chance func() float64
	now    func() time.Time

	sweeps sync.WaitGroup
}

// New creates a Dispatcher. store may be nil when opts.Mode is speak.
func New(engine tts.Engine, store *storage.Store, player Player, opts Options) *Dispatcher {
	if opts.Mode == "" {
		opts.Mode = config.ModeFile
	}
	return &Dispatcher{
		engine: engine,
		store:  store,
		player: player,
		opts:   opts,
		chance: rand.Float64,
		now:    time.Now,
	}
}

// Mode returns the deployment mode.
func (d *Dispatcher) Mode() string { return d.opts.Mode }

// Engine returns the synthesis engine, for readiness probes.
func (d *Dispatcher) Engine() tts.Engine { return d.engine }

// ReadAloud converts req.Text to speech. Errors wrap tts.ErrInvalidInput,
// tts.ErrEngineUnavailable or tts.ErrSynthesisFailed.
func (d *Dispatcher) ReadAloud(ctx context.Context, req *message.ReadAloudRequest) (*message.ReadAloudResult, error) {
	if err := tts.ValidateText(req.Text); err != nil {
		return nil, err
	}
	format, err := tts.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	opts := tts.DefaultOptions()
	opts.Voice = req.Voice
	opts.Format = format
	if req.Rate != nil {
		opts.Rate = *req.Rate
	}
	if req.Volume != nil {
		opts.Volume = *req.Volume
	}
	if err := tts.ValidateOptions(opts); err != nil {
		return nil, err
	}
	play := req.Play == nil || *req.Play

	logger := slog.With("mode", d.opts.Mode, "engine", d.engine.Name())
	logger.Info("read aloud", "text_length", len(req.Text), "voice", opts.Voice, "format", format, "play", play)

	if d.opts.Mode == config.ModeSpeak {
		return d.speak(ctx, logger, req.Text, opts, play)
	}
	return d.generate(ctx, logger, req.Text, opts, play)
}

func (d *Dispatcher) speak(ctx context.Context, logger *slog.Logger, text string, opts tts.Options, play bool) (*message.ReadAloudResult, error) {
	if !play {
		return nil, fmt.Errorf("%w: play=false has no effect when the server speaks directly", tts.ErrInvalidInput)
	}
	if err := d.engine.Speak(ctx, text, opts); err != nil {
		logger.Error("speak failed", "error", err)
		return nil, err
	}
	return &message.ReadAloudResult{Message: "Played text aloud", Played: true}, nil
}

func (d *Dispatcher) generate(ctx context.Context, logger *slog.Logger, text string, opts tts.Options, play bool) (*message.ReadAloudResult, error) {
	path := d.store.Path(d.store.GenerateFilename(opts.Format))

	start := time.Now()
	res, err := d.engine.GenerateSpeech(ctx, text, path, opts)
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		return nil, err
	}
	logger.Info("audio generated", "file", res.FilePath, "size", res.Size, "duration", time.Since(start))

	md := &storage.Metadata{
		Path:         res.FilePath,
		Size:         res.Size,
		CreatedAt:    d.now(),
		Duration:     res.Duration,
		OriginalText: text,
		Format:       string(res.Format),
	}
	if err := d.store.SaveMetadata(md); err != nil {
		logger.Warn("saving metadata failed", "file", res.FilePath, "error", err)
	}

	// Clients get the bare file name, never the output directory.
	name := filepath.Base(res.FilePath)
	result := &message.ReadAloudResult{
		Message:   "Generated audio file: " + name,
		AudioFile: name,
		FileSize:  &res.Size,
	}
	if play {
		if err := d.player.Play(ctx, res.FilePath); err != nil {
			logger.Warn("playback failed", "file", res.FilePath, "error", err)
			if !errors.Is(err, playback.ErrPlaybackFailed) {
				err = fmt.Errorf("%w: %w", playback.ErrPlaybackFailed, err)
			}
			result.Message = fmt.Sprintf("Generated audio file: %s (%v)", name, err)
		} else {
			result.Played = true
			result.Message = "Generated and played audio: " + name
		}
	}

	d.maybeCleanup(ctx)
	return result, nil
}

// maybeCleanup starts a background sweep with probability CleanupChance.
func (d *Dispatcher) maybeCleanup(ctx context.Context) {
	if d.opts.CleanupChance <= 0 || d.chance() >= d.opts.CleanupChance {
		return
	}
	d.sweeps.Add(1)
	go func() {
		defer d.sweeps.Done()
		d.store.Cleanup(context.WithoutCancel(ctx))
	}()
}

// ListVoices returns the engine's voices. It never fails.
func (d *Dispatcher) ListVoices(ctx context.Context) *message.VoicesResult {
	voices := d.engine.Voices(ctx)
	if voices == nil {
		voices = []string{}
	}
	return &message.VoicesResult{AvailableVoices: voices}
}

// ListAudio lists stored audio files, newest first. It is empty in speak mode.
func (d *Dispatcher) ListAudio(ctx context.Context) (*message.AudioListResult, error) {
	result := &message.AudioListResult{Files: []message.AudioFile{}}
	if d.store == nil {
		return result, nil
	}
	files, err := d.store.ListAudioFiles()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		result.Files = append(result.Files, message.AudioFile{
			Name:         f.Name(),
			Path:         f.Path,
			Size:         f.Size,
			CreatedAt:    f.CreatedAt,
			Duration:     f.Duration,
			OriginalText: f.OriginalText,
			Format:       f.Format,
		})
	}
	return result, nil
}

// Cleanup runs a retention sweep now and returns the number of files removed.
func (d *Dispatcher) Cleanup(ctx context.Context) int {
	if d.store == nil {
		return 0
	}
	return d.store.Cleanup(ctx)
}

// Wait blocks until background sweeps have finished.
func (d *Dispatcher) Wait() {
	d.sweeps.Wait()
}
