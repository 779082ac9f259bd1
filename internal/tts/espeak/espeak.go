// Package espeak implements the TTS Engine by running espeak-ng (or the
// older espeak) as a subprocess.
//
// Invocation:
//
//	espeak-ng [-v voice] -s <wpm> -a <amplitude> [-w <file>] -- <text>
//	espeak-ng --voices
package espeak

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/proc"
	"github.com/nadzzz/readaloud/internal/tts"
)

// voiceNameField is the 0-based column of the voice name in --voices output:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
const voiceNameField = 3

// Engine implements tts.Engine on top of the espeak command line.
type Engine struct {
	runner       proc.Runner
	transcoder   *tts.Transcoder
	binaries     []string
	baselineWPM  int
	maxAmplitude int
}

// New creates an espeak engine from config.
func New(cfg config.EspeakConfig, runner proc.Runner, transcoder *tts.Transcoder) *Engine {
	return &Engine{
		runner:       runner,
		transcoder:   transcoder,
		binaries:     cfg.Binaries,
		baselineWPM:  cfg.BaselineWPM,
		maxAmplitude: cfg.MaxAmplitude,
	}
}

// Name returns the backend identifier.
func (e *Engine) Name() string { return config.BackendEspeak }

// Available reports whether one of the configured binaries is on the search path.
func (e *Engine) Available(ctx context.Context) bool {
	_, err := e.binary()
	return err == nil
}

// binary returns the first configured binary found on the search path.
func (e *Engine) binary() (string, error) {
	for _, name := range e.binaries {
		if path, err := e.runner.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: install one of %s", tts.ErrEngineUnavailable, strings.Join(e.binaries, ", "))
}

// WordsPerMinute maps a rate multiplier onto espeak's -s scale. The rate is
// clamped first, so out-of-range values saturate.
func (e *Engine) WordsPerMinute(rate float64) int {
	return int(math.Round(tts.ClampRate(rate) * float64(e.baselineWPM)))
}

// Amplitude maps a 0.0-1.0 volume onto espeak's -a scale.
func (e *Engine) Amplitude(volume float64) int {
	return int(math.Round(tts.ClampVolume(volume) * float64(e.maxAmplitude)))
}

// args builds the command line. An empty outputPath speaks directly.
func (e *Engine) args(text, outputPath string, opts tts.Options) []string {
	args := make([]string, 0, 10)
	if opts.Voice != "" {
		args = append(args, "-v", opts.Voice)
	}
	args = append(args,
		"-s", strconv.Itoa(e.WordsPerMinute(opts.Rate)),
		"-a", strconv.Itoa(e.Amplitude(opts.Volume)),
	)
	if outputPath != "" {
		args = append(args, "-w", outputPath)
	}
	// "--" keeps text that starts with a dash from being read as a flag.
	return append(args, "--", text)
}

// GenerateSpeech renders text into outputPath.
func (e *Engine) GenerateSpeech(ctx context.Context, text, outputPath string, opts tts.Options) (*tts.Result, error) {
	if err := tts.ValidateText(text); err != nil {
		return nil, err
	}
	bin, err := e.binary()
	if err != nil {
		return nil, err
	}

	wavPath := tts.TempWAVPath(outputPath, opts.Format)
	if err := e.run(ctx, bin, e.args(text, wavPath, opts)); err != nil {
		// A failed run may leave a truncated file behind.
		_ = os.Remove(wavPath)
		return nil, err
	}

	res, err := e.transcoder.Finalize(ctx, wavPath, outputPath, opts.Format)
	if err != nil {
		return nil, err
	}
	slog.Debug("espeak generated speech", "path", res.FilePath, "bytes", res.Size, "format", res.Format)
	return res, nil
}

// Speak renders text straight to the default audio device.
func (e *Engine) Speak(ctx context.Context, text string, opts tts.Options) error {
	if err := tts.ValidateText(text); err != nil {
		return err
	}
	bin, err := e.binary()
	if err != nil {
		return err
	}
	return e.run(ctx, bin, e.args(text, "", opts))
}

func (e *Engine) run(ctx context.Context, bin string, args []string) error {
	_, err := e.runner.Run(ctx, bin, args...)
	if err == nil {
		return nil
	}
	if proc.IsExit(err) {
		return fmt.Errorf("%w: espeak %v", tts.ErrSynthesisFailed, err)
	}
	return fmt.Errorf("%w: could not run espeak: %v", tts.ErrSynthesisFailed, err)
}

// Voices lists the installed voice names in output order, without duplicates.
func (e *Engine) Voices(ctx context.Context) []string {
	bin, err := e.binary()
	if err != nil {
		slog.Warn("listing voices: engine unavailable", "error", err)
		return []string{}
	}
	res, err := e.runner.Run(ctx, bin, "--voices")
	if err != nil {
		slog.Warn("listing voices failed", "error", err)
		return []string{}
	}
	return parseVoices(string(res.Stdout))
}

// parseVoices extracts voice names from --voices output, skipping the header
// row, blank lines and rows too short to carry a name.
func parseVoices(out string) []string {
	voices := []string{}
	seen := make(map[string]bool)
	header := true
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if header {
			header = false
			continue
		}
		if len(fields) <= voiceNameField {
			continue
		}
		name := fields[voiceNameField]
		if !seen[name] {
			seen[name] = true
			voices = append(voices, name)
		}
	}
	return voices
}
