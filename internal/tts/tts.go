// Package tts defines the interface for text-to-speech synthesis.
//
// An Engine either renders text into an audio file or speaks it directly on
// the default output device. Engines are stateless between calls: every
// request starts a fresh subprocess or connection.
package tts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// Error taxonomy shared by every engine. Wrapped errors read as
// "<stage>: <detail>", so the message alone names the failed stage.
var (
	// ErrInvalidInput rejects empty text or malformed options.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEngineUnavailable means the synthesis engine is not installed or reachable.
	ErrEngineUnavailable = errors.New("speech engine unavailable")

	// ErrSynthesisFailed means the engine ran but did not produce audio.
	ErrSynthesisFailed = errors.New("synthesis failed")
)

// Rate and volume bounds. Values outside are clamped, never rejected.
const (
	MinRate   = 0.1
	MaxRate   = 10.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// Format is an audio container format.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatOGG Format = "ogg"
)

// Formats lists the supported formats in preference order.
var Formats = []Format{FormatWAV, FormatMP3, FormatOGG}

// ParseFormat converts a user-supplied format name. The empty string means WAV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatWAV, nil
	case FormatWAV, FormatMP3, FormatOGG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q (want wav, mp3 or ogg)", ErrInvalidInput, s)
	}
}

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string { return "." + string(f) }

// Options controls synthesis behavior.
type Options struct {
	// Voice is an engine-specific voice identifier. Empty selects the engine default.
	Voice string

	// Rate is the speaking speed multiplier; 1.0 is the engine's default speed.
	Rate float64

	// Volume is the output level between 0.0 and 1.0.
	Volume float64

	// Format is the container of the produced file.
	Format Format
}

// DefaultOptions returns rate 1.0, full volume and WAV output.
func DefaultOptions() Options {
	return Options{Rate: 1.0, Volume: 1.0, Format: FormatWAV}
}

// Result holds the output of one synthesis call.
type Result struct {
	FilePath string
	Size     int64
	Format   Format

	// Duration in seconds. Nil: no engine measures it.
	Duration *float64
}

// Engine converts text to audio.
type Engine interface {
	// Name returns the backend identifier (e.g., "espeak", "wyoming").
	Name() string

	// Available reports whether the engine can be used on this host.
	Available(ctx context.Context) bool

	// GenerateSpeech renders text into a file at outputPath.
	GenerateSpeech(ctx context.Context, text, outputPath string, opts Options) (*Result, error)

	// Speak renders text straight to the default audio device.
	Speak(ctx context.Context, text string, opts Options) error

	// Voices lists the voice identifiers the engine offers. It never fails:
	// problems are logged and yield an empty list.
	Voices(ctx context.Context) []string
}

// ClampRate limits rate to [MinRate, MaxRate]. NaN becomes 1.0.
func ClampRate(rate float64) float64 {
	if math.IsNaN(rate) {
		return 1.0
	}
	return min(max(rate, MinRate), MaxRate)
}

// ClampVolume limits volume to [MinVolume, MaxVolume]. NaN becomes 1.0.
func ClampVolume(volume float64) float64 {
	if math.IsNaN(volume) {
		return 1.0
	}
	return min(max(volume, MinVolume), MaxVolume)
}

// ValidateOptions rejects a rate or volume that is not a number.
func ValidateOptions(opts Options) error {
	if math.IsNaN(opts.Rate) {
		return fmt.Errorf("%w: rate must be a number", ErrInvalidInput)
	}
	if math.IsNaN(opts.Volume) {
		return fmt.Errorf("%w: volume must be a number", ErrInvalidInput)
	}
	return nil
}

// ValidateText rejects text that is empty after trimming whitespace.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text cannot be empty", ErrInvalidInput)
	}
	return nil
}

// StatResult builds a Result for a file an engine has just written.
func StatResult(path string, format Format) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: output file missing: %v", ErrSynthesisFailed, err)
	}
	return &Result{FilePath: path, Size: info.Size(), Format: format}, nil
}
