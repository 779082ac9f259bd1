package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nadzzz/readaloud/internal/proc"
)

// Transcoder converts engine-native WAV output into the requested format
// with an ffmpeg-compatible binary.
type Transcoder struct {
	runner proc.Runner
	binary string
}

// NewTranscoder creates a Transcoder that runs binary (e.g. "ffmpeg").
func NewTranscoder(runner proc.Runner, binary string) *Transcoder {
	return &Transcoder{runner: runner, binary: binary}
}

// TempWAVPath returns where an engine should render before conversion to
// format. WAV output is rendered in place; anything else goes to a hidden
// sibling so a listing never shows the intermediate file.
func TempWAVPath(outputPath string, format Format) string {
	if format == FormatWAV {
		return outputPath
	}
	dir, base := filepath.Split(outputPath)
	return filepath.Join(dir, "."+base+".wav")
}

// Finalize turns the rendered wavPath into outputPath in the given format
// and returns the resulting file's Result. The intermediate file is removed.
func (t *Transcoder) Finalize(ctx context.Context, wavPath, outputPath string, format Format) (*Result, error) {
	if wavPath == outputPath {
		return StatResult(outputPath, format)
	}
	defer func() {
		if err := os.Remove(wavPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("removing intermediate wav", "path", wavPath, "error", err)
		}
	}()

	if t == nil || t.binary == "" {
		return nil, fmt.Errorf("%w: %s output requires a transcoder", ErrSynthesisFailed, format)
	}
	bin, err := t.runner.LookPath(t.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s output requires %s: %v", ErrSynthesisFailed, format, t.binary, err)
	}

	if _, err := t.runner.Run(ctx, bin, "-y", "-loglevel", "error", "-i", wavPath, outputPath); err != nil {
		_ = os.Remove(outputPath)
		return nil, fmt.Errorf("%w: converting to %s: %v", ErrSynthesisFailed, format, err)
	}
	return StatResult(outputPath, format)
}
