// Package playback plays audio files through the host's command-line players.
//
// Players are chosen from a capability table keyed by platform family. Only
// the unix family carries fallbacks: desktop Linux installs vary, so aplay is
// tried first and PulseAudio, ffplay and mpv after it.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/proc"
)

// ErrPlaybackFailed means no player could play the file.
var ErrPlaybackFailed = errors.New("playback failed")

// Platform families.
const (
	FamilyUnix    = "unix"
	FamilyDarwin  = "darwin"
	FamilyWindows = "windows"
)

// Command is one way to play a file.
type Command struct {
	Name string
	Args func(path string) []string
}

// Capability lists the players of a platform family in the order they are tried.
type Capability struct {
	Primary   Command
	Fallbacks []Command
}

// Capabilities is the player table for every supported family.
var Capabilities = map[string]Capability{
	FamilyUnix: {
		Primary: Command{Name: "aplay", Args: func(p string) []string { return []string{"-q", p} }},
		Fallbacks: []Command{
			{Name: "paplay", Args: func(p string) []string { return []string{p} }},
			{Name: "ffplay", Args: func(p string) []string { return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", p} }},
			{Name: "mpv", Args: func(p string) []string { return []string{"--no-video", "--really-quiet", p} }},
		},
	},
	FamilyDarwin: {
		Primary: Command{Name: "afplay", Args: func(p string) []string { return []string{p} }},
	},
	FamilyWindows: {
		Primary: Command{Name: "powershell", Args: func(p string) []string {
			return []string{"-NoProfile", "-Command", fmt.Sprintf("(New-Object Media.SoundPlayer %s).PlaySync()", psQuote(p))}
		}},
	},
}

// psQuote renders s as a PowerShell single-quoted string literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Family maps a GOOS value onto its platform family.
func Family(goos string) string {
	switch goos {
	case "darwin", "ios":
		return FamilyDarwin
	case "windows":
		return FamilyWindows
	default:
		return FamilyUnix
	}
}

// Player plays files with the players of one platform family.
type Player struct {
	runner  proc.Runner
	family  string
	cap     Capability
	timeout time.Duration
}

// New returns a Player for the running platform.
func New(runner proc.Runner, cfg config.PlaybackConfig) *Player {
	p := NewForPlatform(runtime.GOOS, runner)
	p.timeout = cfg.Timeout
	return p
}

// NewForPlatform returns a Player for the given GOOS, without a timeout.
func NewForPlatform(goos string, runner proc.Runner) *Player {
	family := Family(goos)
	return &Player{
		runner: runner,
		family: family,
		cap:    Capabilities[family],
	}
}

// Family returns the platform family the player was built for.
func (p *Player) Family() string { return p.family }

// Play blocks until the file has been played. The primary player is tried
// first, then each fallback in order; the first success wins.
func (p *Player) Play(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: audio file not found: %s", ErrPlaybackFailed, path)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	attempts := append([]Command{p.cap.Primary}, p.cap.Fallbacks...)
	var errs []error
	for _, cmd := range attempts {
		err := p.try(ctx, cmd, path)
		if err == nil {
			slog.Debug("played audio", "player", cmd.Name, "file", path)
			return nil
		}
		slog.Debug("player failed", "player", cmd.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", cmd.Name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%w: %w", ErrPlaybackFailed, errors.Join(errs...))
}

func (p *Player) try(ctx context.Context, cmd Command, path string) error {
	bin, err := p.runner.LookPath(cmd.Name)
	if err != nil {
		return errors.New("not installed")
	}
	_, err = p.runner.Run(ctx, bin, cmd.Args(path)...)
	return err
}
