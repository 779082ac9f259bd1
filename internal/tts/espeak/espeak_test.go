package espeak

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/proc/proctest"
	"github.com/nadzzz/readaloud/internal/tts"
)

func newEngine(runner *proctest.Runner) *Engine {
	cfg := config.EspeakConfig{
		Binaries:     []string{"espeak-ng", "espeak"},
		BaselineWPM:  175,
		MaxAmplitude: 200,
	}
	return New(cfg, runner, tts.NewTranscoder(runner, "ffmpeg"))
}

// writeWAV makes a scripted espeak write its -w target like the real one.
func writeWAV(size int) proctest.Response {
	return proctest.Response{
		Do: func(args []string) error {
			for i, a := range args {
				if a == "-w" {
					return os.WriteFile(args[i+1], make([]byte, size), 0o644)
				}
			}
			return nil
		},
	}
}

func TestWordsPerMinute(t *testing.T) {
	e := newEngine(proctest.New())
	tests := []struct {
		rate float64
		want int
	}{
		{1.0, 175},
		{2.0, 350},
		{0.5, 88},
		{0.1, 18},
		{10.0, 1750},
		{50, 1750},
		{0, 18},
		{-3, 18},
	}
	for _, tt := range tests {
		if got := e.WordsPerMinute(tt.rate); got != tt.want {
			t.Errorf("WordsPerMinute(%v) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestWordsPerMinuteMonotonic(t *testing.T) {
	e := newEngine(proctest.New())
	prev := e.WordsPerMinute(-1)
	for rate := 0.0; rate <= 12; rate += 0.05 {
		got := e.WordsPerMinute(rate)
		if got < prev {
			t.Fatalf("WordsPerMinute(%v) = %d < previous %d", rate, got, prev)
		}
		prev = got
	}
}

func TestAmplitude(t *testing.T) {
	e := newEngine(proctest.New())
	tests := []struct {
		volume float64
		want   int
	}{
		{0, 0},
		{1, 200},
		{0.5, 100},
		{-5, 0},
		{7, 200},
	}
	for _, tt := range tests {
		if got := e.Amplitude(tt.volume); got != tt.want {
			t.Errorf("Amplitude(%v) = %d, want %d", tt.volume, got, tt.want)
		}
	}
}

func TestGenerateSpeech(t *testing.T) {
	runner := proctest.New("espeak-ng").On("espeak-ng", writeWAV(1024))
	e := newEngine(runner)
	out := filepath.Join(t.TempDir(), "out.wav")

	opts := tts.Options{Voice: "en-us", Rate: 1.5, Volume: 0.25, Format: tts.FormatWAV}
	res, err := e.GenerateSpeech(context.Background(), "Hello world", out, opts)
	if err != nil {
		t.Fatalf("GenerateSpeech() error = %v", err)
	}
	if res.FilePath != out || res.Size != 1024 || res.Format != tts.FormatWAV || res.Duration != nil {
		t.Errorf("result = %+v", res)
	}

	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %v", calls)
	}
	want := []string{"-v", "en-us", "-s", "263", "-a", "50", "-w", out, "--", "Hello world"}
	if !reflect.DeepEqual(calls[0].Args, want) {
		t.Errorf("args = %q, want %q", calls[0].Args, want)
	}
	if calls[0].Name != "/usr/bin/espeak-ng" {
		t.Errorf("binary = %q", calls[0].Name)
	}
}

func TestGenerateSpeechFallsBackToEspeak(t *testing.T) {
	runner := proctest.New("espeak").On("espeak", writeWAV(10))
	e := newEngine(runner)
	out := filepath.Join(t.TempDir(), "out.wav")

	if _, err := e.GenerateSpeech(context.Background(), "hi", out, tts.DefaultOptions()); err != nil {
		t.Fatalf("GenerateSpeech() error = %v", err)
	}
	if calls := runner.Calls(); calls[0].Name != "/usr/bin/espeak" {
		t.Errorf("binary = %q, want espeak", calls[0].Name)
	}
}

func TestGenerateSpeechOmitsEmptyVoice(t *testing.T) {
	runner := proctest.New("espeak-ng").On("espeak-ng", writeWAV(10))
	out := filepath.Join(t.TempDir(), "out.wav")

	if _, err := newEngine(runner).GenerateSpeech(context.Background(), "hi", out, tts.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	for _, a := range runner.Calls()[0].Args {
		if a == "-v" {
			t.Fatalf("unexpected -v flag in %v", runner.Calls()[0].Args)
		}
	}
}

func TestGenerateSpeechMP3(t *testing.T) {
	runner := proctest.New("espeak-ng", "ffmpeg").
		On("espeak-ng", writeWAV(100)).
		On("ffmpeg", proctest.Response{
			Do: func(args []string) error {
				return os.WriteFile(args[len(args)-1], make([]byte, 40), 0o644)
			},
		})
	dir := t.TempDir()
	out := filepath.Join(dir, "out.mp3")

	opts := tts.DefaultOptions()
	opts.Format = tts.FormatMP3
	res, err := newEngine(runner).GenerateSpeech(context.Background(), "hi", out, opts)
	if err != nil {
		t.Fatalf("GenerateSpeech() error = %v", err)
	}
	if res.Size != 40 || res.Format != tts.FormatMP3 {
		t.Errorf("result = %+v", res)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "out.mp3" {
		t.Errorf("directory holds %v, want only out.mp3", entries)
	}
}

func TestGenerateSpeechErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.wav")

	tests := []struct {
		name    string
		runner  *proctest.Runner
		text    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "blank text",
			runner:  proctest.New("espeak-ng"),
			text:    "  \t",
			wantErr: tts.ErrInvalidInput,
		},
		{
			name:    "not installed",
			runner:  proctest.New(),
			text:    "hello",
			wantErr: tts.ErrEngineUnavailable,
		},
		{
			name:    "non-zero exit",
			runner:  proctest.New("espeak-ng").On("espeak-ng", proctest.Exit(1, "unknown voice 'xx'")),
			text:    "hello",
			wantErr: tts.ErrSynthesisFailed,
			wantMsg: "unknown voice 'xx'",
		},
		{
			name: "spawn failure",
			runner: proctest.New("espeak-ng").On("espeak-ng", proctest.Response{
				Err: errors.New("permission denied"),
			}),
			text:    "hello",
			wantErr: tts.ErrSynthesisFailed,
			wantMsg: "could not run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEngine(tt.runner).GenerateSpeech(context.Background(), tt.text, out, tts.DefaultOptions())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestGenerateSpeechRemovesPartialFile(t *testing.T) {
	runner := proctest.New("espeak-ng").On("espeak-ng", proctest.Response{
		Do: func(args []string) error {
			return os.WriteFile(args[len(args)-3], []byte("RIF"), 0o644)
		},
		Err: proctest.Exit(1, "").Err,
	})
	out := filepath.Join(t.TempDir(), "out.wav")

	if _, err := newEngine(runner).GenerateSpeech(context.Background(), "hello", out, tts.DefaultOptions()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}

func TestSpeak(t *testing.T) {
	runner := proctest.New("espeak-ng")
	if err := newEngine(runner).Speak(context.Background(), "Hello", tts.DefaultOptions()); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	want := []string{"-s", "175", "-a", "200", "--", "Hello"}
	if got := runner.Calls()[0].Args; !reflect.DeepEqual(got, want) {
		t.Errorf("args = %q, want %q", got, want)
	}

	failing := proctest.New("espeak-ng").On("espeak-ng", proctest.Exit(2, "no audio device"))
	if err := newEngine(failing).Speak(context.Background(), "Hello", tts.DefaultOptions()); !errors.Is(err, tts.ErrSynthesisFailed) {
		t.Errorf("Speak() error = %v, want ErrSynthesisFailed", err)
	}
	if err := newEngine(runner).Speak(context.Background(), " ", tts.DefaultOptions()); !errors.Is(err, tts.ErrInvalidInput) {
		t.Errorf("Speak(blank) error = %v, want ErrInvalidInput", err)
	}
}

const voicesOutput = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)

 5  en              --/M      English_(Great_Britain) gmw/en       (en-gb 2)(en 2)
 5  en-us-nyc       --/M      English_(America)  gmw/en-US-nyc
 short row
`

func TestVoices(t *testing.T) {
	runner := proctest.New("espeak-ng").On("espeak-ng", proctest.Response{Stdout: voicesOutput})
	got := newEngine(runner).Voices(context.Background())
	want := []string{"Afrikaans", "English_(America)", "English_(Great_Britain)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Voices() = %q, want %q", got, want)
	}
	if args := runner.Calls()[0].Args; !reflect.DeepEqual(args, []string{"--voices"}) {
		t.Errorf("args = %q", args)
	}
}

func TestVoicesDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name   string
		runner *proctest.Runner
	}{
		{"not installed", proctest.New()},
		{"non-zero exit", proctest.New("espeak-ng").On("espeak-ng", proctest.Exit(1, "boom"))},
		{"header only", proctest.New("espeak-ng").On("espeak-ng", proctest.Response{Stdout: "Pty Language Age/Gender VoiceName\n"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newEngine(tt.runner).Voices(context.Background())
			if got == nil || len(got) != 0 {
				t.Errorf("Voices() = %#v, want empty non-nil", got)
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	if !newEngine(proctest.New("espeak")).Available(context.Background()) {
		t.Error("Available() = false with espeak installed")
	}
	if newEngine(proctest.New("say")).Available(context.Background()) {
		t.Error("Available() = true without espeak")
	}
}
