// Package wyoming implements the TTS Engine against a Piper server speaking
// the Wyoming protocol over TCP.
//
// The linuxserver/piper container exposes the Wyoming protocol on TCP port
// 10200. Rendered audio is written to the output file locally, so the rest
// of the file lifecycle is the same as for the subprocess engine.
//
// Wyoming protocol format (per event):
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
package wyoming

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/tts"
)

const (
	dialTimeout    = 10 * time.Second
	requestTimeout = 30 * time.Second
	probeTimeout   = 2 * time.Second
)

// Synthesizer implements tts.Engine using the Wyoming protocol.
type Synthesizer struct {
	endpoint   string // host:port of the Piper Wyoming server
	voice      string // default voice
	transcoder *tts.Transcoder
}

// New creates a Wyoming synthesizer from config.
func New(cfg config.WyomingConfig, transcoder *tts.Transcoder) *Synthesizer {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "tcp://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return &Synthesizer{
		endpoint:   endpoint,
		voice:      cfg.Voice,
		transcoder: transcoder,
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return config.BackendWyoming }

// Available reports whether the server accepts TCP connections.
func (s *Synthesizer) Available(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		slog.Debug("wyoming probe failed", "endpoint", s.endpoint, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}

// GenerateSpeech synthesizes text on the server and writes the audio to
// outputPath. The protocol has no speed control, so opts.Rate is ignored;
// opts.Volume attenuates the PCM samples.
func (s *Synthesizer) GenerateSpeech(ctx context.Context, text, outputPath string, opts tts.Options) (*tts.Result, error) {
	if err := tts.ValidateText(text); err != nil {
		return nil, err
	}

	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	slog.Debug("wyoming synthesize", "text_length", len(text), "voice", voice, "endpoint", s.endpoint)

	synthEvent := event{
		Type: "synthesize",
		Data: map[string]any{"text": text},
	}
	if voice != "" {
		synthEvent.Data["voice"] = map[string]any{"name": voice}
	}
	if err := writeEvent(conn, synthEvent, nil); err != nil {
		return nil, fmt.Errorf("%w: sending synthesize event: %v", tts.ErrSynthesisFailed, err)
	}

	// Read response events: audio-start → audio-chunk* → audio-stop
	var (
		pcmBuf     bytes.Buffer
		sampleRate = 22050
		channels   = 1
		width      = 2
	)

	r := bufio.NewReader(conn)
	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading wyoming event: %v", tts.ErrSynthesisFailed, err)
		}

		switch evt.Type {
		case "audio-start":
			if rate, ok := evt.Data["rate"].(float64); ok {
				sampleRate = int(rate)
			}
			if ch, ok := evt.Data["channels"].(float64); ok {
				channels = int(ch)
			}
			if w, ok := evt.Data["width"].(float64); ok {
				width = int(w)
			}

		case "audio-chunk":
			pcmBuf.Write(payload)

		case "audio-stop":
			pcm := pcmBuf.Bytes()
			if width == 2 {
				attenuate(pcm, tts.ClampVolume(opts.Volume))
			}
			return s.writeAudio(ctx, pcmToWAV(pcm, sampleRate, channels, width), outputPath, opts.Format)

		case "error":
			msg := "unknown error"
			if text, ok := evt.Data["text"].(string); ok {
				msg = text
			}
			return nil, fmt.Errorf("%w: piper error: %s", tts.ErrSynthesisFailed, msg)

		default:
			slog.Debug("wyoming unknown event", "type", evt.Type)
		}
	}
}

func (s *Synthesizer) writeAudio(ctx context.Context, wav []byte, outputPath string, format tts.Format) (*tts.Result, error) {
	wavPath := tts.TempWAVPath(outputPath, format)
	if err := os.WriteFile(wavPath, wav, 0o644); err != nil {
		_ = os.Remove(wavPath)
		return nil, fmt.Errorf("%w: writing audio: %v", tts.ErrSynthesisFailed, err)
	}
	return s.transcoder.Finalize(ctx, wavPath, outputPath, format)
}

// Speak is not supported: the server has no access to the local speakers.
func (s *Synthesizer) Speak(ctx context.Context, text string, opts tts.Options) error {
	if err := tts.ValidateText(text); err != nil {
		return err
	}
	return fmt.Errorf("%w: the wyoming backend cannot speak directly, use file mode", tts.ErrSynthesisFailed)
}

// Voices asks the server to describe itself and returns the voice names of
// every TTS program it reports.
func (s *Synthesizer) Voices(ctx context.Context) []string {
	voices, err := s.describe(ctx)
	if err != nil {
		slog.Warn("listing wyoming voices failed", "endpoint", s.endpoint, "error", err)
		return []string{}
	}
	return voices
}

func (s *Synthesizer) describe(ctx context.Context) ([]string, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := writeEvent(conn, event{Type: "describe"}, nil); err != nil {
		return nil, fmt.Errorf("sending describe event: %w", err)
	}
	r := bufio.NewReader(conn)
	for {
		evt, _, err := readEvent(r)
		if err != nil {
			return nil, err
		}
		if evt.Type != "info" {
			continue
		}
		return infoVoices(evt.Data), nil
	}
}

// infoVoices walks data.tts[].voices[].name of an info event.
func infoVoices(data map[string]any) []string {
	voices := []string{}
	seen := make(map[string]bool)
	programs, _ := data["tts"].([]any)
	for _, p := range programs {
		program, _ := p.(map[string]any)
		list, _ := program["voices"].([]any)
		for _, v := range list {
			voice, _ := v.(map[string]any)
			name, _ := voice["name"].(string)
			if name != "" && !seen[name] {
				seen[name] = true
				voices = append(voices, name)
			}
		}
	}
	return voices
}

func (s *Synthesizer) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %v", tts.ErrEngineUnavailable, s.endpoint, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(requestTimeout))
	}
	return conn, nil
}

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Upper bounds on a single event. A header announcing more is treated as a
// protocol error instead of an allocation.
const (
	maxEventJSON    = 1 << 20
	maxEventPayload = 64 << 20
)

// writeEvent sends a Wyoming event over the connection in a single write.
func writeEvent(w io.Writer, evt event, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	frame := make([]byte, 0, len(body)+len(payload)+24)
	frame = strconv.AppendInt(frame, int64(len(body)), 10)
	frame = append(frame, ' ')
	frame = strconv.AppendInt(frame, int64(len(payload)), 10)
	frame = append(frame, '\n')
	frame = append(frame, body...)
	frame = append(frame, '\n')
	frame = append(frame, payload...)
	_, err = w.Write(frame)
	return err
}

// readEvent reads the next Wyoming event. The same reader must be used for
// every event of a connection since it buffers ahead.
func readEvent(r *bufio.Reader) (*event, []byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	jsonLen, payloadLen, err := parseHeader(strings.TrimSpace(header))
	if err != nil {
		return nil, nil, err
	}

	body := make([]byte, jsonLen+1) // trailing newline
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}
	var evt event
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	if payloadLen == 0 {
		return &evt, nil, nil
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, fmt.Errorf("reading payload: %w", err)
	}
	return &evt, payload, nil
}

// parseHeader splits "<json_length> <payload_length>" and checks both bounds.
func parseHeader(header string) (jsonLen, payloadLen int, err error) {
	a, b, ok := strings.Cut(header, " ")
	if !ok {
		return 0, 0, fmt.Errorf("invalid wyoming header: %q", header)
	}
	if jsonLen, err = strconv.Atoi(a); err != nil || jsonLen < 0 || jsonLen > maxEventJSON {
		return 0, 0, fmt.Errorf("invalid json length in wyoming header: %q", header)
	}
	if payloadLen, err = strconv.Atoi(strings.TrimSpace(b)); err != nil || payloadLen < 0 || payloadLen > maxEventPayload {
		return 0, 0, fmt.Errorf("invalid payload length in wyoming header: %q", header)
	}
	return jsonLen, payloadLen, nil
}

// attenuate scales 16-bit little-endian PCM samples in place.
func attenuate(pcm []byte, volume float64) {
	if volume >= 1 {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(float64(sample)*volume)))
	}
}

// wavHeaderSize is the size of a canonical 16-byte-fmt RIFF/WAVE header.
const wavHeaderSize = 44

// pcmToWAV prefixes pcm with a canonical WAV header for integer PCM of the
// given sample rate, channel count and sample width in bytes.
func pcmToWAV(pcm []byte, sampleRate, channels, width int) []byte {
	le := binary.LittleEndian
	wav := make([]byte, wavHeaderSize, wavHeaderSize+len(pcm))

	copy(wav[0:], "RIFF")
	le.PutUint32(wav[4:], uint32(wavHeaderSize-8+len(pcm)))
	copy(wav[8:], "WAVE")

	copy(wav[12:], "fmt ")
	le.PutUint32(wav[16:], 16)
	le.PutUint16(wav[20:], 1) // integer PCM
	le.PutUint16(wav[22:], uint16(channels))
	le.PutUint32(wav[24:], uint32(sampleRate))
	le.PutUint32(wav[28:], uint32(sampleRate*channels*width))
	le.PutUint16(wav[32:], uint16(channels*width))
	le.PutUint16(wav[34:], uint16(width*8))

	copy(wav[36:], "data")
	le.PutUint32(wav[40:], uint32(len(pcm)))
	return append(wav, pcm...)
}
