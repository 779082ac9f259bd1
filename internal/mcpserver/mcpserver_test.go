package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nadzzz/readaloud/internal/message"
	"github.com/nadzzz/readaloud/internal/tts"
)

type fakeService struct {
	last    *message.ReadAloudRequest
	err     error
	voices  []string
	files   []message.AudioFile
	listErr error
}

func (f *fakeService) ReadAloud(ctx context.Context, req *message.ReadAloudRequest) (*message.ReadAloudResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	size := int64(2048)
	return &message.ReadAloudResult{
		Message:   "Generated and played audio: a.wav",
		AudioFile: "a.wav",
		FileSize:  &size,
		Played:    true,
	}, nil
}

func (f *fakeService) ListVoices(ctx context.Context) *message.VoicesResult {
	return &message.VoicesResult{AvailableVoices: f.voices}
}

func (f *fakeService) ListAudio(ctx context.Context) (*message.AudioListResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &message.AudioListResult{Files: f.files}, nil
}

// connect starts the server on in-memory transports and returns a client session.
func connect(t *testing.T, svc *fakeService) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()

	ss, err := New(svc, "test").Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %v, want one item", res.Content)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func structured(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("structured content %s: %v", data, err)
	}
}

func TestListTools(t *testing.T) {
	cs := connect(t, &fakeService{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	got := fmt.Sprint(names)
	for _, want := range []string{ToolReadAloud, ToolListVoices, ToolListAudio} {
		if !strings.Contains(got, want) {
			t.Errorf("tools %s missing %s", got, want)
		}
	}
}

func TestReadAloud(t *testing.T) {
	svc := &fakeService{}
	cs := connect(t, svc)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name: ToolReadAloud,
		Arguments: map[string]any{
			"text":   "Hello world",
			"voice":  "en-us",
			"rate":   1.5,
			"play":   false,
			"format": "ogg",
		},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("IsError = true: %s", text(t, res))
	}
	if got := text(t, res); got != "Generated and played audio: a.wav" {
		t.Errorf("text = %q", got)
	}

	var out message.ReadAloudResult
	structured(t, res, &out)
	if out.AudioFile != "a.wav" || out.FileSize == nil || *out.FileSize != 2048 || !out.Played {
		t.Errorf("structured = %+v", out)
	}

	req := svc.last
	if req.Text != "Hello world" || req.Voice != "en-us" || req.Format != "ogg" {
		t.Errorf("request = %+v", req)
	}
	if req.Rate == nil || *req.Rate != 1.5 || req.Volume != nil {
		t.Errorf("rate/volume = %v/%v", req.Rate, req.Volume)
	}
	if req.Play == nil || *req.Play {
		t.Errorf("play = %v, want explicit false", req.Play)
	}
}

func TestReadAloudError(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("%w: espeak-ng or espeak not found", tts.ErrEngineUnavailable)}
	cs := connect(t, svc)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolReadAloud,
		Arguments: map[string]any{"text": "hi"},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v, want a tool error result", err)
	}
	if !res.IsError {
		t.Fatal("IsError = false")
	}
	if got := text(t, res); !strings.HasPrefix(got, "Error: speech engine unavailable") {
		t.Errorf("text = %q, want the failed stage", got)
	}
	var out message.ReadAloudResult
	structured(t, res, &out)
	if out.Played || !strings.Contains(out.Message, "speech engine unavailable") {
		t.Errorf("structured = %+v", out)
	}
}

func TestListVoices(t *testing.T) {
	cs := connect(t, &fakeService{voices: []string{}})

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: ToolListVoices, Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.IsError {
		t.Fatal("list_voices must never fail")
	}
	if got := text(t, res); got != `{"availableVoices":[]}` {
		t.Errorf("text = %s", got)
	}
}

func TestListAudioFiles(t *testing.T) {
	created := time.Date(2024, 1, 15, 14, 30, 25, 0, time.UTC)
	cs := connect(t, &fakeService{files: []message.AudioFile{{
		Name:         "a.wav",
		Path:         "/out/a.wav",
		Size:         10,
		CreatedAt:    created,
		OriginalText: "hello",
		Format:       "wav",
	}}})

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: ToolListAudio, Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	var out message.AudioListResult
	structured(t, res, &out)
	if len(out.Files) != 1 || out.Files[0].OriginalText != "hello" || !out.Files[0].CreatedAt.Equal(created) {
		t.Errorf("files = %+v", out.Files)
	}
}

func TestListAudioFilesError(t *testing.T) {
	cs := connect(t, &fakeService{listErr: errors.New("reading output directory: permission denied")})

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: ToolListAudio, Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !res.IsError {
		t.Fatal("IsError = false")
	}
	var out map[string]any
	structured(t, res, &out)
	if out["error"] != "reading output directory: permission denied" {
		t.Errorf("structured = %v, want an error body", out)
	}
	if _, ok := out["message"]; ok {
		t.Errorf("structured = %v carries a read_aloud result", out)
	}
}
