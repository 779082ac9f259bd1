// Package mcpserver registers the readaloud tools on an MCP server.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nadzzz/readaloud/internal/message"
	"github.com/nadzzz/readaloud/internal/transport"
)

// Tool names.
const (
	ToolReadAloud  = "read_aloud"
	ToolListVoices = "list_voices"
	ToolListAudio  = "list_audio_files"
)

// New returns an MCP server exposing svc as tools.
func New(svc transport.Service, version string) *mcp.Server {
	impl := &mcp.Implementation{
		Name:    "readaloud",
		Title:   "Read Aloud",
		Version: version,
	}
	s := mcp.NewServer(impl, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolReadAloud,
		Title:       "Read Aloud",
		Description: "Convert text to speech, save it as an audio file and optionally play it on the server's speakers",
		Annotations: &mcp.ToolAnnotations{
			Title:        "Text-to-Speech",
			ReadOnlyHint: false,
		},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input message.ReadAloudRequest) (*mcp.CallToolResult, any, error) {
		res, err := svc.ReadAloud(ctx, &input)
		if err != nil {
			slog.Warn("read_aloud failed", "error", err)
			return errorResult(err, &message.ReadAloudResult{Message: "Error: " + err.Error()}), nil, nil
		}
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: res.Message}},
			StructuredContent: res,
		}, nil, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolListVoices,
		Title:       "List Voices",
		Description: "List the voices available to the speech engine",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ message.ListVoicesRequest) (*mcp.CallToolResult, any, error) {
		return jsonResult(svc.ListVoices(ctx)), nil, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolListAudio,
		Title:       "List Audio Files",
		Description: "List previously generated audio files, newest first",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ message.ListAudioRequest) (*mcp.CallToolResult, any, error) {
		res, err := svc.ListAudio(ctx)
		if err != nil {
			slog.Warn("list_audio_files failed", "error", err)
			return errorResult(err, &message.ErrorResult{Error: err.Error()}), nil, nil
		}
		return jsonResult(res), nil, nil
	})

	return s
}

// errorResult reports a failed call as a tool error carrying structured in
// the shape of the tool's output. The text names the failed stage because
// every sentinel error reads as one.
func errorResult(err error, structured any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		StructuredContent: structured,
		IsError:           true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err, &message.ErrorResult{Error: err.Error()})
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: v,
	}
}
