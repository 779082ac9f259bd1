// Package stdio serves the MCP tools over standard input and output.
//
// This is how desktop MCP clients launch readaloud: as a child process that
// speaks newline-delimited JSON-RPC on stdin/stdout. Nothing else may write
// to stdout while this transport runs, so logs go to stderr.
package stdio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nadzzz/readaloud/internal/mcpserver"
	"github.com/nadzzz/readaloud/internal/transport"
)

// Transport implements transport.Transport over stdin/stdout.
type Transport struct {
	version string
	mcp     mcp.Transport // nil means the process's stdin/stdout
}

// New creates a stdio transport.
func New(version string) *Transport {
	return &Transport{version: version}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "stdio" }

// Listen serves svc until ctx is cancelled or the client closes stdin.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	conn := t.mcp
	if conn == nil {
		conn = &mcp.StdioTransport{}
	}

	slog.Info("stdio transport ready")
	err := mcpserver.New(svc, t.version).Run(ctx, conn)
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		slog.Info("stdio transport closed")
		return nil
	default:
		return fmt.Errorf("stdio transport: %w", err)
	}
}

// Close is a no-op: the session ends with its context or its input stream.
func (t *Transport) Close() error { return nil }
