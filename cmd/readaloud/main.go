// Readaloud is an MCP server that reads text aloud.
//
// It exposes the read_aloud, list_voices and list_audio_files tools over MCP
// (stdio or streamable HTTP), plus a REST API and a gRPC service. Speech is
// synthesized with espeak-ng (or a Wyoming/Piper server), stored in an
// output directory with a metadata sidecar, and played with the host's
// command-line audio player.
//
// Usage:
//
//	readaloud [serve] [--http] [--port 8000] [--grpc]
//	readaloud say "Hello world" [--no-play]
//	readaloud --config /path/to/readaloud.yaml voices
//
// @title       readaloud API
// @version     1.0
// @description Text-to-speech over REST. MCP clients use the streamable HTTP endpoint at /mcp instead.
// @BasePath    /
package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Error: %v\n", err)
		os.Exit(1)
	}
}
