package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/message"
)

func TestApplyServeFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantStdio bool
		wantHTTP  bool
		wantGRPC  bool
		wantPort  int
	}{
		{"defaults", nil, true, false, false, 9000},
		{"http", []string{"--http"}, false, true, false, 9000},
		{"http with port", []string{"--http", "--port", "8123"}, false, true, false, 8123},
		{"grpc", []string{"--grpc"}, true, false, true, 9000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() { serveHTTP, servePort, serveGRPC = false, 8000, false })

			cmd := &cobra.Command{Use: "serve"}
			addServeFlags(cmd)
			if err := cmd.Flags().Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			cfg := &config.Config{}
			cfg.Transports.Stdio.Enabled = true
			cfg.Transports.HTTP.Port = 9000

			applyServeFlags(cmd, cfg)

			tr := cfg.Transports
			if tr.Stdio.Enabled != tt.wantStdio || tr.HTTP.Enabled != tt.wantHTTP || tr.GRPC.Enabled != tt.wantGRPC {
				t.Errorf("transports = %+v", tr)
			}
			if tr.HTTP.Port != tt.wantPort {
				t.Errorf("http port = %d, want %d", tr.HTTP.Port, tt.wantPort)
			}
		})
	}
}

func TestBuildTransports(t *testing.T) {
	cfg := &config.Config{}
	cfg.Transports.Stdio.Enabled = true
	cfg.Transports.GRPC.Enabled = true

	var names []string
	for _, tr := range buildTransports(cfg) {
		names = append(names, tr.Name())
	}
	if got := strings.Join(names, ","); got != "stdio,grpc" {
		t.Errorf("transports = %s, want stdio,grpc", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestPrintAudioList(t *testing.T) {
	var buf bytes.Buffer
	files := []message.AudioFile{{
		Name:         "2024-01-15_14-30-25-123_abcd1234.wav",
		Size:         2048,
		CreatedAt:    time.Date(2024, 1, 15, 14, 30, 25, 0, time.Local),
		OriginalText: "Hello world",
	}}
	if err := printAudioList(&buf, files); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"abcd1234.wav", "2048", "2024-01-15 14:30:25", "Hello world"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	if got := buf.String(); got != "readaloud dev\n" {
		t.Errorf("output = %q", got)
	}
}
