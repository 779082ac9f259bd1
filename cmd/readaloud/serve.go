package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/readaloud/internal/config"
	"github.com/nadzzz/readaloud/internal/health"
	"github.com/nadzzz/readaloud/internal/transport"
	grpctransport "github.com/nadzzz/readaloud/internal/transport/grpc"
	httptransport "github.com/nadzzz/readaloud/internal/transport/http"
	stdiotransport "github.com/nadzzz/readaloud/internal/transport/stdio"
)

var (
	serveHTTP bool
	servePort int
	serveGRPC bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run the server on the configured transports.

By default MCP is served over stdio, which is how desktop MCP clients
launch readaloud. --http switches to the streamable HTTP transport (with
the REST API and Swagger UI on the same port); --grpc adds the gRPC
service.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&serveHTTP, "http", false, "serve MCP over HTTP instead of stdio")
	cmd.Flags().IntVar(&servePort, "port", 8000, "HTTP port (with --http)")
	cmd.Flags().BoolVar(&serveGRPC, "grpc", false, "also serve the gRPC API")
}

// applyServeFlags lets command-line flags override the transport config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if serveHTTP {
		cfg.Transports.Stdio.Enabled = false
		cfg.Transports.HTTP.Enabled = true
	}
	if cmd.Flags().Changed("port") {
		cfg.Transports.HTTP.Port = servePort
	}
	if serveGRPC {
		cfg.Transports.GRPC.Enabled = true
	}
}

// buildTransports returns the enabled transports.
func buildTransports(cfg *config.Config) []transport.Transport {
	var transports []transport.Transport
	if cfg.Transports.Stdio.Enabled {
		transports = append(transports, stdiotransport.New(version))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, version))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	return transports
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	slog.Info("readaloud starting",
		"version", version,
		"mode", cfg.TTS.Mode,
		"engine", a.engine.Name())

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !a.engine.Available(ctx) {
		slog.Warn("speech engine not available, read_aloud will fail until it is installed", "engine", a.engine.Name())
	}

	transports := buildTransports(cfg)
	g, gctx := errgroup.WithContext(ctx)

	var healthServer *health.Server
	if cfg.Server.HealthPort > 0 {
		healthServer = health.New(cfg.Server.HealthPort, a.engine)
		g.Go(func() error { return healthServer.ListenAndServe(gctx) })
	}

	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			err := t.Listen(gctx, a.dispatcher)
			if t.Name() == "stdio" {
				// The client closed stdin: nobody is left to serve.
				cancel()
			}
			return err
		})
	}

	if healthServer != nil {
		healthServer.SetReady(true)
	}
	slog.Info("readaloud ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	err = g.Wait()
	slog.Info("shutting down, draining...")

	for _, t := range transports {
		if cerr := t.Close(); cerr != nil {
			slog.Error("transport close error", "name", t.Name(), "error", cerr)
		}
	}
	a.dispatcher.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("readaloud stopped")
	return nil
}
