// Package transport defines the interface for pluggable transports.
//
// Each transport (MCP over stdio, HTTP, gRPC) implements this interface and
// calls into the Service it is given. The service doesn't care how requests
// arrive; it only works with the Transport contract.
package transport

import (
	"context"

	"github.com/nadzzz/readaloud/internal/message"
)

// Service is the tool facade every transport exposes.
// *dispatch.Dispatcher implements it.
type Service interface {
	ReadAloud(ctx context.Context, req *message.ReadAloudRequest) (*message.ReadAloudResult, error)
	ListVoices(ctx context.Context) *message.VoicesResult
	ListAudio(ctx context.Context) (*message.AudioListResult, error)
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "stdio", "http", "grpc").
	Name() string

	// Listen starts accepting requests and serves them from svc.
	// It blocks until the context is cancelled or the peer goes away.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
