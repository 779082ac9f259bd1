// Package grpc implements the gRPC transport for readaloud.
//
// The readaloud.v1.ReadAloud service is described by hand rather than
// generated from a .proto file: requests and replies are the message
// package types carried by a JSON codec (content-subtype "json"). The
// standard grpc.health.v1 service is registered alongside it.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/readaloud/internal/message"
	"github.com/nadzzz/readaloud/internal/transport"
	"github.com/nadzzz/readaloud/internal/tts"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "readaloud.v1.ReadAloud"

// Full method names.
const (
	MethodReadAloud  = "/" + ServiceName + "/ReadAloud"
	MethodListVoices = "/" + ServiceName + "/ListVoices"
	MethodListAudio  = "/" + ServiceName + "/ListAudio"
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*transport.Service)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ReadAloud", Handler: readAloudHandler},
		{MethodName: "ListVoices", Handler: listVoicesHandler},
		{MethodName: "ListAudio", Handler: listAudioHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "readaloud/v1",
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and serves requests from svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	t.server, t.health = newServer(svc)

	slog.Info("grpc transport listening", "port", t.port, "service", ServiceName)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		_ = t.Close()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.health != nil {
		t.health.Shutdown()
	}
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// newServer builds a gRPC server with the ReadAloud and health services.
func newServer(svc transport.Service) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary))
	s.RegisterService(&serviceDesc, svc)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

func readAloudHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.ReadAloudRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		res, err := srv.(transport.Service).ReadAloud(ctx, req.(*message.ReadAloudRequest))
		if err != nil {
			return nil, statusError(err)
		}
		return res, nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodReadAloud}, call)
}

func listVoicesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.ListVoicesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, _ any) (any, error) {
		return srv.(transport.Service).ListVoices(ctx), nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListVoices}, call)
}

func listAudioHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.ListAudioRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, _ any) (any, error) {
		res, err := srv.(transport.Service).ListAudio(ctx)
		if err != nil {
			return nil, statusError(err)
		}
		return res, nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListAudio}, call)
}

// statusError maps a service error onto a gRPC status.
func statusError(err error) error {
	switch {
	case errors.Is(err, tts.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, tts.ErrEngineUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	res, err := handler(ctx, req)
	slog.Debug("grpc request", "method", info.FullMethod, "code", status.Code(err), "duration", time.Since(start))
	return res, err
}

// Client calls the ReadAloud service over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// ReadAloud calls readaloud.v1.ReadAloud/ReadAloud.
func (c *Client) ReadAloud(ctx context.Context, req *message.ReadAloudRequest) (*message.ReadAloudResult, error) {
	out := new(message.ReadAloudResult)
	if err := c.conn.Invoke(ctx, MethodReadAloud, req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVoices calls readaloud.v1.ReadAloud/ListVoices.
func (c *Client) ListVoices(ctx context.Context) (*message.VoicesResult, error) {
	out := new(message.VoicesResult)
	if err := c.conn.Invoke(ctx, MethodListVoices, &message.ListVoicesRequest{}, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAudio calls readaloud.v1.ReadAloud/ListAudio.
func (c *Client) ListAudio(ctx context.Context) (*message.AudioListResult, error) {
	out := new(message.AudioListResult)
	if err := c.conn.Invoke(ctx, MethodListAudio, &message.ListAudioRequest{}, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}
