package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nadzzz/readaloud/internal/message"
	"github.com/nadzzz/readaloud/internal/tts"
)

type fakeService struct {
	last *message.ReadAloudRequest
	err  error
}

func (f *fakeService) ReadAloud(ctx context.Context, req *message.ReadAloudRequest) (*message.ReadAloudResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	size := int64(1024)
	return &message.ReadAloudResult{Message: "Generated audio file: a.wav", AudioFile: "a.wav", FileSize: &size}, nil
}

func (f *fakeService) ListVoices(ctx context.Context) *message.VoicesResult {
	return &message.VoicesResult{AvailableVoices: []string{}}
}

func (f *fakeService) ListAudio(ctx context.Context) (*message.AudioListResult, error) {
	return &message.AudioListResult{Files: []message.AudioFile{{Name: "a.wav", Format: "wav"}}}, nil
}

// dial starts svc on an in-memory listener and returns a client connection.
func dial(t *testing.T, svc *fakeService) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, hs := newServer(svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		hs.Shutdown()
		srv.Stop()
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestReadAloud(t *testing.T) {
	svc := &fakeService{}
	client := NewClient(dial(t, svc))

	rate := 0.5
	res, err := client.ReadAloud(context.Background(), &message.ReadAloudRequest{Text: "Hello", Rate: &rate})
	if err != nil {
		t.Fatalf("ReadAloud() error = %v", err)
	}
	if res.AudioFile != "a.wav" || res.FileSize == nil || *res.FileSize != 1024 || res.Played {
		t.Errorf("result = %+v", res)
	}
	if svc.last.Text != "Hello" || svc.last.Rate == nil || *svc.last.Rate != 0.5 {
		t.Errorf("request = %+v", svc.last)
	}
}

func TestReadAloudStatusCodes(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: text cannot be empty", tts.ErrInvalidInput), codes.InvalidArgument},
		{fmt.Errorf("%w: espeak not found", tts.ErrEngineUnavailable), codes.Unavailable},
		{fmt.Errorf("%w: exit status 1", tts.ErrSynthesisFailed), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			client := NewClient(dial(t, &fakeService{err: tt.err}))
			_, err := client.ReadAloud(context.Background(), &message.ReadAloudRequest{Text: "x"})
			st, _ := status.FromError(err)
			if st.Code() != tt.want {
				t.Errorf("code = %v, want %v", st.Code(), tt.want)
			}
			if st.Message() != tt.err.Error() {
				t.Errorf("message = %q, want %q", st.Message(), tt.err.Error())
			}
		})
	}
}

func TestListMethods(t *testing.T) {
	client := NewClient(dial(t, &fakeService{}))

	voices, err := client.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if voices.AvailableVoices == nil || len(voices.AvailableVoices) != 0 {
		t.Errorf("ListVoices() = %#v, want empty", voices.AvailableVoices)
	}

	audio, err := client.ListAudio(context.Background())
	if err != nil {
		t.Fatalf("ListAudio() error = %v", err)
	}
	if len(audio.Files) != 1 || audio.Files[0].Name != "a.wav" {
		t.Errorf("ListAudio() = %+v", audio.Files)
	}
}

func TestHealth(t *testing.T) {
	hc := healthpb.NewHealthClient(dial(t, &fakeService{}))
	for _, service := range []string{"", ServiceName} {
		res, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q) error = %v", service, err)
		}
		if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q) = %v", service, res.GetStatus())
		}
	}
}

func TestJSONCodec(t *testing.T) {
	var c jsonCodec
	data, err := c.Marshal(&message.VoicesResult{AvailableVoices: []string{"en"}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"availableVoices":["en"]}` {
		t.Errorf("Marshal() = %s", data)
	}
	if c.Name() != "json" {
		t.Errorf("Name() = %q", c.Name())
	}
}
