package codec

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// #region mock
type mockCompleter struct {
	text       string
	err        error
	lastSystem string
	lastUser   string
}

func (m *mockCompleter) Complete(_ context.Context, system, user string) (string, error) {
	m.lastSystem = system
	m.lastUser = user
	return m.text, m.err
}

// startServer serves backend over an in-memory listener and returns a connected client.
func startServer(t *testing.T, backend Completer) *CodecClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterJudgeServer(srv, backend)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewCodecClientWithService(conn, "test-model")
}

// #endregion mock

// #region constructor-tests
func TestNewCodecClientInvalidAddr(t *testing.T) {
	client, err := NewCodecClient("localhost:0", "m")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestCloseWithoutConn(t *testing.T) {
	c := NewCodecClientWithService(nil, "m")
	if err := c.Close(); err != nil {
		t.Fatalf("close on injected client should be a no-op, got %v", err)
	}
}

// #endregion constructor-tests

// #region complete-tests
func TestComplete_Success(t *testing.T) {
	backend := &mockCompleter{text: `{"isSufficient": false}`}
	c := startServer(t, backend)

	text, err := c.Complete(context.Background(), "sys", "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"isSufficient": false}` {
		t.Errorf("unexpected text %q", text)
	}
	if backend.lastSystem != "sys" || backend.lastUser != "question" {
		t.Errorf("prompts not forwarded: %q %q", backend.lastSystem, backend.lastUser)
	}
}

func TestComplete_BackendError(t *testing.T) {
	c := startServer(t, &mockCompleter{err: errors.New("upstream 502")})

	_, err := c.Complete(context.Background(), "sys", "question")
	if err == nil {
		t.Fatal("expected error")
	}
	if status.Code(errors.Unwrap(err)) != codes.Unavailable {
		t.Errorf("expected Unavailable, got %v", err)
	}
}

func TestComplete_EmptyUserPrompt(t *testing.T) {
	c := startServer(t, &mockCompleter{text: "x"})

	_, err := c.Complete(context.Background(), "sys", "")
	if status.Code(errors.Unwrap(err)) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestComplete_EmptyText(t *testing.T) {
	c := startServer(t, &mockCompleter{text: ""})

	_, err := c.Complete(context.Background(), "sys", "q")
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("expected ErrEmptyCompletion, got %v", err)
	}
}

// #endregion complete-tests
