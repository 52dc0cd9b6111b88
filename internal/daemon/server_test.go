package daemon

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tchow/claude-notify/internal/protocol"
)

// startServer binds a server on a temp socket and serves it until the test
// ends, returning the socket path and a channel of dispatched messages.
func startServer(t *testing.T) (string, <-chan *protocol.Message) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")

	received := make(chan *protocol.Message, 16)
	srv := NewServer(socketPath, func(msg *protocol.Message) {
		received <- msg
	})
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return socketPath, received
}

func send(t *testing.T, socketPath string, data []byte) {
	t.Helper()
	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(data)
	require.NoError(t, err)
}

func encodeEvent(t *testing.T, payload map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := protocol.Encode(raw, nil)
	require.NoError(t, err)
	return data
}

func TestServer_DispatchesMessage(t *testing.T) {
	socketPath, received := startServer(t)

	send(t, socketPath, encodeEvent(t, map[string]any{
		"hook_event_name": "Stop",
		"session_id":      "abc",
	}))

	select {
	case msg := <-received:
		require.NotNil(t, msg.Payload)
		assert.Equal(t, "Stop", msg.Payload["hook_event_name"])
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestServer_SurvivesMalformedEnvelope(t *testing.T) {
	socketPath, received := startServer(t)

	// Garbage envelope: dropped with a log line, accept loop keeps running.
	send(t, socketPath, []byte("not an envelope\n{}\n"))

	send(t, socketPath, encodeEvent(t, map[string]any{"session_id": "after"}))
	select {
	case msg := <-received:
		assert.Equal(t, "after", msg.Payload["session_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("server stopped accepting after a malformed message")
	}
}

func TestServer_SurvivesEmptyConnection(t *testing.T) {
	socketPath, received := startServer(t)

	conn, err := net.DialTimeout("unix", socketPath, time.Second)
	require.NoError(t, err)
	conn.Close()

	send(t, socketPath, encodeEvent(t, map[string]any{"session_id": "after"}))
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("server stopped accepting after an empty connection")
	}
}

func TestServer_SurvivesHandlerPanic(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	var calls int
	var mu sync.Mutex
	srv := NewServer(socketPath, func(msg *protocol.Message) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			panic("handler bug")
		}
	})
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx) }()

	send(t, socketPath, encodeEvent(t, map[string]any{"session_id": "boom"}))
	send(t, socketPath, encodeEvent(t, map[string]any{"session_id": "fine"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, 2*time.Second, 10*time.Millisecond, "panic in handler must not kill the server")
}

func TestServer_RemovesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")

	// Simulate a socket file left behind by a crashed run.
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	// Close without unlinking, as a SIGKILL would leave it.
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	ln.Close()
	_, err = os.Stat(socketPath)
	require.NoError(t, err, "stale socket file must exist for this test")

	srv := NewServer(socketPath, func(*protocol.Message) {})
	assert.NoError(t, srv.Listen(), "stale socket must be cleared on bind")
	srv.listener.Close()
}

func TestServer_ShutdownRemovesSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	srv := NewServer(socketPath, func(*protocol.Message) {})
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean stop, not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	_, err := os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err), "socket file must be removed on shutdown")
}

func TestServer_ServeBeforeListen(t *testing.T) {
	srv := NewServer("/tmp/never-bound.sock", func(*protocol.Message) {})
	assert.Error(t, srv.Serve(context.Background()))
}

func TestActivationListener_NotAddressedToUs(t *testing.T) {
	t.Setenv(listenPIDEnv, "1")
	t.Setenv(listenFDsEnv, "1")
	_, ok := activationListener()
	assert.False(t, ok, "handoff addressed to another pid must be ignored")
}

func TestActivationListener_NoEnv(t *testing.T) {
	t.Setenv(listenPIDEnv, "")
	t.Setenv(listenFDsEnv, "")
	_, ok := activationListener()
	assert.False(t, ok)
}
