package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tchow/claude-notify/internal/logging"
	"github.com/tchow/claude-notify/internal/protocol"
)

var srvLog = logging.ForComponent(logging.CompServer)

// readTimeout bounds how long one connection may take to deliver its
// payload. Hooks connect, write and close; anything slower is stuck.
const readTimeout = 5 * time.Second

// systemd socket-activation environment convention.
const (
	listenFDsEnv = "LISTEN_FDS"
	listenPIDEnv = "LISTEN_PID"

	// activationFD is the first inherited descriptor (fds 0-2 are stdio).
	activationFD = 3
)

// Handler consumes one decoded wire message.
type Handler func(*protocol.Message)

// Server accepts hook connections on a unix socket and dispatches each
// decoded message to the handler. Each connection is handled on its own
// goroutine; decode failures and handler panics are contained per
// connection.
type Server struct {
	socketPath string
	handler    Handler

	listener   net.Listener
	ownsSocket bool
}

// NewServer creates a server for socketPath. Call Listen before Serve.
func NewServer(socketPath string, handler Handler) *Server {
	return &Server{socketPath: socketPath, handler: handler}
}

// Listen binds the socket. With a valid systemd socket-activation handoff
// the inherited listener is used as-is and the socket file is never created
// or removed by this process — the supervisor owns it. In manual mode a
// stale socket file is removed before binding.
//
// A bind failure is the one startup error that should stop the daemon.
func (s *Server) Listen() error {
	if ln, ok := activationListener(); ok {
		srvLog.Info("socket_activated", slog.String("socket", s.socketPath))
		s.listener = ln
		s.ownsSocket = false
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("socket dir: %w", err)
	}
	// Stale socket from a previous run: the daemon is single-instance per
	// user, so clearing unconditionally is safe.
	_ = os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.socketPath, err)
	}
	s.listener = ln
	s.ownsSocket = true
	srvLog.Info("listening", slog.String("socket", s.socketPath))
	return nil
}

// activationListener returns the listener handed over by a process
// supervisor, when the handoff is addressed to this process.
func activationListener() (net.Listener, bool) {
	pid, err := strconv.Atoi(os.Getenv(listenPIDEnv))
	if err != nil || pid != os.Getpid() {
		return nil, false
	}
	nfds, err := strconv.Atoi(os.Getenv(listenFDsEnv))
	if err != nil || nfds < 1 {
		return nil, false
	}

	f := os.NewFile(uintptr(activationFD), "claude-notify-activation")
	if f == nil {
		return nil, false
	}
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		srvLog.Warn("socket_activation_rejected", slog.String("error", err.Error()))
		return nil, false
	}
	return ln, true
}

// Serve accepts connections until ctx is cancelled, then closes the listener
// and, in manual mode, removes the socket file.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server: Serve before Listen")
	}

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	defer func() {
		if s.ownsSocket {
			_ = os.Remove(s.socketPath)
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				srvLog.Info("server_stopped")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(conn)
	}
}

// handleConn reads one message from a connection and dispatches it. Nothing
// that goes wrong here may take the accept loop down.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	defer func() {
		if rec := recover(); rec != nil {
			srvLog.Error("handler_panic", slog.Any("panic", rec))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	data, err := io.ReadAll(conn)
	if err != nil {
		srvLog.Warn("connection_read_failed", slog.String("error", err.Error()))
		return
	}
	if len(data) == 0 {
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		srvLog.Warn("envelope_decode_failed", slog.String("error", err.Error()))
		return
	}
	if msg.SizeMismatch() {
		srvLog.Warn("payload_size_mismatch",
			slog.Int("declared", msg.ClaudeSize),
			slog.Int("received", len(msg.ClaudeRaw)))
	}

	s.handler(msg)
}
