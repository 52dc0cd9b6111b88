// Package hook implements the fire-and-forget forwarder that Claude Code
// invokes on every hook event. It reads one JSON payload from stdin, wraps
// it in the wire protocol and best-effort-sends it to the daemon socket.
// Whatever happens, the invoking process must never be blocked or failed.
package hook

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/tchow/claude-notify/internal/logging"
	"github.com/tchow/claude-notify/internal/protocol"
)

var hookLog = logging.ForComponent(logging.CompHook)

// dialTimeout bounds connect and send. The hook runs inline with Claude
// Code's event dispatch, so it must return quickly even with no daemon.
const dialTimeout = time.Second

// captureEnvVars is the fixed allow-list of environment variables forwarded
// to the daemon. GNOME_TERMINAL_SCREEN identifies the terminal surface
// hosting the session; the rest aid terminal discovery downstream.
var captureEnvVars = []string{
	"GNOME_TERMINAL_SCREEN",
	"TERM",
	"WINDOWID",
	"DISPLAY",
	"WAYLAND_DISPLAY",
}

// Result reports what the forwarder managed to do. The command discards it
// beyond logging: delivery failure is an expected condition (daemon not
// running), never an exit-code failure.
type Result struct {
	// Delivered is true when the message was written to the socket.
	Delivered bool

	// ParseError is true when stdin was not valid JSON and a synthetic
	// payload was forwarded instead.
	ParseError bool

	// Err holds the transport error when Delivered is false.
	Err error
}

// Run forwards one hook payload to the daemon at socketPath.
func Run(stdin []byte, socketPath string) Result {
	var res Result

	payload := stdin
	if !json.Valid(stdin) {
		// Still forward something well-formed so the daemon can log it.
		res.ParseError = true
		synthetic, err := json.Marshal(map[string]any{
			"_raw":         string(stdin),
			"_parse_error": true,
		})
		if err == nil {
			payload = synthetic
		}
	}

	msg, err := protocol.Encode(payload, captureEnv())
	if err != nil {
		res.Err = err
		return res
	}

	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		// Daemon not running. Dropped events are fine.
		res.Err = err
		return res
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if _, err := conn.Write(msg); err != nil {
		res.Err = err
		return res
	}

	res.Delivered = true
	hookLog.Debug("hook_forwarded", slog.String("socket", socketPath), slog.Int("bytes", len(msg)))
	return res
}

func captureEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range captureEnvVars {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}
	return env
}
