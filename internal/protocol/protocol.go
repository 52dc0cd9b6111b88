// Package protocol implements the two-segment wire format exchanged between
// the hook forwarder and the daemon: an envelope JSON object, one newline,
// then the caller's payload bytes verbatim.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Version is the current protocol version, stamped into every envelope.
const Version = 1

// envelope is segment 1. It is always produced by Encode, never user data.
type envelope struct {
	Version    int               `json:"version"`
	Timestamp  float64           `json:"timestamp"`
	Env        map[string]string `json:"env"`
	ClaudeSize int               `json:"claude_size"`
}

// Message is one decoded wire message.
type Message struct {
	Version   int
	Timestamp float64
	Env       map[string]string

	// ClaudeSize is the byte length of segment 2 as declared by the sender.
	// A mismatch with len(ClaudeRaw) is advisory, not fatal: the transport
	// is a lossless local stream.
	ClaudeSize int

	// Payload is the decoded segment 2, nil when it was not valid JSON.
	Payload map[string]any

	// ClaudeRaw preserves segment 2 verbatim so malformed payloads can be
	// logged and diagnosed.
	ClaudeRaw []byte
}

// SizeMismatch reports whether the declared payload size disagrees with the
// received bytes.
func (m *Message) SizeMismatch() bool {
	return m.ClaudeSize != len(m.ClaudeRaw)
}

// Encode wraps payload in the two-segment wire format. The payload bytes are
// passed through untouched; they are expected to be one line of JSON. A
// payload containing a raw newline would break the two-segment split on the
// receiving side — Claude Code emits compact single-line JSON, so the
// encoder does not rewrite the bytes to guard against it.
func Encode(payload []byte, env map[string]string) ([]byte, error) {
	if env == nil {
		env = map[string]string{}
	}
	head, err := json.Marshal(envelope{
		Version:    Version,
		Timestamp:  float64(time.Now().UnixNano()) / 1e9,
		Env:        env,
		ClaudeSize: len(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(head) + len(payload) + 2)
	buf.Write(head)
	buf.WriteByte('\n')
	buf.Write(payload)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Decode parses a wire message. An unparseable envelope is the only fatal
// case; a malformed payload leaves Payload nil with ClaudeRaw preserved.
func Decode(data []byte) (*Message, error) {
	trimmed := bytes.TrimSpace(data)
	head, raw, _ := bytes.Cut(trimmed, []byte("\n"))

	var env envelope
	if err := json.Unmarshal(head, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	msg := &Message{
		Version:    env.Version,
		Timestamp:  env.Timestamp,
		Env:        env.Env,
		ClaudeSize: env.ClaudeSize,
		ClaudeRaw:  raw,
	}
	if msg.Env == nil {
		msg.Env = map[string]string{}
	}

	if len(raw) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err == nil {
			msg.Payload = payload
		}
	}
	return msg, nil
}
