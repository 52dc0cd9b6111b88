package logging

import (
	"bytes"
	"sync"
)

// TailBuffer is a thread-safe line buffer that keeps the most recent N log
// lines. It implements io.Writer; each write may carry multiple lines.
type TailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
	next  int
	full  bool
}

// NewTailBuffer creates a buffer holding up to max lines.
func NewTailBuffer(max int) *TailBuffer {
	if max <= 0 {
		max = 100
	}
	return &TailBuffer{
		lines: make([]string, max),
		max:   max,
	}
}

// Write implements io.Writer. Input is split on newlines; empty lines are
// dropped.
func (tb *TailBuffer) Write(p []byte) (int, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	for _, line := range bytes.Split(p, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		tb.lines[tb.next] = string(trimmed)
		tb.next = (tb.next + 1) % tb.max
		if tb.next == 0 {
			tb.full = true
		}
	}
	return len(p), nil
}

// Lines returns the buffered lines in chronological order.
func (tb *TailBuffer) Lines() []string {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if !tb.full {
		out := make([]string, tb.next)
		copy(out, tb.lines[:tb.next])
		return out
	}
	out := make([]string, 0, tb.max)
	out = append(out, tb.lines[tb.next:]...)
	out = append(out, tb.lines[:tb.next]...)
	return out
}
