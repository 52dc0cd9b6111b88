package tracker

import (
	"log/slog"
	"sync"

	"github.com/tchow/claude-notify/internal/logging"
)

var regLog = logging.ForComponent(logging.CompTracker)

// Registry events delivered to listeners.
const (
	EventRegistered   = "session_registered"
	EventUnregistered = "session_unregistered"
)

// Listener receives registry lifecycle events. Listeners are called
// synchronously while the registry lock is held; panics are recovered and
// discarded so one failing listener cannot break the others.
type Listener func(event string, session *SessionState)

// Registry is the in-memory collection of live sessions, keyed by session id.
// It holds no state across daemon restarts; sessions re-register on their
// next event.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]*SessionState
	order        []string
	listeners    []registeredListener
	nextListener int
}

type registeredListener struct {
	id int
	fn Listener
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*SessionState),
	}
}

// Register returns the existing session for sessionID or creates one in
// StateWorking. Re-registering an existing id is idempotent: state and
// activity are left untouched and no event fires.
func (r *Registry) Register(sessionID, cwd, terminalUUID string) *SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sessionID]; ok {
		return existing
	}

	session := NewSessionState(sessionID, cwd, terminalUUID)
	r.sessions[sessionID] = session
	r.order = append(r.order, sessionID)
	r.notify(EventRegistered, session)
	return session
}

// Get returns the session for sessionID, or nil if unknown.
func (r *Registry) Get(sessionID string) *SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

// Unregister removes and returns the session for sessionID, firing
// EventUnregistered. Returns nil if unknown.
func (r *Registry) Unregister(sessionID string) *SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(r.sessions, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.notify(EventUnregistered, session)
	return session
}

// All returns a snapshot of every session in insertion order.
func (r *Registry) All() []*SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*SessionState, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// ByState returns the sessions currently in the given state, in insertion
// order.
func (r *Registry) ByState(state State) []*SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*SessionState
	for _, id := range r.order {
		if s := r.sessions[id]; s.State == state {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// AddListener registers a lifecycle listener and returns a handle for
// RemoveListener.
func (r *Registry) AddListener(l Listener) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextListener++
	r.listeners = append(r.listeners, registeredListener{id: r.nextListener, fn: l})
	return r.nextListener
}

// RemoveListener removes the listener registered under handle. Unknown
// handles are ignored.
func (r *Registry) RemoveListener(handle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.listeners {
		if l.id == handle {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

func (r *Registry) notify(event string, session *SessionState) {
	for _, l := range r.listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					regLog.Warn("listener_panic",
						slog.String("event", event),
						slog.String("session", session.SessionID),
						slog.Any("panic", rec))
				}
			}()
			l.fn(event, session)
		}()
	}
}
