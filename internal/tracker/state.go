package tracker

import (
	"path"
	"strings"
	"time"
)

// State is the lifecycle phase of one session.
type State string

const (
	StateWorking        State = "working"
	StateNeedsAttention State = "needs_attention"
	StateSessionLimit   State = "session_limit"
	StateAPIError       State = "api_error"
)

// SessionState tracks one live coding-assistant session. All mutation goes
// through the orchestrator's handler path, which serializes writes; the
// struct itself carries no lock.
type SessionState struct {
	SessionID    string
	Cwd          string
	TerminalUUID string
	State        State
	Activity     string
	FriendlyName string

	// PersistentNotifID is the desktop notification handle for this
	// session's always-visible notification. 0 means not yet created; once
	// set it is reused as the replace target on every update.
	PersistentNotifID uint32

	// PopupNotifID is the handle of the last attention popup, if any.
	PopupNotifID uint32

	LastUpdate time.Time

	// NeedsAttentionSince is set on entering StateNeedsAttention and zeroed
	// on leaving it. The popup-delay policy keys off it.
	NeedsAttentionSince time.Time
}

// NewSessionState creates a session in StateWorking with its friendly name
// derived from the id.
func NewSessionState(sessionID, cwd, terminalUUID string) *SessionState {
	return &SessionState{
		SessionID:    sessionID,
		Cwd:          cwd,
		TerminalUUID: terminalUUID,
		State:        StateWorking,
		FriendlyName: GenerateFriendlyName(sessionID),
		LastUpdate:   time.Now(),
	}
}

// TransitionTo moves the session to target. Returns the previous state and
// true when the state actually changed. A transition to the current state is
// a no-op: nothing is stamped and false is returned.
func (s *SessionState) TransitionTo(target State) (State, bool) {
	if s.State == target {
		return "", false
	}

	old := s.State
	s.State = target
	s.LastUpdate = time.Now()

	if target == StateNeedsAttention {
		s.NeedsAttentionSince = s.LastUpdate
	} else {
		s.NeedsAttentionSince = time.Time{}
	}
	return old, true
}

// UpdateActivity overwrites the activity text and stamps LastUpdate.
func (s *SessionState) UpdateActivity(activity string) {
	s.Activity = activity
	s.LastUpdate = time.Now()
}

// ProjectName is the last path component of the working directory.
func (s *SessionState) ProjectName() string {
	trimmed := strings.TrimRight(s.Cwd, "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}
