// Package notify binds the daemon to the desktop notification service.
package notify

import "github.com/tchow/claude-notify/internal/tracker"

// Notifier is the boundary to the desktop notification service. The
// orchestrator treats it as an opaque capability: every method may fail and
// failures are logged, never propagated.
type Notifier interface {
	// ShowPersistent creates or updates the session's always-visible
	// notification. replacesID 0 creates a new one; a non-zero id updates
	// in place, which is what keeps the notification flicker-free.
	ShowPersistent(sessionID, friendlyName, projectName string, state tracker.State, activity string, replacesID uint32) (uint32, error)

	// ShowPopup raises a timeout-bound attention alert.
	ShowPopup(sessionID, friendlyName, projectName, message string) (uint32, error)

	// Dismiss closes a notification by handle.
	Dismiss(id uint32) error
}

// stateIcons decorate the persistent notification summary per state:
// gear, question mark, stopwatch, red circle.
var stateIcons = map[tracker.State]string{
	tracker.StateWorking:        "⚙️",
	tracker.StateNeedsAttention: "❓",
	tracker.StateSessionLimit:   "⏱️",
	tracker.StateAPIError:       "\U0001f534",
}

// StateIcon returns the glyph for a state, defaulting to the attention mark.
func StateIcon(state tracker.State) string {
	if icon, ok := stateIcons[state]; ok {
		return icon
	}
	return "❓"
}
