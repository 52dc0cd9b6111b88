// Package daemon owns the long-lived process: the socket server, the session
// registry and the notification pushes derived from hook events.
package daemon

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tchow/claude-notify/internal/journal"
	"github.com/tchow/claude-notify/internal/logging"
	"github.com/tchow/claude-notify/internal/notify"
	"github.com/tchow/claude-notify/internal/protocol"
	"github.com/tchow/claude-notify/internal/tracker"
)

var daemonLog = logging.ForComponent(logging.CompDaemon)

// terminalUUIDEnvVar carries the terminal-surface id in the forwarded env.
const terminalUUIDEnvVar = "GNOME_TERMINAL_SCREEN"

// Orchestrator is the single mutation path from decoded wire messages to
// registry state and notification updates. One mutex serializes
// HandleMessage end to end, which also serializes the paired notification
// calls so replace-ids can never be applied out of order.
type Orchestrator struct {
	mu       sync.Mutex
	registry *tracker.Registry
	notifier notify.Notifier // nil when no notification service is reachable
	popups   *popupScheduler
	journal  *journal.Journal // nil when the journal is disabled
}

// NewOrchestrator wires the orchestrator. notifier and jnl may be nil.
func NewOrchestrator(registry *tracker.Registry, notifier notify.Notifier, popupDelay time.Duration, jnl *journal.Journal) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		notifier: notifier,
		journal:  jnl,
	}
	o.popups = newPopupScheduler(popupDelay, o.firePopup)
	return o
}

// HandleMessage applies one hook message: registry mutation first, then an
// idempotent notification push. Called concurrently from per-connection
// goroutines; the lock linearizes everything.
func (o *Orchestrator) HandleMessage(msg *protocol.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if msg.Payload == nil {
		daemonLog.Warn("malformed_payload", slog.String("raw", truncate(string(msg.ClaudeRaw), 100)))
		return
	}

	event := tracker.ParseHookEvent(msg.Payload)
	daemonLog.Debug("event_received",
		slog.String("event", event.EventName),
		slog.String("session", event.SessionID))

	terminalUUID := msg.Env[terminalUUIDEnvVar]

	session := o.registry.Get(event.SessionID)
	if session == nil {
		session = o.registry.Register(event.SessionID, event.Cwd, terminalUUID)
		daemonLog.Info("session_start",
			slog.String("session", event.SessionID),
			slog.String("name", session.FriendlyName),
			slog.String("cwd", event.Cwd))
	}

	// Terminal surface is first-write-wins: a later event from a different
	// environment (e.g. a resumed session) must not steal the surface.
	if terminalUUID != "" && session.TerminalUUID == "" {
		session.TerminalUUID = terminalUUID
	}
	if event.Cwd != "" {
		session.Cwd = event.Cwd
	}

	target := tracker.DetermineState(event)
	if old, changed := session.TransitionTo(target); changed {
		daemonLog.Info("state_change",
			slog.String("session", event.SessionID),
			slog.String("old", string(old)),
			slog.String("new", string(target)))
		o.recordTransition(session, old, target, event.EventName)

		if target == tracker.StateNeedsAttention {
			o.popups.schedule(session.SessionID)
		} else {
			o.popups.cancel(session.SessionID)
		}
	}

	if event.Message != "" {
		session.UpdateActivity(event.Message)
	}

	// Always push, even when nothing semantically changed: the replace-id
	// makes the call idempotent and the notification server coalesces.
	o.pushPersistent(session)

	if event.EventName == tracker.EventSessionEnd {
		o.endSession(session)
	}
}

func (o *Orchestrator) recordTransition(session *tracker.SessionState, old, target tracker.State, eventName string) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(session.SessionID, session.FriendlyName, string(old), string(target), eventName); err != nil {
		daemonLog.Warn("journal_write_failed", slog.String("error", err.Error()))
	}
}

// pushPersistent updates the session's persistent notification. Failures are
// logged and swallowed: notification trouble must never affect registry
// state or later events.
func (o *Orchestrator) pushPersistent(session *tracker.SessionState) {
	if o.notifier == nil {
		return
	}
	id, err := o.notifier.ShowPersistent(
		session.SessionID,
		session.FriendlyName,
		session.ProjectName(),
		session.State,
		session.Activity,
		session.PersistentNotifID,
	)
	if err != nil {
		daemonLog.Error("notification_update_failed",
			slog.String("session", session.SessionID),
			slog.String("error", err.Error()))
		return
	}
	session.PersistentNotifID = id
}

// firePopup runs on a popup timer goroutine after the configured delay.
func (o *Orchestrator) firePopup(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session := o.registry.Get(sessionID)
	if session == nil || session.State != tracker.StateNeedsAttention {
		return
	}
	if o.notifier == nil {
		return
	}

	message := session.Activity
	if message == "" {
		message = "Waiting for your input"
	}
	id, err := o.notifier.ShowPopup(session.SessionID, session.FriendlyName, session.ProjectName(), message)
	if err != nil {
		daemonLog.Error("popup_failed",
			slog.String("session", sessionID),
			slog.String("error", err.Error()))
		return
	}
	session.PopupNotifID = id
}

// endSession dismisses the session's notifications and drops it from the
// registry. Called with o.mu held.
func (o *Orchestrator) endSession(session *tracker.SessionState) {
	o.popups.forget(session.SessionID)

	if o.notifier != nil {
		for _, id := range []uint32{session.PersistentNotifID, session.PopupNotifID} {
			if id == 0 {
				continue
			}
			if err := o.notifier.Dismiss(id); err != nil {
				daemonLog.Warn("dismiss_failed",
					slog.Uint64("notif_id", uint64(id)),
					slog.String("error", err.Error()))
			}
		}
	}

	o.registry.Unregister(session.SessionID)
	daemonLog.Info("session_end", slog.String("session", session.SessionID))
}

// SetPopupDelay applies a reloaded popup delay to future timers.
func (o *Orchestrator) SetPopupDelay(delay time.Duration) {
	o.popups.setDelay(delay)
}

// Shutdown disarms popup timers. In-flight HandleMessage calls finish first.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.popups.stopAll()
}

// DumpState renders a read-only snapshot of every session for the debug
// signal. Safe to call concurrently with message handling.
func (o *Orchestrator) DumpState() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	sessions := o.registry.All()
	var b strings.Builder
	fmt.Fprintf(&b, "SESSION REGISTRY (%d active):\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(&b, "  [%s] %s... %s %s notif=%d\n",
			s.FriendlyName, truncate(s.SessionID, 8), s.State, s.ProjectName(), s.PersistentNotifID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
