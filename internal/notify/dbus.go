package notify

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/tchow/claude-notify/internal/logging"
	"github.com/tchow/claude-notify/internal/tracker"
)

var notifyLog = logging.ForComponent(logging.CompNotify)

const (
	notificationsBusName = "org.freedesktop.Notifications"
	notificationsPath    = "/org/freedesktop/Notifications"
)

// DBusNotifier talks to the freedesktop notification service on the session
// bus. One shared handle; the orchestrator serializes calls per session.
type DBusNotifier struct {
	conn           *dbus.Conn
	obj            dbus.BusObject
	appName        string
	popupTimeoutMs int32
}

// NewDBusNotifier connects to the session bus. Fails when no session bus is
// reachable (headless environment); the daemon then runs without
// notifications.
func NewDBusNotifier(appName string, popupTimeoutMs int) (*DBusNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	if appName == "" {
		appName = "Claude Code"
	}
	if popupTimeoutMs <= 0 {
		popupTimeoutMs = 10000
	}
	return &DBusNotifier{
		conn:           conn,
		obj:            conn.Object(notificationsBusName, dbus.ObjectPath(notificationsPath)),
		appName:        appName,
		popupTimeoutMs: int32(popupTimeoutMs),
	}, nil
}

// ShowPersistent creates or replaces the session's persistent notification.
// Timeout 0 plus the resident hint keeps it on screen until dismissed.
func (n *DBusNotifier) ShowPersistent(sessionID, friendlyName, projectName string, state tracker.State, activity string, replacesID uint32) (uint32, error) {
	summary := fmt.Sprintf("%s [%s] %s", StateIcon(state), friendlyName, projectName)
	body := activity
	if body == "" {
		body = "Ready"
	}

	actions := []string{"focus:" + sessionID, "Focus Terminal"}
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(2)), // critical, so it persists
		"resident":      dbus.MakeVariant(true),
		"desktop-entry": dbus.MakeVariant("claude-notify"),
		"category":      dbus.MakeVariant("im.received"),
	}

	id, err := n.notify(replacesID, "dialog-information", summary, body, actions, hints, 0)
	if err != nil {
		return 0, err
	}
	notifyLog.Debug("notification_update",
		slog.String("session", sessionID),
		slog.Uint64("notif_id", uint64(id)))
	return id, nil
}

// ShowPopup raises a normal-urgency, auto-dismissing attention alert. It is
// always a new notification, never a replacement.
func (n *DBusNotifier) ShowPopup(sessionID, friendlyName, projectName, message string) (uint32, error) {
	summary := "Claude needs attention"
	body := fmt.Sprintf("[%s] %s\n%s", friendlyName, projectName, message)

	actions := []string{"focus:" + sessionID, "Focus Terminal"}
	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(byte(1)),
		"category": dbus.MakeVariant("im.received"),
	}

	return n.notify(0, "dialog-warning", summary, body, actions, hints, n.popupTimeoutMs)
}

// Dismiss closes a notification. Closing an already-closed id is not an
// error worth surfacing.
func (n *DBusNotifier) Dismiss(id uint32) error {
	if id == 0 {
		return nil
	}
	call := n.obj.Call(notificationsBusName+".CloseNotification", 0, id)
	if call.Err != nil {
		return fmt.Errorf("close notification %d: %w", id, call.Err)
	}
	return nil
}

func (n *DBusNotifier) notify(replacesID uint32, icon, summary, body string, actions []string, hints map[string]dbus.Variant, timeoutMs int32) (uint32, error) {
	call := n.obj.Call(notificationsBusName+".Notify", 0,
		n.appName, replacesID, icon, summary, body, actions, hints, timeoutMs)
	if call.Err != nil {
		return 0, fmt.Errorf("notify: %w", call.Err)
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("notify reply: %w", err)
	}
	return id, nil
}
