package install

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Unit file names installed under the systemd user directory.
const (
	SocketUnitName  = "claude-notify-daemon.socket"
	ServiceUnitName = "claude-notify-daemon.service"
)

// socketUnit listens on the user's runtime directory; %t expands to
// $XDG_RUNTIME_DIR for user units. The daemon inherits this listener via
// socket activation and never manages the socket file itself.
const socketUnit = `[Unit]
Description=Claude Notify daemon socket

[Socket]
ListenStream=%t/claude-notify.sock
SocketMode=0600

[Install]
WantedBy=sockets.target
`

const serviceUnitTemplate = `[Unit]
Description=Claude Notify daemon
Requires=claude-notify-daemon.socket

[Service]
ExecStart=%s
Restart=on-failure

[Install]
WantedBy=default.target
`

// SystemdUserDir returns the systemd user unit directory.
func SystemdUserDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".config", "systemd", "user"), nil
}

// RenderServiceUnit fills the service template with the daemon command.
func RenderServiceUnit(daemonCommand string) (string, error) {
	if strings.TrimSpace(daemonCommand) == "" {
		return "", errors.New("daemon command cannot be empty")
	}
	return fmt.Sprintf(serviceUnitTemplate, daemonCommand), nil
}

// WriteUnits writes both unit files into unitDir atomically.
func WriteUnits(unitDir, daemonCommand string) error {
	service, err := RenderServiceUnit(daemonCommand)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return fmt.Errorf("create unit dir: %w", err)
	}
	if err := atomicWrite(filepath.Join(unitDir, SocketUnitName), socketUnit); err != nil {
		return err
	}
	return atomicWrite(filepath.Join(unitDir, ServiceUnitName), service)
}

// RemoveUnits deletes both unit files. Missing files are fine.
func RemoveUnits(unitDir string) error {
	for _, name := range []string{SocketUnitName, ServiceUnitName} {
		if err := os.Remove(filepath.Join(unitDir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

func atomicWrite(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReloadSystemd asks the user systemd instance to pick up unit changes.
// Returns false when systemctl is unavailable (container, non-systemd).
func ReloadSystemd() bool {
	return systemctl("daemon-reload")
}

// EnableSocket enables socket activation on login.
func EnableSocket() bool {
	return systemctl("enable", SocketUnitName)
}

// DisableSocket disables socket activation.
func DisableSocket() bool {
	return systemctl("disable", SocketUnitName)
}

// StartSocket starts the socket unit immediately.
func StartSocket() bool {
	return systemctl("start", SocketUnitName)
}

// StopUnits stops the socket and service units.
func StopUnits() bool {
	ok := systemctl("stop", SocketUnitName)
	return systemctl("stop", ServiceUnitName) && ok
}

func systemctl(args ...string) bool {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	return cmd.Run() == nil
}
