// Package config loads user preferences from config.toml and resolves the
// daemon socket address.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the TOML config file for user preferences.
const FileName = "config.toml"

// SocketEnvVar overrides the socket path for both the hook forwarder and the
// daemon.
const SocketEnvVar = "CLAUDE_NOTIFY_SOCKET"

// socketFileName is the socket created under the user's runtime directory.
const socketFileName = "claude-notify.sock"

// Config is the user-facing configuration.
type Config struct {
	// SocketPath overrides the daemon socket address. Empty means the
	// default under the user's runtime directory.
	SocketPath string `toml:"socket_path"`

	// PopupDelaySecs is how long a session may sit in needs_attention
	// before an attention popup fires. 0 uses the default (45s).
	PopupDelaySecs float64 `toml:"popup_delay_secs"`

	Log     LogSettings     `toml:"log"`
	Journal JournalSettings `toml:"journal"`
	Notify  NotifySettings  `toml:"notify"`
}

// LogSettings configures the daemon's structured logging.
type LogSettings struct {
	// Level: "debug", "info", "warn", "error". Default "info".
	Level string `toml:"level"`

	// Format: "text" (default) or "json".
	Format string `toml:"format"`

	// Dir is where rotated log files go. Default ~/.local/state/claude-notify.
	Dir string `toml:"dir"`
}

// JournalSettings configures the optional SQLite transition journal.
type JournalSettings struct {
	Enabled bool `toml:"enabled"`

	// Path of the journal database. Default <log dir>/journal.db.
	Path string `toml:"path"`
}

// NotifySettings configures the desktop notification client.
type NotifySettings struct {
	// AppName shown by the notification server. Default "Claude Code".
	AppName string `toml:"app_name"`

	// PopupTimeoutMs is the auto-dismiss timeout for attention popups.
	// Default 10000.
	PopupTimeoutMs int `toml:"popup_timeout_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PopupDelaySecs: 45,
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		Notify: NotifySettings{
			AppName:        "Claude Code",
			PopupTimeoutMs: 10000,
		},
	}
}

// Dir returns the config directory (~/.config/claude-notify).
func Dir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "claude-notify")
	}
	return filepath.Join(os.TempDir(), "claude-notify")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), FileName)
}

// Load reads config.toml, applying defaults for anything unset. A missing
// file is not an error; a malformed file is.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads a config file from an explicit path (tests use temp dirs).
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PopupDelaySecs <= 0 {
		c.PopupDelaySecs = 45
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Notify.AppName == "" {
		c.Notify.AppName = "Claude Code"
	}
	if c.Notify.PopupTimeoutMs <= 0 {
		c.Notify.PopupTimeoutMs = 10000
	}
}

// PopupDelay returns the popup delay as a duration.
func (c *Config) PopupDelay() time.Duration {
	return time.Duration(c.PopupDelaySecs * float64(time.Second))
}

// LogDir returns the directory for log files, creating nothing.
func (c *Config) LogDir() string {
	if c.Log.Dir != "" {
		return c.Log.Dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "claude-notify")
	}
	return filepath.Join(os.TempDir(), "claude-notify")
}

// JournalPath returns the journal database path.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.LogDir(), "journal.db")
}

// EffectiveSocketPath resolves the socket address: the env override wins,
// then the config file, then the runtime-directory default.
func (c *Config) EffectiveSocketPath() string {
	if p := os.Getenv(SocketEnvVar); p != "" {
		return p
	}
	if c != nil && c.SocketPath != "" {
		return c.SocketPath
	}
	return DefaultSocketPath()
}

// DefaultSocketPath is the socket address under the invoking user's runtime
// directory.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketFileName)
	}
	return filepath.Join(fmt.Sprintf("/run/user/%d", os.Getuid()), socketFileName)
}
