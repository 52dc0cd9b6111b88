// Package install provisions the Claude Code hook entries and the systemd
// user units that run the daemon.
package install

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tchow/claude-notify/internal/logging"
)

var installLog = logging.ForComponent(logging.CompInstall)

// HookCommand is the marker command used to identify our hooks in
// settings.json.
const HookCommand = "claude-notify hook"

// hookEvents are the Claude Code events the daemon subscribes to.
var hookEvents = []string{
	"SessionStart",
	"UserPromptSubmit",
	"PreToolUse",
	"PostToolUse",
	"Stop",
	"SubagentStop",
	"Notification",
	"SessionEnd",
}

// claudeHookEntry is a single hook command in Claude Code settings.
type claudeHookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// claudeHookMatcher is one matcher block under an event key.
type claudeHookMatcher struct {
	Matcher string            `json:"matcher,omitempty"`
	Hooks   []claudeHookEntry `json:"hooks"`
}

// ClaudeConfigDir resolves the Claude Code config directory, honoring
// CLAUDE_CONFIG_DIR.
func ClaudeConfigDir() string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".claude")
	}
	return filepath.Join(home, ".claude")
}

// InstallHooks merges our hook entries into settings.json, preserving every
// unrelated setting and any user hooks already present. Returns true when
// hooks were newly installed, false when already present.
func InstallHooks(configDir string) (bool, error) {
	settingsPath := filepath.Join(configDir, "settings.json")

	rawSettings, err := readRawSettings(settingsPath)
	if err != nil {
		return false, err
	}

	existingHooks := make(map[string]json.RawMessage)
	if raw, ok := rawSettings["hooks"]; ok {
		// A hooks key that isn't an object is replaced wholesale.
		_ = json.Unmarshal(raw, &existingHooks)
		if existingHooks == nil {
			existingHooks = make(map[string]json.RawMessage)
		}
	}

	if hooksInstalled(existingHooks) {
		return false, nil
	}

	for _, event := range hookEvents {
		existingHooks[event] = mergeHookEvent(existingHooks[event])
	}

	hooksRaw, err := json.Marshal(existingHooks)
	if err != nil {
		return false, fmt.Errorf("marshal hooks: %w", err)
	}
	rawSettings["hooks"] = hooksRaw

	if err := writeRawSettings(configDir, settingsPath, rawSettings); err != nil {
		return false, err
	}

	installLog.Info("hooks_installed", slog.String("config_dir", configDir))
	return true, nil
}

// RemoveHooks strips our hook entries from settings.json, leaving everything
// else untouched. Returns true when something was removed.
func RemoveHooks(configDir string) (bool, error) {
	settingsPath := filepath.Join(configDir, "settings.json")

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read settings.json: %w", err)
	}

	var rawSettings map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawSettings); err != nil {
		return false, fmt.Errorf("parse settings.json: %w", err)
	}

	hooksRaw, ok := rawSettings["hooks"]
	if !ok {
		return false, nil
	}
	var existingHooks map[string]json.RawMessage
	if err := json.Unmarshal(hooksRaw, &existingHooks); err != nil {
		return false, nil
	}

	removed := false
	for event, raw := range existingHooks {
		var matchers []claudeHookMatcher
		if err := json.Unmarshal(raw, &matchers); err != nil {
			continue
		}
		kept := matchers[:0]
		for _, m := range matchers {
			if matcherIsOurs(m) {
				removed = true
				continue
			}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			delete(existingHooks, event)
			continue
		}
		updated, err := json.Marshal(kept)
		if err != nil {
			continue
		}
		existingHooks[event] = updated
	}

	if !removed {
		return false, nil
	}

	if len(existingHooks) == 0 {
		delete(rawSettings, "hooks")
	} else {
		updated, err := json.Marshal(existingHooks)
		if err != nil {
			return false, fmt.Errorf("marshal hooks: %w", err)
		}
		rawSettings["hooks"] = updated
	}

	if err := writeRawSettings(configDir, settingsPath, rawSettings); err != nil {
		return false, err
	}

	installLog.Info("hooks_removed", slog.String("config_dir", configDir))
	return true, nil
}

// HooksInstalled reports whether every subscribed event carries our hook.
func HooksInstalled(configDir string) bool {
	data, err := os.ReadFile(filepath.Join(configDir, "settings.json"))
	if err != nil {
		return false
	}
	var rawSettings map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawSettings); err != nil {
		return false
	}
	var existingHooks map[string]json.RawMessage
	if err := json.Unmarshal(rawSettings["hooks"], &existingHooks); err != nil {
		return false
	}
	return hooksInstalled(existingHooks)
}

func hooksInstalled(existingHooks map[string]json.RawMessage) bool {
	for _, event := range hookEvents {
		raw, ok := existingHooks[event]
		if !ok {
			return false
		}
		var matchers []claudeHookMatcher
		if err := json.Unmarshal(raw, &matchers); err != nil {
			return false
		}
		found := false
		for _, m := range matchers {
			if matcherIsOurs(m) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matcherIsOurs(m claudeHookMatcher) bool {
	for _, h := range m.Hooks {
		if strings.Contains(h.Command, HookCommand) {
			return true
		}
	}
	return false
}

// mergeHookEvent appends our matcher block to an event's existing blocks,
// leaving user blocks in place. Unparseable existing content is preserved
// only when it parses; a corrupt block array is replaced.
func mergeHookEvent(existing json.RawMessage) json.RawMessage {
	var matchers []claudeHookMatcher
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &matchers)
	}
	for _, m := range matchers {
		if matcherIsOurs(m) {
			out, _ := json.Marshal(matchers)
			return out
		}
	}
	matchers = append(matchers, claudeHookMatcher{
		Hooks: []claudeHookEntry{{Type: "command", Command: HookCommand}},
	})
	out, _ := json.Marshal(matchers)
	return out
}

func readRawSettings(settingsPath string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read settings.json: %w", err)
		}
		return make(map[string]json.RawMessage), nil
	}
	var rawSettings map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawSettings); err != nil {
		return nil, fmt.Errorf("parse settings.json: %w", err)
	}
	return rawSettings, nil
}

func writeRawSettings(configDir, settingsPath string, rawSettings map[string]json.RawMessage) error {
	finalData, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmpPath := settingsPath + ".tmp"
	if err := os.WriteFile(tmpPath, finalData, 0o644); err != nil {
		return fmt.Errorf("write settings.json.tmp: %w", err)
	}
	if err := os.Rename(tmpPath, settingsPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename settings.json: %w", err)
	}
	return nil
}
