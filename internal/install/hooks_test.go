package install

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSettings(t *testing.T, configDir string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(configDir, "settings.json"))
	require.NoError(t, err)
	var settings map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &settings))
	return settings
}

func hooksFor(t *testing.T, configDir, event string) []claudeHookMatcher {
	t.Helper()
	settings := readSettings(t, configDir)
	var hooks map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(settings["hooks"], &hooks))
	var matchers []claudeHookMatcher
	require.NoError(t, json.Unmarshal(hooks[event], &matchers))
	return matchers
}

func TestInstallHooks_FreshConfig(t *testing.T) {
	dir := t.TempDir()

	installed, err := InstallHooks(dir)
	require.NoError(t, err)
	assert.True(t, installed)
	assert.True(t, HooksInstalled(dir))

	for _, event := range hookEvents {
		matchers := hooksFor(t, dir, event)
		require.Len(t, matchers, 1, "event %s", event)
		require.Len(t, matchers[0].Hooks, 1)
		assert.Equal(t, "command", matchers[0].Hooks[0].Type)
		assert.Equal(t, HookCommand, matchers[0].Hooks[0].Command)
	}
}

func TestInstallHooks_Idempotent(t *testing.T) {
	dir := t.TempDir()

	installed, err := InstallHooks(dir)
	require.NoError(t, err)
	require.True(t, installed)

	installed, err = InstallHooks(dir)
	require.NoError(t, err)
	assert.False(t, installed, "second install must be a no-op")

	for _, event := range hookEvents {
		assert.Len(t, hooksFor(t, dir, event), 1, "no duplicate blocks for %s", event)
	}
}

func TestInstallHooks_PreservesUnrelatedSettings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{
		"model": "opus",
		"env": {"FOO": "bar"},
		"hooks": {
			"Stop": [{"matcher": "", "hooks": [{"type": "command", "command": "my-own-script.sh"}]}]
		}
	}`), 0o644))

	_, err := InstallHooks(dir)
	require.NoError(t, err)

	settings := readSettings(t, dir)
	assert.JSONEq(t, `"opus"`, string(settings["model"]))
	assert.JSONEq(t, `{"FOO": "bar"}`, string(settings["env"]))

	stop := hooksFor(t, dir, "Stop")
	require.Len(t, stop, 2, "user block stays, ours is appended")
	assert.Equal(t, "my-own-script.sh", stop[0].Hooks[0].Command)
	assert.Equal(t, HookCommand, stop[1].Hooks[0].Command)
}

func TestRemoveHooks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{
		"model": "opus",
		"hooks": {
			"Stop": [{"matcher": "", "hooks": [{"type": "command", "command": "my-own-script.sh"}]}]
		}
	}`), 0o644))

	_, err := InstallHooks(dir)
	require.NoError(t, err)
	require.True(t, HooksInstalled(dir))

	removed, err := RemoveHooks(dir)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, HooksInstalled(dir))

	settings := readSettings(t, dir)
	assert.JSONEq(t, `"opus"`, string(settings["model"]), "unrelated settings survive removal")

	stop := hooksFor(t, dir, "Stop")
	require.Len(t, stop, 1, "user hook block survives removal")
	assert.Equal(t, "my-own-script.sh", stop[0].Hooks[0].Command)

	// Events that held only our block are dropped entirely.
	var hooks map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(settings["hooks"], &hooks))
	_, ok := hooks["PreToolUse"]
	assert.False(t, ok)
}

func TestRemoveHooks_NothingInstalled(t *testing.T) {
	dir := t.TempDir()

	removed, err := RemoveHooks(dir)
	require.NoError(t, err)
	assert.False(t, removed, "missing settings.json is a clean no-op")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"model": "opus"}`), 0o644))
	removed, err = RemoveHooks(dir)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestHooksInstalled_PartialCoverage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{
		"hooks": {
			"Stop": [{"hooks": [{"type": "command", "command": "claude-notify hook"}]}]
		}
	}`), 0o644))

	assert.False(t, HooksInstalled(dir), "one event out of eight is not installed")
}

func TestInstallHooks_MalformedSettings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{broken`), 0o644))

	_, err := InstallHooks(dir)
	assert.Error(t, err, "never clobber a settings file we cannot parse")
}

func TestClaudeConfigDir_EnvOverride(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", "/custom/claude")
	assert.Equal(t, "/custom/claude", ClaudeConfigDir())
}
