package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tchow/claude-notify/internal/logging"
)

var cfgLog = logging.ForComponent(logging.CompConfig)

// reloadDebounce coalesces the editor write/rename bursts that fsnotify
// reports for a single save.
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads config.toml when it changes and hands the result to a
// callback. Only settings the daemon can apply live (log level, popup delay)
// take effect; socket path changes need a restart.
type Watcher struct {
	path     string
	onReload func(*Config)
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the config file at path. The callback is
// invoked from the watcher goroutine with the freshly loaded config.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, onReload: onReload, watcher: fsw}, nil
}

// Run watches until ctx is cancelled. The containing directory is watched
// rather than the file itself so atomic-rename saves keep being seen.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		cfgLog.Warn("config_watch_failed", slog.String("path", w.path), slog.String("error", err.Error()))
		// Not fatal for the daemon: run without hot reload.
		<-ctx.Done()
		return nil
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			cfgLog.Warn("config_watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFrom(w.path)
	if err != nil {
		cfgLog.Warn("config_reload_failed", slog.String("path", w.path), slog.String("error", err.Error()))
		return
	}
	cfgLog.Info("config_reloaded", slog.String("path", w.path))
	w.onReload(cfg)
}
