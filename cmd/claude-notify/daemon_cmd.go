package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tchow/claude-notify/internal/config"
	"github.com/tchow/claude-notify/internal/daemon"
	"github.com/tchow/claude-notify/internal/journal"
	"github.com/tchow/claude-notify/internal/logging"
	"github.com/tchow/claude-notify/internal/notify"
	"github.com/tchow/claude-notify/internal/tracker"
)

// handleDaemon runs the always-on notification daemon.
func handleDaemon(args []string) {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	socketFlag := fs.String("socket", "", "Socket path (default: user runtime dir)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: text or json")
	foreground := fs.Bool("stderr", false, "Mirror logs to stderr")

	fs.Usage = func() {
		fmt.Println("Usage: claude-notify daemon [--socket PATH] [--log-level L] [--stderr]")
		fmt.Println()
		fmt.Println("Track Claude Code sessions and reflect their status as desktop notifications.")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *socketFlag != "" {
		cfg.SocketPath = *socketFlag
	}

	logCfg := logging.Config{
		LogDir: cfg.LogDir(),
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}
	if *foreground {
		logCfg.Stderr = os.Stderr
	}
	logging.Init(logCfg)
	defer logging.Shutdown()

	log := logging.ForComponent(logging.CompDaemon)

	if err := runDaemon(cfg, log); err != nil {
		fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cfg *config.Config, log *slog.Logger) error {
	var notifier notify.Notifier
	if n, err := notify.NewDBusNotifier(cfg.Notify.AppName, cfg.Notify.PopupTimeoutMs); err != nil {
		// Headless or broken session bus: keep tracking, skip notifications.
		log.Warn("notifications_unavailable", slog.String("error", err.Error()))
	} else {
		notifier = n
	}

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.JournalPath())
		if err != nil {
			log.Warn("journal_unavailable", slog.String("error", err.Error()))
		} else {
			jnl = j
			defer jnl.Close()
		}
	}

	registry := tracker.NewRegistry()
	orch := daemon.NewOrchestrator(registry, notifier, cfg.PopupDelay(), jnl)
	defer orch.Shutdown()

	server := daemon.NewServer(cfg.EffectiveSocketPath(), orch.HandleMessage)
	if err := server.Listen(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// SIGUSR1 dumps the registry and recent log lines to stderr.
	dumpCh := make(chan os.Signal, 1)
	signal.Notify(dumpCh, syscall.SIGUSR1)
	defer signal.Stop(dumpCh)

	watcher, err := config.NewWatcher(config.Path(), func(next *config.Config) {
		logging.SetLevel(next.Log.Level)
		orch.SetPopupDelay(next.PopupDelay())
	})
	if err != nil {
		log.Warn("config_watcher_unavailable", slog.String("error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-dumpCh:
				fmt.Fprintln(os.Stderr, orch.DumpState())
				for _, line := range logging.Tail() {
					fmt.Fprintln(os.Stderr, line)
				}
			}
		}
	})

	log.Info("daemon_started", slog.String("socket", cfg.EffectiveSocketPath()))
	err = g.Wait()
	log.Info("daemon_stopped")
	return err
}
