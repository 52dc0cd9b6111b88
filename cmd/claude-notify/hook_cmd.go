package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tchow/claude-notify/internal/config"
	"github.com/tchow/claude-notify/internal/hook"
)

// handleHook forwards one hook payload from stdin to the daemon. It always
// exits 0: Claude Code must never be blocked or failed by a missing daemon.
func handleHook(args []string) {
	fs := flag.NewFlagSet("hook", flag.ContinueOnError)
	socketFlag := fs.String("socket", "", "Daemon socket path override")
	fs.Usage = func() {
		fmt.Println("Usage: claude-notify hook [--socket PATH]")
		fmt.Println()
		fmt.Println("Reads one hook event from stdin and forwards it to the daemon.")
	}
	if err := fs.Parse(args); err != nil {
		return
	}

	stdin, err := io.ReadAll(os.Stdin)
	if err != nil {
		return
	}

	socketPath := *socketFlag
	if socketPath == "" {
		cfg, err := config.Load()
		if err != nil {
			cfg = config.Default()
		}
		socketPath = cfg.EffectiveSocketPath()
	}

	// Result deliberately discarded: a dropped event is simply lost.
	_ = hook.Run(stdin, socketPath)
}
