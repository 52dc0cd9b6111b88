package main

import (
	"fmt"
	"os"
)

const Version = "0.3.0"

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: claude-notify <command> [flags]

Commands:
  daemon      Run the notification daemon
  hook        Forward one hook event from stdin to the daemon (used by Claude Code)
  install     Install Claude Code hooks (and optionally systemd units)
  uninstall   Remove Claude Code hooks and systemd units
  status      Show hook install state and daemon liveness
  version     Print version

Run 'claude-notify <command> -h' for command flags.`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "daemon":
		handleDaemon(args)
	case "hook":
		handleHook(args)
	case "install":
		handleInstall(args)
	case "uninstall":
		handleUninstall(args)
	case "status":
		handleStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("claude-notify v%s\n", Version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}
