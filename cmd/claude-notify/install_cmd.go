package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/tchow/claude-notify/internal/config"
	"github.com/tchow/claude-notify/internal/install"
)

func handleInstall(args []string) {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	systemd := fs.Bool("systemd", false, "Also install systemd user units (socket activation)")
	daemonCmd := fs.String("daemon-command", "", "ExecStart for the service unit (default: this binary)")
	fs.Usage = func() {
		fmt.Println("Usage: claude-notify install [--systemd] [--daemon-command CMD]")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	configDir := install.ClaudeConfigDir()
	installed, err := install.InstallHooks(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error installing hooks: %v\n", err)
		os.Exit(1)
	}
	if installed {
		fmt.Println("Claude Code hooks installed.")
		fmt.Printf("Config: %s/settings.json\n", configDir)
	} else {
		fmt.Println("Claude Code hooks are already installed.")
	}

	if !*systemd {
		return
	}

	command := *daemonCmd
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot resolve binary path: %v\n", err)
			os.Exit(1)
		}
		command = exe + " daemon"
	}

	unitDir, err := install.SystemdUserDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := install.WriteUnits(unitDir, command); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing systemd units: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Systemd units written to %s\n", unitDir)

	if install.ReloadSystemd() && install.EnableSocket() && install.StartSocket() {
		fmt.Println("Socket activation enabled and started.")
	} else {
		fmt.Println("Units written; run 'systemctl --user daemon-reload && systemctl --user enable --now claude-notify-daemon.socket' to activate.")
	}
}

func handleUninstall(args []string) {
	fs := flag.NewFlagSet("uninstall", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println("Usage: claude-notify uninstall")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	configDir := install.ClaudeConfigDir()
	removed, err := install.RemoveHooks(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing hooks: %v\n", err)
		os.Exit(1)
	}
	if removed {
		fmt.Println("Claude Code hooks removed.")
	} else {
		fmt.Println("No claude-notify hooks found.")
	}

	unitDir, err := install.SystemdUserDir()
	if err == nil {
		install.StopUnits()
		install.DisableSocket()
		if err := install.RemoveUnits(unitDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing systemd units: %v\n", err)
		} else {
			install.ReloadSystemd()
		}
	}
}

func handleStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println("Usage: claude-notify status")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	configDir := install.ClaudeConfigDir()
	if install.HooksInstalled(configDir) {
		fmt.Println("Hooks: INSTALLED")
		fmt.Printf("Config: %s/settings.json\n", configDir)
	} else {
		fmt.Println("Hooks: NOT INSTALLED")
		fmt.Println("Run 'claude-notify install' to install.")
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	socketPath := cfg.EffectiveSocketPath()
	if conn, err := net.DialTimeout("unix", socketPath, 500*time.Millisecond); err == nil {
		conn.Close()
		fmt.Printf("Daemon: RUNNING (%s)\n", socketPath)
	} else {
		fmt.Printf("Daemon: NOT RUNNING (%s)\n", socketPath)
	}
}
