package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/skyswap/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchStop        bool
	watchPIDFile     string
	watchLogFile     string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-apply skyboxes after client self-updates",
		Long: `Watch the launcher roots and re-apply the last applied skybox whenever a
client self-update installs a fresh version directory.

Roblox updates install into a new Versions/<hash> directory, silently
discarding modified textures. The watcher observes the launcher roots,
waits for the update burst to settle, and re-applies the journal's last
successful asset to the new active installation. Overlay launchers
(Bloxstrap, Fishstrap) keep their textures across updates and are left
alone.

Watch modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Daemon: run as a background process
  • Stop: stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  skyswap watch

  # Run as background daemon
  skyswap watch --daemon

  # Stop the daemon
  skyswap watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.skyswap/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.skyswap/watch.log)")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return err
		}
		watchPIDFile = defaultPID
	}
	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return err
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon()
	}

	if watchDaemon {
		return startWatchDaemon()
	}

	w, err := buildWatcher()
	if err != nil {
		return err
	}

	if watchDaemonChild {
		// Runs as the daemon child; stdout/stderr go to the log file.
		return w.RunDaemon(watchPIDFile)
	}

	return runWatchForeground(w)
}

// buildWatcher wires the watcher against the full stack; re-applies go
// through the same engine as 'skyswap apply'.
func buildWatcher() (*watcher.Watcher, error) {
	j, err := openJournal()
	if err != nil {
		return nil, err
	}

	c, err := newCache(j)
	if err != nil {
		j.Close()
		return nil, err
	}

	loc := newLocator()
	eng, err := newEngine(loc, c, j, newSource())
	if err != nil {
		j.Close()
		return nil, err
	}

	w, err := watcher.New(loc, eng, j, newLogSink())
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return w, nil
}

func stopWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Println("✓ Daemon stopped")
	return nil
}

func startWatchDaemon() error {
	if err := watcher.StartDaemon(watchPIDFile, watchLogFile); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Println("✓ Daemon started")
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	fmt.Printf("\nTo stop: skyswap watch --stop\n")
	return nil
}

func runWatchForeground(w *watcher.Watcher) error {
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Println("Watching launcher roots. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	fmt.Printf("\nReceived signal %v, shutting down...\n", sig)

	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	return nil
}
