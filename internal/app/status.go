package app

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/skyswap/internal/fsutil"
	"github.com/blackwell-systems/skyswap/internal/output"
	"github.com/blackwell-systems/skyswap/internal/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache, journal, and watch daemon status",
	Example: `  # Check overall state
  skyswap status`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	c, err := newCache(j)
	if err != nil {
		return err
	}

	cacheDir, err := getCacheDir()
	if err != nil {
		return err
	}
	entries, totalBytes, err := c.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}
	fmt.Printf("Cache:   %s\n", output.RenderCacheStats(entries, totalBytes, cacheDir))

	backupRoot, err := getBackupRoot()
	if err != nil {
		return err
	}
	backupBytes, err := fsutil.DirSize(backupRoot)
	if err != nil {
		// No backups yet.
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to measure backups: %w", err)
		}
		backupBytes = 0
	}
	fmt.Printf("Backups: %s · %s\n", humanize.IBytes(uint64(backupBytes)), backupRoot)

	count, err := j.Count()
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	fmt.Printf("Journal: %d recorded attempts\n", count)

	installs, err := newLocator().Discover()
	if err != nil {
		return fmt.Errorf("failed to discover installations: %w", err)
	}
	fmt.Printf("Targets: %d installation(s) discovered\n", len(installs))

	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return err
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		fmt.Println("Watcher: running")
	} else {
		fmt.Println("Watcher: not running (start with 'skyswap watch --daemon')")
	}

	return nil
}
