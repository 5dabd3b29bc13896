package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/skyswap/internal/cache"
	"github.com/blackwell-systems/skyswap/internal/engine"
	"github.com/blackwell-systems/skyswap/internal/journal"
	"github.com/blackwell-systems/skyswap/internal/launcher"
	"github.com/blackwell-systems/skyswap/internal/logging"
	"github.com/blackwell-systems/skyswap/internal/source"
	"github.com/blackwell-systems/skyswap/internal/verify"
)

// getDataDir returns the skyswap data directory, using the flag value or
// ~/.skyswap, creating it if needed.
func getDataDir() (string, error) {
	dir := dataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, ".skyswap")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

func getJournalPath() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "skyswap.db"), nil
}

func getCacheDir() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache"), nil
}

func getBackupRoot() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backups"), nil
}

func getDefaultPIDFile() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

func getDefaultLogFile() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.log"), nil
}

// openJournal opens the activity journal in the data directory.
func openJournal() (*journal.Journal, error) {
	dbPath, err := getJournalPath()
	if err != nil {
		return nil, err
	}
	j, err := journal.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, nil
}

// newCache opens the asset cache. The journal backs the in-use check that
// guards eviction.
func newCache(j *journal.Journal) (*cache.Cache, error) {
	cacheDir, err := getCacheDir()
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cacheDir, j, verify.Verify)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return c, nil
}

func newSource() *source.HTTPSource {
	return source.NewHTTPSource(sourceURL)
}

func newLocator() *launcher.Locator {
	return launcher.NewLocator()
}

func newEngine(loc *launcher.Locator, c *cache.Cache, j *journal.Journal, src source.Source) (*engine.Engine, error) {
	backupRoot, err := getBackupRoot()
	if err != nil {
		return nil, err
	}
	return engine.New(loc, c, j, src, newLogSink(), backupRoot), nil
}

// newLogSink builds the default logrus-backed sink used by the engine and
// watcher.
func newLogSink() logging.Sink {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logging.NewLogrusSink(logger)
}
