package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/skyswap/internal/fsutil"
	"github.com/blackwell-systems/skyswap/internal/launcher"
)

// backupManifest records what a backup snapshot contains. HadSky
// distinguishes "the installation had no skybox" from a damaged backup.
type backupManifest struct {
	CreatedAt time.Time `json:"createdAt"`
	Target    string    `json:"target"`
	HadSky    bool      `json:"hadSky"`
}

const backupManifestName = "manifest.json"

// createBackup snapshots the installation's current sky directory under a
// fresh backup directory and returns its path. On any failure the partial
// backup is discarded and the installation is untouched.
func (e *Engine) createBackup(ctx context.Context, inst launcher.Installation) (string, error) {
	dir := filepath.Join(e.backupRoot, inst.Key(), uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	manifest := backupManifest{
		CreatedAt: time.Now().UTC(),
		Target:    inst.Key(),
	}

	skyPath := inst.SkyPath()
	if _, err := os.Stat(skyPath); err == nil {
		manifest.HadSky = true
		if err := fsutil.CopyDir(ctx, skyPath, filepath.Join(dir, "sky")); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("failed to copy current textures: %w", err)
		}
	} else if !os.IsNotExist(err) {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to stat current textures: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to marshal backup manifest: %w", err)
	}
	if err := fsutil.AtomicWriteFile(filepath.Join(dir, backupManifestName), data, 0644); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to write backup manifest: %w", err)
	}
	return dir, nil
}

// restoreFromBackup puts the installation's sky directory back to the state
// captured in backupDir. It deliberately ignores cancellation: a rollback in
// progress must run to completion.
func (e *Engine) restoreFromBackup(backupDir string, inst launcher.Installation) error {
	manifest, err := readBackupManifest(backupDir)
	if err != nil {
		return err
	}

	skyPath := inst.SkyPath()
	if err := os.RemoveAll(skyPath); err != nil {
		return fmt.Errorf("failed to clear textures for rollback: %w", err)
	}
	if !manifest.HadSky {
		return nil
	}
	if err := fsutil.CopyDir(context.Background(), filepath.Join(backupDir, "sky"), skyPath); err != nil {
		return fmt.Errorf("failed to restore textures from backup: %w", err)
	}
	return nil
}

// LatestBackup returns the most recent retained backup directory for the
// installation, or ErrNoBackup.
func (e *Engine) LatestBackup(inst launcher.Installation) (string, error) {
	targetDir := filepath.Join(e.backupRoot, inst.Key())
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no backups for %s: %w", inst.Key(), ErrNoBackup)
		}
		return "", fmt.Errorf("failed to read backup directory: %w", err)
	}

	var best string
	var bestTime time.Time
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(targetDir, entry.Name())
		manifest, err := readBackupManifest(dir)
		if err != nil {
			continue
		}
		if best == "" || manifest.CreatedAt.After(bestTime) {
			best = dir
			bestTime = manifest.CreatedAt
		}
	}
	if best == "" {
		return "", fmt.Errorf("no backups for %s: %w", inst.Key(), ErrNoBackup)
	}
	return best, nil
}

// pruneBackups discards every backup for the installation except keep. Only
// the most recent pre-swap snapshot is retained; pruning failures are warned
// about, never fatal.
func (e *Engine) pruneBackups(inst launcher.Installation, keep string) {
	targetDir := filepath.Join(e.backupRoot, inst.Key())
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		e.warn("failed to prune backups", map[string]any{"error": err.Error()})
		return
	}
	for _, entry := range entries {
		dir := filepath.Join(targetDir, entry.Name())
		if dir == keep {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			e.warn("failed to remove old backup", map[string]any{"path": dir, "error": err.Error()})
		}
	}
}

func readBackupManifest(dir string) (*backupManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, backupManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup manifest: %w", err)
	}
	var manifest backupManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse backup manifest: %w", err)
	}
	return &manifest, nil
}
