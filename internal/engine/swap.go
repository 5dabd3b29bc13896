package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/blackwell-systems/skyswap/internal/fsutil"
	"github.com/blackwell-systems/skyswap/internal/launcher"
)

// swapArchive stages the archive payload inside the installation's texture
// path and swaps it in as the live sky directory.
func (e *Engine) swapArchive(ctx context.Context, inst launcher.Installation, payload []byte) error {
	return e.stageAndSwap(ctx, inst, func(ctx context.Context, stagingDir string) error {
		return extractArchive(ctx, payload, stagingDir)
	})
}

// swapFromBackup stages the contents of a backup snapshot and swaps it in.
// A backup of an installation that had no skybox swaps in an empty state.
func (e *Engine) swapFromBackup(ctx context.Context, inst launcher.Installation, backupDir string) error {
	manifest, err := readBackupManifest(backupDir)
	if err != nil {
		return err
	}
	return e.stageAndSwap(ctx, inst, func(ctx context.Context, stagingDir string) error {
		if !manifest.HadSky {
			return nil
		}
		return fsutil.CopyDir(ctx, filepath.Join(backupDir, "sky"), stagingDir)
	})
}

// stageAndSwap builds the replacement sky directory via stage() in a staging
// directory inside the textures path (same volume, so the commit renames are
// atomic), then replaces the live directory:
//
//	live sky  -> aside
//	staging   -> live sky
//	aside     removed
//
// stage() may honor ctx; once the renames begin, the swap runs to completion.
func (e *Engine) stageAndSwap(ctx context.Context, inst launcher.Installation, stage func(ctx context.Context, dir string) error) error {
	texturesPath := inst.TexturesPath()
	if err := os.MkdirAll(texturesPath, 0755); err != nil {
		return fmt.Errorf("failed to create textures directory: %w", err)
	}

	token := uuid.NewString()
	stagingDir := filepath.Join(texturesPath, ".sky-staging-"+token)
	asideDir := filepath.Join(texturesPath, ".sky-old-"+token)
	skyPath := inst.SkyPath()

	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	if err := stage(ctx, stagingDir); err != nil {
		os.RemoveAll(stagingDir)
		return fmt.Errorf("failed to stage textures: %w", err)
	}

	hadSky := false
	if _, err := os.Stat(skyPath); err == nil {
		hadSky = true
		if err := e.rename(skyPath, asideDir); err != nil {
			os.RemoveAll(stagingDir)
			return fmt.Errorf("failed to move live textures aside: %w", err)
		}
	}

	if err := e.rename(stagingDir, skyPath); err != nil {
		// Put the old set back before reporting; the caller's rollback
		// path will still run, but this closes the window immediately.
		if hadSky {
			if backErr := e.rename(asideDir, skyPath); backErr != nil {
				return fmt.Errorf("failed to commit staged textures (%v) and to re-instate old set: %w", err, backErr)
			}
		}
		os.RemoveAll(stagingDir)
		return fmt.Errorf("failed to commit staged textures: %w", err)
	}

	if hadSky {
		if err := os.RemoveAll(asideDir); err != nil {
			e.warn("failed to remove old texture set", map[string]any{"path": asideDir, "error": err.Error()})
		}
	}
	return nil
}

// extractArchive unpacks a verified skybox archive into dir, flattening any
// single top-level directory so face files always land directly in the sky
// directory. Entries are re-checked against path escapes; the context is
// honored between entries.
func extractArchive(ctx context.Context, payload []byte, dir string) error {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}

		name := path.Clean(f.Name)
		if strings.HasPrefix(name, "..") || path.IsAbs(name) {
			return fmt.Errorf("archive entry %q escapes extraction root", f.Name)
		}

		dst := filepath.Join(dir, path.Base(name))
		if err := extractFile(f, dst); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %q: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return nil
}
