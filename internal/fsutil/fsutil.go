// Package fsutil provides the filesystem primitives shared by the cache and
// the apply engine: atomic file writes, cross-device-safe renames, and
// context-aware directory copies.
package fsutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to filename by writing a temporary file in the
// same directory and renaming it into place. Readers never observe a
// partially-written file.
func AtomicWriteFile(filename string, data []byte, mode os.FileMode) error {
	dir, base := filepath.Split(filename)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := RenameWithFallback(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// RenameWithFallback renames oldpath to newpath, falling back to a
// copy-and-delete when the rename crosses filesystems.
func RenameWithFallback(oldpath, newpath string) error {
	err := os.Rename(oldpath, newpath)
	if err == nil {
		return nil
	}

	info, statErr := os.Stat(oldpath)
	if statErr != nil {
		return fmt.Errorf("failed to rename %s: %w", oldpath, err)
	}

	if info.IsDir() {
		if cpErr := CopyDir(context.Background(), oldpath, newpath); cpErr != nil {
			return fmt.Errorf("failed to rename %s: %w", oldpath, err)
		}
	} else {
		if cpErr := CopyFile(oldpath, newpath); cpErr != nil {
			return fmt.Errorf("failed to rename %s: %w", oldpath, err)
		}
	}
	return os.RemoveAll(oldpath)
}

// CopyFile copies a single regular file, preserving its mode.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return nil
}

// CopyDir recursively copies the directory tree at src to dst. The context is
// checked between files so a deadline bounds long copies; on error or
// cancellation the partial destination is left for the caller to discard.
func CopyDir(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}

	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyDir(ctx, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			// Symlinks and devices have no business in a texture set.
			continue
		}
		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// DirSize returns the total size in bytes of all regular files under root.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return total, nil
}
