// Package verify performs structural integrity checks on skybox archives
// before they are trusted: once when a download is admitted to the cache and
// again immediately before a swap, guarding against cache tampering in
// between. It checks structure only; decoding or rendering the faces is out
// of scope.
package verify

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalid is returned when a payload fails structural verification. The
// wrapping error carries the reason.
var ErrInvalid = errors.New("asset failed integrity check")

// pngMagic is the 8-byte PNG file signature.
var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// faceSuffixes are the six cube faces a complete skybox provides, matched
// against the tail of each face file's base name.
var faceSuffixes = []string{"bk", "dn", "ft", "lf", "rt", "up"}

// Verify checks that payload is a structurally sound skybox archive: a
// readable zip whose regular entries are .png or .tex files with sane names,
// non-zero sizes, correct magic bytes for PNG entries, and all six cube
// faces present.
func Verify(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty payload: %w", ErrInvalid)
	}

	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return fmt.Errorf("not a readable archive: %w", ErrInvalid)
	}

	faces := make(map[string]bool)
	var fileCount int

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(f.Name)
		if strings.HasPrefix(name, "..") || path.IsAbs(name) {
			return fmt.Errorf("entry %q escapes the archive root: %w", f.Name, ErrInvalid)
		}

		base := strings.ToLower(path.Base(name))
		ext := path.Ext(base)
		if ext != ".png" && ext != ".tex" {
			return fmt.Errorf("entry %q has unexpected type %q: %w", f.Name, ext, ErrInvalid)
		}
		if f.UncompressedSize64 == 0 {
			return fmt.Errorf("entry %q is empty: %w", f.Name, ErrInvalid)
		}
		if ext == ".png" {
			if err := checkPNGMagic(f); err != nil {
				return err
			}
		}
		fileCount++

		if face := faceOf(base); face != "" {
			faces[face] = true
		}
	}

	if fileCount == 0 {
		return fmt.Errorf("archive contains no texture files: %w", ErrInvalid)
	}
	for _, face := range faceSuffixes {
		if !faces[face] {
			return fmt.Errorf("missing %q face: %w", face, ErrInvalid)
		}
	}
	return nil
}

// faceOf returns the cube face a file name covers, or "" for auxiliary files
// such as previews.
func faceOf(base string) string {
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, face := range faceSuffixes {
		if strings.HasSuffix(stem, face) {
			return face
		}
	}
	return ""
}

func checkPNGMagic(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open entry %q: %w", f.Name, ErrInvalid)
	}
	defer rc.Close()

	header := make([]byte, len(pngMagic))
	if _, err := io.ReadFull(rc, header); err != nil {
		return fmt.Errorf("entry %q is truncated: %w", f.Name, ErrInvalid)
	}
	if !bytes.Equal(header, pngMagic) {
		return fmt.Errorf("entry %q is not a PNG: %w", f.Name, ErrInvalid)
	}
	return nil
}
