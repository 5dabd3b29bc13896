package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/skyswap/internal/fsutil"
)

// indexFile is the persisted metadata index: the full list of (assetID,
// contentHash) entries. It is rewritten atomically on every mutation so a
// crash never leaves a truncated index; the layout is stable across
// versions.
type indexFile struct {
	Entries []Asset `json:"entries"`
}

// latest returns the most recently downloaded entry for an asset id.
func (idx *indexFile) latest(assetID string) (Asset, bool) {
	var best Asset
	var found bool
	for _, a := range idx.Entries {
		if a.ID != assetID {
			continue
		}
		if !found || a.DownloadedAt.After(best.DownloadedAt) {
			best = a
			found = true
		}
	}
	return best, found
}

// find returns the entry for an exact (assetID, contentHash) pair.
func (idx *indexFile) find(assetID, contentHash string) (Asset, bool) {
	for _, a := range idx.Entries {
		if a.ID == assetID && a.ContentHash == contentHash {
			return a, true
		}
	}
	return Asset{}, false
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.root, "index.json")
}

func (c *Cache) readIndex() (*indexFile, error) {
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &indexFile{}, nil
		}
		return nil, fmt.Errorf("failed to read cache index: %w", err)
	}
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse cache index: %w", err)
	}
	return &idx, nil
}

func (c *Cache) writeIndex(idx *indexFile) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}
	if err := fsutil.AtomicWriteFile(c.indexPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	return nil
}
