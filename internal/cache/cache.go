// Package cache is the content-addressed local store of downloaded skybox
// archives. Payloads are immutable files keyed by their SHA-256; a JSON index
// maps asset ids to hashes so re-published assets become new entries instead
// of mutating old ones. Nothing is evicted automatically: the whole point of
// the cache is never paying a download twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"github.com/blackwell-systems/skyswap/internal/source"
)

var (
	// ErrNotCached is returned when an asset id has no cache entry.
	ErrNotCached = errors.New("asset not cached")

	// ErrAssetInUse is returned by Evict when the asset is the active
	// skybox for some installation.
	ErrAssetInUse = errors.New("asset is in use")
)

// Asset is one immutable cache entry. Identity is ContentHash; ID is the
// external asset identifier it was published under.
type Asset struct {
	ID           string    `json:"id"`
	ContentHash  string    `json:"contentHash"`
	SizeBytes    int64     `json:"sizeBytes"`
	DownloadedAt time.Time `json:"downloadedAt"`
}

// UsageChecker reports whether an asset is the currently-active skybox for
// any installation. The activity journal implements this.
type UsageChecker interface {
	AssetInUse(assetID string) (bool, error)
}

// VerifyFunc validates a downloaded payload before it is admitted.
type VerifyFunc func(payload []byte) error

// Cache is the on-disk asset store. Safe for concurrent use; concurrent
// fetches of the same asset id join a single download.
type Cache struct {
	root    string
	usage   UsageChecker
	verify  VerifyFunc
	fetches singleflight.Group
	lock    *flock.Flock
}

// New opens (creating if needed) a cache rooted at dir. usage may be nil,
// in which case Evict never reports ErrAssetInUse; verify may be nil to
// skip admission checks.
func New(dir string, usage UsageChecker, verify VerifyFunc) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "objects"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		root:   dir,
		usage:  usage,
		verify: verify,
		lock:   flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Has reports whether an entry exists for the asset id.
func (c *Cache) Has(assetID string) bool {
	_, err := c.Get(assetID)
	return err == nil
}

// Get returns the newest cache entry for an asset id.
func (c *Cache) Get(assetID string) (Asset, error) {
	idx, err := c.readIndex()
	if err != nil {
		return Asset{}, err
	}
	if a, ok := idx.latest(assetID); ok {
		return a, nil
	}
	return Asset{}, fmt.Errorf("no entry for %q: %w", assetID, ErrNotCached)
}

// List returns every cache entry, newest first.
func (c *Cache) List() ([]Asset, error) {
	idx, err := c.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]Asset, len(idx.Entries))
	copy(out, idx.Entries)
	sort.Slice(out, func(i, j int) bool {
		return out[i].DownloadedAt.After(out[j].DownloadedAt)
	})
	return out, nil
}

// Payload returns the stored bytes for a content hash.
func (c *Cache) Payload(contentHash string) ([]byte, error) {
	data, err := os.ReadFile(c.objectPath(contentHash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no payload for hash %s: %w", contentHash, ErrNotCached)
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}

// FetchOrGet returns the cache entry for assetID, downloading it from src
// only when no matching entry exists. The source's declared hash is consulted
// first so an unchanged asset costs zero network calls; when the source
// declares no hash, the payload is fetched and deduplicated by its computed
// hash. Concurrent callers for the same asset id share one in-flight fetch
// and receive the same entry or the same failure.
func (c *Cache) FetchOrGet(ctx context.Context, assetID string, src source.Source) (Asset, error) {
	v, err, _ := c.fetches.Do(assetID, func() (interface{}, error) {
		return c.fetchOrGet(ctx, assetID, src)
	})
	if err != nil {
		return Asset{}, err
	}
	return v.(Asset), nil
}

func (c *Cache) fetchOrGet(ctx context.Context, assetID string, src source.Source) (Asset, error) {
	declared, err := c.declaredHash(ctx, assetID, src)
	if err != nil {
		return Asset{}, err
	}

	idx, err := c.readIndex()
	if err != nil {
		return Asset{}, err
	}
	if declared != "" {
		if a, ok := idx.find(assetID, declared); ok {
			return a, nil
		}
	}

	payload, err := src.Fetch(ctx, assetID)
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Asset{}, err
		}
		return Asset{}, fmt.Errorf("fetch %s failed: %v: %w", assetID, err, source.ErrUnavailable)
	}

	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	if declared != "" && declared != hash {
		return Asset{}, fmt.Errorf("payload digest %s does not match declared %s: %w", hash, declared, source.ErrUnavailable)
	}

	if c.verify != nil {
		if err := c.verify(payload); err != nil {
			return Asset{}, err
		}
	}

	asset := Asset{
		ID:           assetID,
		ContentHash:  hash,
		SizeBytes:    int64(len(payload)),
		DownloadedAt: time.Now().UTC(),
	}
	if err := c.admit(asset, payload); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// declaredHash asks the source for the asset's expected hash. A source that
// cannot list, or does not know the asset, declares nothing; the download
// path then decides.
func (c *Cache) declaredHash(ctx context.Context, assetID string, src source.Source) (string, error) {
	infos, err := src.ListAvailable(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", nil
	}
	for _, info := range infos {
		if info.ID == assetID {
			return info.DeclaredHash, nil
		}
	}
	return "", nil
}

// admit writes the payload under its hash slot (temp then rename, so the
// object is never observable half-written) and records the index entry under
// the cross-process lock.
func (c *Cache) admit(asset Asset, payload []byte) error {
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock cache: %w", err)
	}
	defer c.lock.Unlock()

	objPath := c.objectPath(asset.ContentHash)
	if _, err := os.Stat(objPath); os.IsNotExist(err) {
		tmp, err := os.CreateTemp(filepath.Join(c.root, "objects"), ".tmp-*")
		if err != nil {
			return fmt.Errorf("failed to create temp object: %w", err)
		}
		tmpName := tmp.Name()
		if _, err := tmp.Write(payload); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("failed to write object: %w", err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpName)
			return fmt.Errorf("failed to close object: %w", err)
		}
		if err := os.Rename(tmpName, objPath); err != nil {
			os.Remove(tmpName)
			return fmt.Errorf("failed to commit object: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to stat object: %w", err)
	}

	idx, err := c.readIndex()
	if err != nil {
		return err
	}
	if _, ok := idx.find(asset.ID, asset.ContentHash); ok {
		return nil
	}
	idx.Entries = append(idx.Entries, asset)
	return c.writeIndex(idx)
}

// Evict removes every entry for the asset id along with payloads no other
// entry references. It refuses with ErrAssetInUse while the asset is the
// active skybox for any installation.
func (c *Cache) Evict(assetID string) error {
	if c.usage != nil {
		inUse, err := c.usage.AssetInUse(assetID)
		if err != nil {
			return fmt.Errorf("failed to check asset usage: %w", err)
		}
		if inUse {
			return fmt.Errorf("cannot evict %q: %w", assetID, ErrAssetInUse)
		}
	}

	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock cache: %w", err)
	}
	defer c.lock.Unlock()

	idx, err := c.readIndex()
	if err != nil {
		return err
	}

	var kept []Asset
	removed := make(map[string]bool)
	for _, a := range idx.Entries {
		if a.ID == assetID {
			removed[a.ContentHash] = true
			continue
		}
		kept = append(kept, a)
	}
	if len(removed) == 0 {
		return fmt.Errorf("no entry for %q: %w", assetID, ErrNotCached)
	}

	// A payload stays if any surviving entry still references it.
	for _, a := range kept {
		delete(removed, a.ContentHash)
	}

	idx.Entries = kept
	if err := c.writeIndex(idx); err != nil {
		return err
	}
	for hash := range removed {
		if err := os.Remove(c.objectPath(hash)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove payload %s: %w", hash, err)
		}
	}
	return nil
}

// Stats summarizes the cache for status output.
func (c *Cache) Stats() (entries int, totalBytes int64, err error) {
	idx, err := c.readIndex()
	if err != nil {
		return 0, 0, err
	}
	seen := make(map[string]bool)
	for _, a := range idx.Entries {
		entries++
		if !seen[a.ContentHash] {
			seen[a.ContentHash] = true
			totalBytes += a.SizeBytes
		}
	}
	return entries, totalBytes, nil
}

func (c *Cache) objectPath(contentHash string) string {
	return filepath.Join(c.root, "objects", contentHash)
}
