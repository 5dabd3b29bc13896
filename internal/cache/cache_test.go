package cache

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/blackwell-systems/skyswap/internal/source"
)

// fakeSource serves assets from memory and counts fetches.
type fakeSource struct {
	mu       sync.Mutex
	assets   map[string][]byte
	declared map[string]string
	fetches  atomic.Int64
	listErr  error
	fetchErr error
	// block, when non-nil, is closed by the test to release in-flight
	// fetches; used to prove concurrent callers join one download.
	block chan struct{}
}

func (f *fakeSource) ListAvailable(ctx context.Context) ([]source.AssetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []source.AssetInfo
	for id, payload := range f.assets {
		out = append(out, source.AssetInfo{
			ID:           id,
			DeclaredHash: f.declared[id],
			SizeBytes:    int64(len(payload)),
		})
	}
	return out, nil
}

func (f *fakeSource) Fetch(ctx context.Context, assetID string) ([]byte, error) {
	if f.block != nil {
		<-f.block
	}
	f.fetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	payload, ok := f.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("unknown asset %s: %w", assetID, source.ErrUnavailable)
	}
	return payload, nil
}

func hashOf(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// skyZip builds a minimal zip payload; content varies with seed so distinct
// seeds produce distinct hashes.
func skyZip(t *testing.T, seed string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, face := range []string{"bk", "dn", "ft", "lf", "rt", "up"} {
		w, err := zw.Create(seed + "_" + face + ".tex")
		if err != nil {
			t.Fatalf("Failed to create entry: %v", err)
		}
		if _, err := w.Write([]byte(seed)); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func newFakeSource(t *testing.T, withHashes bool, ids ...string) *fakeSource {
	t.Helper()
	f := &fakeSource{assets: make(map[string][]byte), declared: make(map[string]string)}
	for _, id := range ids {
		payload := skyZip(t, id)
		f.assets[id] = payload
		if withHashes {
			f.declared[id] = hashOf(payload)
		}
	}
	return f
}

func TestFetchOrGetIdempotent(t *testing.T) {
	c, err := New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	src := newFakeSource(t, true, "sky42")

	first, err := c.FetchOrGet(context.Background(), "sky42", src)
	if err != nil {
		t.Fatalf("First FetchOrGet failed: %v", err)
	}
	if src.fetches.Load() != 1 {
		t.Fatalf("Expected 1 fetch, got %d", src.fetches.Load())
	}
	if !c.Has("sky42") {
		t.Fatal("Expected Has to report true after fetch")
	}

	second, err := c.FetchOrGet(context.Background(), "sky42", src)
	if err != nil {
		t.Fatalf("Second FetchOrGet failed: %v", err)
	}
	if src.fetches.Load() != 1 {
		t.Errorf("Second FetchOrGet performed a network fetch")
	}
	if first.ContentHash != second.ContentHash {
		t.Errorf("Entries differ: %s vs %s", first.ContentHash, second.ContentHash)
	}

	payload, err := c.Payload(second.ContentHash)
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if !bytes.Equal(payload, src.assets["sky42"]) {
		t.Error("Cached payload differs from source bytes")
	}
}

func TestFetchOrGetWithoutDeclaredHash(t *testing.T) {
	c, err := New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	src := newFakeSource(t, false, "sky42")

	asset, err := c.FetchOrGet(context.Background(), "sky42", src)
	if err != nil {
		t.Fatalf("FetchOrGet failed: %v", err)
	}
	if asset.ContentHash != hashOf(src.assets["sky42"]) {
		t.Error("Computed hash not authoritative")
	}

	// Without a declared hash the cache must re-download to learn whether
	// content changed, then deduplicate by computed hash.
	again, err := c.FetchOrGet(context.Background(), "sky42", src)
	if err != nil {
		t.Fatalf("Second FetchOrGet failed: %v", err)
	}
	if again.ContentHash != asset.ContentHash {
		t.Error("Expected dedup to same entry")
	}
	entries, _, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if entries != 1 {
		t.Errorf("Expected 1 index entry, got %d", entries)
	}
}

func TestFetchOrGetRepublishedAsset(t *testing.T) {
	c, err := New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	src := newFakeSource(t, true, "sky42")

	first, err := c.FetchOrGet(context.Background(), "sky42", src)
	if err != nil {
		t.Fatalf("FetchOrGet failed: %v", err)
	}

	// Same id re-published with new content: a new entry, not a mutation.
	newPayload := skyZip(t, "sky42-v2")
	src.mu.Lock()
	src.assets["sky42"] = newPayload
	src.declared["sky42"] = hashOf(newPayload)
	src.mu.Unlock()

	second, err := c.FetchOrGet(context.Background(), "sky42", src)
	if err != nil {
		t.Fatalf("FetchOrGet after republish failed: %v", err)
	}
	if second.ContentHash == first.ContentHash {
		t.Fatal("Expected a new entry for changed content")
	}
	if _, err := c.Payload(first.ContentHash); err != nil {
		t.Errorf("Old entry must survive republish: %v", err)
	}

	list, err := c.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(list))
	}
}

func TestFetchOrGetDeclaredHashMismatch(t *testing.T) {
	c, err := New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	src := newFakeSource(t, true, "sky42")
	src.declared["sky42"] = "0000000000000000000000000000000000000000000000000000000000000000"

	if _, err := c.FetchOrGet(context.Background(), "sky42", src); !errors.Is(err, source.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable on digest mismatch, got %v", err)
	}
	if c.Has("sky42") {
		t.Error("Mismatched payload must not be admitted")
	}
}

func TestFetchOrGetVerifyRejects(t *testing.T) {
	wantErr := errors.New("structurally bad")
	c, err := New(t.TempDir(), nil, func([]byte) error { return wantErr })
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	src := newFakeSource(t, true, "sky42")

	if _, err := c.FetchOrGet(context.Background(), "sky42", src); !errors.Is(err, wantErr) {
		t.Errorf("Expected verify error, got %v", err)
	}
	if c.Has("sky42") {
		t.Error("Rejected payload must not be admitted")
	}
}

func TestFetchOrGetConcurrentJoin(t *testing.T) {
	c, err := New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	src := newFakeSource(t, true, "sky42")
	src.block = make(chan struct{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Asset, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.FetchOrGet(context.Background(), "sky42", src)
		}(i)
	}

	close(src.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("Caller %d failed: %v", i, errs[i])
		}
		if results[i].ContentHash != results[0].ContentHash {
			t.Errorf("Caller %d got a different entry", i)
		}
	}
	if n := src.fetches.Load(); n != 1 {
		t.Errorf("Expected 1 joined fetch, got %d", n)
	}
}

func TestFetchOrGetSourceUnavailable(t *testing.T) {
	c, err := New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	src := newFakeSource(t, false)

	if _, err := c.FetchOrGet(context.Background(), "nope", src); !errors.Is(err, source.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

// journalStub implements UsageChecker with a fixed answer.
type journalStub struct{ inUse bool }

func (j journalStub) AssetInUse(string) (bool, error) { return j.inUse, nil }

func TestEvict(t *testing.T) {
	t.Run("InUse", func(t *testing.T) {
		c, err := New(t.TempDir(), journalStub{inUse: true}, nil)
		if err != nil {
			t.Fatalf("Failed to create cache: %v", err)
		}
		src := newFakeSource(t, true, "sky42")
		if _, err := c.FetchOrGet(context.Background(), "sky42", src); err != nil {
			t.Fatalf("FetchOrGet failed: %v", err)
		}

		if err := c.Evict("sky42"); !errors.Is(err, ErrAssetInUse) {
			t.Fatalf("Expected ErrAssetInUse, got %v", err)
		}
		if !c.Has("sky42") {
			t.Error("Entry must survive refused eviction")
		}
	})

	t.Run("RemovesEntryAndPayload", func(t *testing.T) {
		c, err := New(t.TempDir(), journalStub{inUse: false}, nil)
		if err != nil {
			t.Fatalf("Failed to create cache: %v", err)
		}
		src := newFakeSource(t, true, "sky42")
		asset, err := c.FetchOrGet(context.Background(), "sky42", src)
		if err != nil {
			t.Fatalf("FetchOrGet failed: %v", err)
		}

		if err := c.Evict("sky42"); err != nil {
			t.Fatalf("Evict failed: %v", err)
		}
		if c.Has("sky42") {
			t.Error("Entry still present after eviction")
		}
		if _, err := c.Payload(asset.ContentHash); !errors.Is(err, ErrNotCached) {
			t.Errorf("Payload still present after eviction: %v", err)
		}
	})

	t.Run("NotCached", func(t *testing.T) {
		c, err := New(t.TempDir(), nil, nil)
		if err != nil {
			t.Fatalf("Failed to create cache: %v", err)
		}
		if err := c.Evict("ghost"); !errors.Is(err, ErrNotCached) {
			t.Errorf("Expected ErrNotCached, got %v", err)
		}
	})
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	src := newFakeSource(t, true, "sky42")

	c, err := New(dir, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	asset, err := c.FetchOrGet(context.Background(), "sky42", src)
	if err != nil {
		t.Fatalf("FetchOrGet failed: %v", err)
	}

	reopened, err := New(dir, nil, nil)
	if err != nil {
		t.Fatalf("Failed to reopen cache: %v", err)
	}
	got, err := reopened.Get("sky42")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.ContentHash != asset.ContentHash {
		t.Error("Reopened cache returned a different entry")
	}
	if src.fetches.Load() != 1 {
		t.Errorf("Reopen must not refetch, got %d fetches", src.fetches.Load())
	}
}
