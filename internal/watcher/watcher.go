// Package watcher keeps an applied skybox in place across client
// self-updates. Roblox installs every update into a fresh version directory,
// which silently discards the modified textures; the watcher observes the
// launcher roots and re-applies the last successful asset to the new active
// installation.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/skyswap/internal/journal"
	"github.com/blackwell-systems/skyswap/internal/launcher"
	"github.com/blackwell-systems/skyswap/internal/logging"
)

// Applier swaps an asset onto an installation. The engine implements this.
type Applier interface {
	Apply(ctx context.Context, target launcher.Installation, assetID string) (*journal.Record, error)
}

// Historian answers what was last applied where. The journal implements this.
type Historian interface {
	ActiveAsset(kind, versionID string) (string, bool, error)
	LatestSuccessForKind(kind string) (string, bool, error)
}

// Resolver exposes the launcher roots to watch and resolves active
// installations. The locator implements this.
type Resolver interface {
	Kinds() []launcher.Kind
	Root(kind launcher.Kind) (string, bool)
	ResolveActive(kind launcher.Kind) (launcher.Installation, error)
}

// Watcher re-applies skyboxes after launcher self-updates. Filesystem events
// under the launcher roots are debounced, then every kind is checked for a
// pending re-apply.
type Watcher struct {
	locator  Resolver
	engine   Applier
	journal  Historian
	sink     logging.Sink
	debounce time.Duration

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Watcher. sink may be nil to discard logs.
func New(locator Resolver, engine Applier, historian Historian, sink logging.Sink) (*Watcher, error) {
	if locator == nil || engine == nil || historian == nil {
		return nil, fmt.Errorf("locator, engine, and historian are required")
	}
	if sink == nil {
		sink = logging.Discard()
	}
	return &Watcher{
		locator:  locator,
		engine:   engine,
		journal:  historian,
		sink:     sink,
		debounce: 5 * time.Second,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching the launcher roots. It runs one re-apply sweep
// immediately so an update that happened while the watcher was down is
// caught on startup.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	w.fsw = fsw

	watched := 0
	for _, kind := range w.locator.Kinds() {
		root, ok := w.locator.Root(kind)
		if !ok {
			continue
		}
		if err := fsw.Add(root); err != nil {
			w.warn("failed to watch launcher root", map[string]any{"kind": string(kind), "root": root, "error": err.Error()})
			continue
		}
		// Watches are not recursive; a Roblox update lands inside
		// Versions/, so watch that level too where it exists.
		if err := fsw.Add(filepath.Join(root, "Versions")); err == nil {
			watched++
		}
		watched++
	}
	if watched == 0 {
		fsw.Close()
		return fmt.Errorf("no launcher roots available to watch")
	}

	w.Sweep(context.Background())

	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop halts the watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// run debounces filesystem events into re-apply sweeps. A self-update writes
// hundreds of files; the timer only fires once the burst settles.
func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.warn("filesystem watch error", map[string]any{"error": err.Error()})
		case <-timer.C:
			w.Sweep(context.Background())
		case <-w.stopCh:
			timer.Stop()
			return
		}
	}
}

// Sweep checks every launcher kind and re-applies where an update has retired
// the installation the last successful apply targeted.
func (w *Watcher) Sweep(ctx context.Context) {
	for _, kind := range w.locator.Kinds() {
		target, assetID, ok := w.pendingReapply(kind)
		if !ok {
			continue
		}
		w.info("re-applying after launcher update", map[string]any{
			"kind": string(kind), "version": target.VersionID, "asset": assetID,
		})
		if _, err := w.engine.Apply(ctx, target, assetID); err != nil {
			w.warn("re-apply failed", map[string]any{"kind": string(kind), "asset": assetID, "error": err.Error()})
		}
	}
}

// pendingReapply reports whether kind's active installation should receive a
// re-apply, and of which asset. A re-apply is due when the kind has a prior
// successful apply but the currently-active installation has none, i.e. a
// self-update created a fresh version directory. Restore records carry no
// asset and never trigger one.
func (w *Watcher) pendingReapply(kind launcher.Kind) (launcher.Installation, string, bool) {
	active, err := w.locator.ResolveActive(kind)
	if err != nil {
		return launcher.Installation{}, "", false
	}

	latest, found, err := w.journal.LatestSuccessForKind(string(kind))
	if err != nil {
		w.warn("failed to read journal", map[string]any{"kind": string(kind), "error": err.Error()})
		return launcher.Installation{}, "", false
	}
	if !found || latest == "" {
		return launcher.Installation{}, "", false
	}

	if _, applied, err := w.journal.ActiveAsset(string(kind), active.VersionID); err != nil {
		w.warn("failed to read journal", map[string]any{"kind": string(kind), "error": err.Error()})
		return launcher.Installation{}, "", false
	} else if applied {
		return launcher.Installation{}, "", false
	}

	return active, latest, true
}

func (w *Watcher) info(msg string, fields map[string]any) {
	w.sink.Log(logging.Entry{Level: logging.LevelInfo, Message: msg, Fields: fields})
}

func (w *Watcher) warn(msg string, fields map[string]any) {
	w.sink.Log(logging.Entry{Level: logging.LevelWarn, Message: msg, Fields: fields})
}
