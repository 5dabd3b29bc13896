// Package engine orchestrates the safe texture swap: resolve the live
// installation, obtain verified bytes from the cache, back the current
// textures up, stage the replacement, and swap it in atomically. Every
// attempt is journaled; no failure mode leaves an installation with a
// partially-written texture set that isn't recorded as such.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blackwell-systems/skyswap/internal/cache"
	"github.com/blackwell-systems/skyswap/internal/fsutil"
	"github.com/blackwell-systems/skyswap/internal/journal"
	"github.com/blackwell-systems/skyswap/internal/launcher"
	"github.com/blackwell-systems/skyswap/internal/logging"
	"github.com/blackwell-systems/skyswap/internal/source"
	"github.com/blackwell-systems/skyswap/internal/verify"
)

// Resolver resolves the currently-active installation for a launcher kind.
type Resolver interface {
	ResolveActive(kind launcher.Kind) (launcher.Installation, error)
}

// AssetCache supplies verified asset bytes, fetching on miss.
type AssetCache interface {
	FetchOrGet(ctx context.Context, assetID string, src source.Source) (cache.Asset, error)
	Payload(contentHash string) ([]byte, error)
}

// Recorder appends apply records to the activity journal.
type Recorder interface {
	Append(*journal.Record) error
}

// Engine performs atomic, recoverable skybox swaps against live
// installations. Applies to the same installation target are serialized;
// distinct targets proceed in parallel.
type Engine struct {
	resolver   Resolver
	cache      AssetCache
	journal    Recorder
	source     source.Source
	sink       logging.Sink
	backupRoot string

	// rename is the primitive used for the commit-point renames;
	// swappable for fault injection.
	rename func(oldpath, newpath string) error

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Engine. sink may be nil to discard logs.
func New(resolver Resolver, assetCache AssetCache, recorder Recorder, src source.Source, sink logging.Sink, backupRoot string) *Engine {
	if sink == nil {
		sink = logging.Discard()
	}
	return &Engine{
		resolver:   resolver,
		cache:      assetCache,
		journal:    recorder,
		source:     src,
		sink:       sink,
		backupRoot: backupRoot,
		rename:     fsutil.RenameWithFallback,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Apply swaps the target installation's skybox for the named asset. It
// returns the journal record of the attempt; on failure the returned error
// matches one of the engine's error kinds and the record's outcome explains
// what state the installation was left in.
func (e *Engine) Apply(ctx context.Context, target launcher.Installation, assetID string) (*journal.Record, error) {
	lock := e.targetLock(target.Key())
	lock.Lock()
	defer lock.Unlock()

	rec := &journal.Record{
		Kind:      string(target.Kind),
		VersionID: target.VersionID,
		Root:      target.Root,
		AssetID:   assetID,
	}

	// Resolving: confirm the caller's target is still the live
	// installation. Client self-updates can retire it at any moment.
	e.info("resolving target", map[string]any{"target": target.Key(), "asset": assetID})
	if err := mapContextErr(ctx.Err()); err != nil {
		return e.fail(rec, journal.OutcomeFailed, err)
	}
	active, err := e.resolver.ResolveActive(target.Kind)
	if err != nil {
		return e.fail(rec, journal.OutcomeFailed, err)
	}
	if !active.SameTarget(target) {
		return e.fail(rec, journal.OutcomeFailed,
			fmt.Errorf("active installation is now %s: %w", active.VersionID, ErrTargetChanged))
	}

	// Verifying: bytes come from the cache (fetched on miss) and are
	// re-verified here, guarding against cache tampering since download.
	// No filesystem mutation has happened yet.
	asset, err := e.cache.FetchOrGet(ctx, assetID, e.source)
	if err != nil {
		return e.fail(rec, journal.OutcomeFailed, mapContextErr(err))
	}
	rec.ContentHash = asset.ContentHash
	payload, err := e.cache.Payload(asset.ContentHash)
	if err != nil {
		return e.fail(rec, journal.OutcomeFailed, err)
	}
	if err := verify.Verify(payload); err != nil {
		return e.fail(rec, journal.OutcomeFailed, err)
	}

	// Last abort point with zero side effects.
	if err := mapContextErr(ctx.Err()); err != nil {
		return e.fail(rec, journal.OutcomeFailed, err)
	}

	// BackingUp: snapshot the current textures before any destructive
	// write. Failure here aborts with the installation untouched.
	e.info("backing up current textures", map[string]any{"target": active.Key()})
	backupDir, err := e.createBackup(ctx, active)
	if err != nil {
		if timeoutErr := mapContextErr(err); errors.Is(timeoutErr, ErrTimeout) {
			return e.fail(rec, journal.OutcomeFailed, timeoutErr)
		}
		return e.fail(rec, journal.OutcomeFailed, fmt.Errorf("%v: %w", err, ErrBackupFailed))
	}
	rec.BackupRef = backupDir

	// Swapping: stage the full replacement inside the textures path, then
	// commit with directory renames. Cancellation is honored between
	// staged writes but not once the renames begin; from here the
	// operation runs to commit or rollback.
	e.info("swapping textures", map[string]any{"target": active.Key(), "hash": asset.ContentHash})
	if err := e.swapArchive(ctx, active, payload); err != nil {
		if rbErr := e.restoreFromBackup(backupDir, active); rbErr != nil {
			uerr := fmt.Errorf("swap failed (%v), rollback failed (%v), backup retained at %s: %w",
				err, rbErr, backupDir, ErrUnrecoverable)
			return e.fail(rec, journal.OutcomeUnrecoverable, uerr)
		}
		e.warn("swap failed, rolled back", map[string]any{"target": active.Key(), "error": err.Error()})
		// A deadline expiring mid-swap still rolls back, but the caller
		// must see the timeout kind.
		swapErr := fmt.Errorf("%v: %w", err, ErrSwapFailed)
		if errors.Is(err, context.DeadlineExceeded) {
			swapErr = fmt.Errorf("%v: %w: %w", err, ErrSwapFailed, ErrTimeout)
		}
		return e.fail(rec, journal.OutcomeRolledBack, swapErr)
	}

	// Committed: only now may the previous backup go; the fresh one is
	// retained until the next successful apply to this target.
	e.pruneBackups(active, backupDir)
	rec.Outcome = journal.OutcomeSuccess
	e.record(rec)
	e.info("apply committed", map[string]any{"target": active.Key(), "asset": assetID})
	return rec, nil
}

// Restore reverts a launcher's active installation to its most recent
// retained backup.
func (e *Engine) Restore(ctx context.Context, kind launcher.Kind) (*journal.Record, error) {
	active, err := e.resolver.ResolveActive(kind)
	if err != nil {
		return nil, err
	}

	lock := e.targetLock(active.Key())
	lock.Lock()
	defer lock.Unlock()

	rec := &journal.Record{
		Kind:      string(active.Kind),
		VersionID: active.VersionID,
		Root:      active.Root,
		Reason:    "restored pre-apply backup",
	}

	backupDir, err := e.LatestBackup(active)
	if err != nil {
		return e.fail(rec, journal.OutcomeFailed, err)
	}
	rec.BackupRef = backupDir

	if err := e.swapFromBackup(ctx, active, backupDir); err != nil {
		return e.fail(rec, journal.OutcomeFailed, fmt.Errorf("%v: %w", err, ErrSwapFailed))
	}

	rec.Outcome = journal.OutcomeSuccess
	e.record(rec)
	e.info("restored from backup", map[string]any{"target": active.Key(), "backup": backupDir})
	return rec, nil
}

// fail finalizes a record for a failed attempt, journals it, and returns
// both. The journal gets every attempt, not just successes.
func (e *Engine) fail(rec *journal.Record, outcome journal.Outcome, err error) (*journal.Record, error) {
	rec.Outcome = outcome
	rec.Reason = err.Error()
	e.record(rec)
	return rec, err
}

// record appends to the journal. A journal failure never alters the outcome
// of the apply; it is surfaced as a warning only.
func (e *Engine) record(rec *journal.Record) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(rec); err != nil {
		e.warn("journal append failed", map[string]any{"error": err.Error()})
	}
}

func (e *Engine) targetLock(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[key] = lock
	}
	return lock
}

// mapContextErr converts a deadline expiry into the engine's timeout kind,
// passing other errors (including nil) through.
func mapContextErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	}
	return err
}

func (e *Engine) info(msg string, fields map[string]any) {
	e.sink.Log(logging.Entry{Level: logging.LevelInfo, Message: msg, Fields: fields})
}

func (e *Engine) warn(msg string, fields map[string]any) {
	e.sink.Log(logging.Entry{Level: logging.LevelWarn, Message: msg, Fields: fields})
}
