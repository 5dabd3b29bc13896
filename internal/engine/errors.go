package engine

import (
	"errors"

	"github.com/blackwell-systems/skyswap/internal/cache"
	"github.com/blackwell-systems/skyswap/internal/launcher"
	"github.com/blackwell-systems/skyswap/internal/source"
	"github.com/blackwell-systems/skyswap/internal/verify"
)

// The engine's error taxonomy. Collaborator packages own the kinds they
// raise; the engine re-exports them so callers match every failure mode in
// one place with errors.Is.
var (
	// ErrInstallationNotFound: no usable installation resolved for the
	// requested launcher kind.
	ErrInstallationNotFound = launcher.ErrNotFound

	// ErrSourceUnavailable: the asset source could not list or deliver.
	ErrSourceUnavailable = source.ErrUnavailable

	// ErrAssetInvalid: the asset failed structural verification.
	ErrAssetInvalid = verify.ErrInvalid

	// ErrAssetInUse: eviction refused while the asset is active somewhere.
	ErrAssetInUse = cache.ErrAssetInUse

	// ErrTargetChanged: the active installation no longer matches the
	// caller's target; nothing was modified.
	ErrTargetChanged = errors.New("target installation changed")

	// ErrBackupFailed: the pre-swap backup could not be completed; the
	// installation was not touched.
	ErrBackupFailed = errors.New("backup failed")

	// ErrSwapFailed: the texture swap failed and the installation was
	// rolled back to its pre-apply state.
	ErrSwapFailed = errors.New("swap failed")

	// ErrUnrecoverable: the swap failed and rollback also failed. The
	// error message names the retained backup directory; recovering from
	// it is a manual step.
	ErrUnrecoverable = errors.New("unrecoverable failure, manual intervention required")

	// ErrTimeout: the caller's deadline expired.
	ErrTimeout = errors.New("operation timed out")

	// ErrNoBackup: restore was requested for a target that has no
	// retained backup.
	ErrNoBackup = errors.New("no backup available")
)
