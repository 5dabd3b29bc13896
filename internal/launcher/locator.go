// Package launcher discovers installed game clients across launcher flavors
// and resolves which installation is currently active. Every lookup re-scans
// the disk: clients self-update behind our back, so cached results would go
// stale between operations.
package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Locator scans launcher roots for client installations.
type Locator struct {
	roots   map[Kind]string
	flavors map[Kind]flavor
}

// NewLocator creates a Locator with the default per-launcher roots under the
// local application data directory.
func NewLocator() *Locator {
	base := localAppData()
	return NewLocatorWithRoots(map[Kind]string{
		KindRoblox:    filepath.Join(base, "Roblox"),
		KindBloxstrap: filepath.Join(base, "Bloxstrap"),
		KindFishstrap: filepath.Join(base, "Fishstrap"),
	})
}

// NewLocatorWithRoots creates a Locator scanning the given roots. Kinds
// without a registered flavor are ignored.
func NewLocatorWithRoots(roots map[Kind]string) *Locator {
	flavors := map[Kind]flavor{
		KindRoblox:    robloxFlavor{},
		KindBloxstrap: overlayFlavor{name: KindBloxstrap, executable: "Bloxstrap.exe"},
		KindFishstrap: overlayFlavor{name: KindFishstrap, executable: "Fishstrap.exe"},
	}
	return &Locator{roots: roots, flavors: flavors}
}

// Kinds returns the launcher kinds this locator scans, sorted for stable
// output.
func (l *Locator) Kinds() []Kind {
	kinds := make([]Kind, 0, len(l.roots))
	for kind := range l.roots {
		if _, ok := l.flavors[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Discover enumerates every installation across all configured launcher
// roots. The scan is fresh on each call.
func (l *Locator) Discover() ([]Installation, error) {
	var installs []Installation
	for _, kind := range l.Kinds() {
		found, err := l.flavors[kind].scan(l.roots[kind])
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		installs = append(installs, found...)
	}
	return installs, nil
}

// ResolveActive resolves the currently-active installation for a launcher
// kind using that launcher's own pointer. It never guesses: absent roots,
// absent pointers, and ambiguous version sets all resolve ErrNotFound.
func (l *Locator) ResolveActive(kind Kind) (Installation, error) {
	f, ok := l.flavors[kind]
	if !ok {
		return Installation{}, fmt.Errorf("unknown launcher kind %q: %w", kind, ErrNotFound)
	}
	root, ok := l.roots[kind]
	if !ok {
		return Installation{}, fmt.Errorf("no root configured for %s: %w", kind, ErrNotFound)
	}
	return f.active(root)
}

// Root returns the configured root directory for a launcher kind.
func (l *Locator) Root(kind Kind) (string, bool) {
	root, ok := l.roots[kind]
	return root, ok
}

// localAppData returns the platform's local application data directory,
// falling back to ~/.local/share when LOCALAPPDATA is unset.
func localAppData() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}
