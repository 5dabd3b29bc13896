package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// flavor knows how one launcher kind lays out its installations and how that
// launcher records which version is currently active. New launchers are added
// by registering another flavor; the apply engine never changes.
type flavor interface {
	kind() Kind
	// scan enumerates every installation under root. A missing root is not
	// an error; it yields an empty result.
	scan(root string) ([]Installation, error)
	// active resolves the currently-active installation under root, or
	// ErrNotFound when the launcher's own pointer does not name one.
	active(root string) (Installation, error)
}

const (
	// robloxTexturesSubpath is where each versioned Roblox build keeps its
	// texture tree.
	robloxTexturesSubpath = "PlatformContent/pc/textures"

	// overlayVersionID is the stable version identity for launchers that
	// apply texture modifications through a version-independent overlay
	// directory, which survives client self-updates.
	overlayVersionID = "modifications"
)

// robloxFlavor handles the stock Roblox installation: one directory per
// deployed build under Versions/, each containing RobloxPlayerBeta.exe and
// its own texture tree.
type robloxFlavor struct{}

func (robloxFlavor) kind() Kind { return KindRoblox }

func (robloxFlavor) scan(root string) ([]Installation, error) {
	versionsDir := filepath.Join(root, "Versions")
	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read versions directory: %w", err)
	}

	var installs []Installation
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		versionDir := filepath.Join(versionsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(versionDir, "RobloxPlayerBeta.exe")); err != nil {
			continue
		}
		installs = append(installs, Installation{
			Kind:            KindRoblox,
			Root:            versionDir,
			VersionID:       entry.Name(),
			TexturesSubpath: robloxTexturesSubpath,
		})
	}
	return installs, nil
}

// active resolves the live Roblox build. The bootstrapper's pointer file
// Versions/version.txt names the active version directory; without a pointer,
// a single playable version is unambiguous and accepted. Zero candidates, or
// several with no pointer, resolve NotFound rather than guessing newest.
func (f robloxFlavor) active(root string) (Installation, error) {
	installs, err := f.scan(root)
	if err != nil {
		return Installation{}, err
	}
	if len(installs) == 0 {
		return Installation{}, fmt.Errorf("no playable versions under %s: %w", root, ErrNotFound)
	}

	pointer := filepath.Join(root, "Versions", "version.txt")
	data, err := os.ReadFile(pointer)
	if err == nil {
		want := strings.TrimSpace(string(data))
		for _, inst := range installs {
			if inst.VersionID == want {
				return inst, nil
			}
		}
		return Installation{}, fmt.Errorf("version pointer names missing build %q: %w", want, ErrNotFound)
	}
	if !os.IsNotExist(err) {
		return Installation{}, fmt.Errorf("failed to read version pointer: %w", err)
	}

	if len(installs) == 1 {
		return installs[0], nil
	}
	return Installation{}, fmt.Errorf("%d playable versions and no version pointer: %w", len(installs), ErrNotFound)
}

// overlayFlavor handles Bloxstrap-style launchers, which route texture
// modifications through a Modifications overlay instead of the live build
// directory. The overlay is version-independent, so its identity is stable
// across client self-updates.
type overlayFlavor struct {
	name       Kind
	executable string
}

func (f overlayFlavor) kind() Kind { return f.name }

func (f overlayFlavor) scan(root string) ([]Installation, error) {
	if !f.installed(root) {
		return nil, nil
	}
	return []Installation{{
		Kind:            f.name,
		Root:            root,
		VersionID:       overlayVersionID,
		TexturesSubpath: "Modifications/" + robloxTexturesSubpath,
	}}, nil
}

func (f overlayFlavor) active(root string) (Installation, error) {
	installs, err := f.scan(root)
	if err != nil {
		return Installation{}, err
	}
	if len(installs) == 0 {
		return Installation{}, fmt.Errorf("%s not installed under %s: %w", f.name, root, ErrNotFound)
	}
	return installs[0], nil
}

// installed reports whether the launcher is present: either its executable
// or its settings file marks the root.
func (f overlayFlavor) installed(root string) bool {
	if _, err := os.Stat(filepath.Join(root, f.executable)); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(root, "Settings.json")); err == nil {
		return true
	}
	return false
}
