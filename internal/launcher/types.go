package launcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies a supported launcher flavor.
type Kind string

const (
	KindRoblox    Kind = "roblox"
	KindBloxstrap Kind = "bloxstrap"
	KindFishstrap Kind = "fishstrap"
)

// ParseKind converts a user-supplied launcher name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindRoblox:
		return KindRoblox, nil
	case KindBloxstrap:
		return KindBloxstrap, nil
	case KindFishstrap:
		return KindFishstrap, nil
	default:
		return "", fmt.Errorf("unknown launcher %q (expected roblox, bloxstrap, or fishstrap)", s)
	}
}

// ErrNotFound is returned when no usable installation can be resolved for a
// launcher kind: the root is missing, no playable version exists, or the
// launcher's active-version pointer is absent or ambiguous.
var ErrNotFound = errors.New("installation not found")

// Installation is one discovered client installation. Identity is
// (Kind, VersionID); Root and TexturesSubpath are where its texture set
// lives on disk. Installations are re-resolved on every scan and never
// persisted, since client self-updates can retire them at any time.
type Installation struct {
	Kind            Kind
	Root            string
	VersionID       string
	TexturesSubpath string
}

// Key returns the stable identity string for this installation, used to
// scope apply serialization and backup directories.
func (i Installation) Key() string {
	return string(i.Kind) + "-" + i.VersionID
}

// TexturesPath returns the absolute path of the installation's texture tree.
func (i Installation) TexturesPath() string {
	return filepath.Join(i.Root, filepath.FromSlash(i.TexturesSubpath))
}

// SkyPath returns the absolute path of the live skybox directory.
func (i Installation) SkyPath() string {
	return filepath.Join(i.TexturesPath(), "sky")
}

// SameTarget reports whether two installations refer to the same identity.
func (i Installation) SameTarget(other Installation) bool {
	return i.Kind == other.Kind && i.VersionID == other.VersionID
}
