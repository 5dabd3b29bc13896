// Package output provides terminal output utilities for skyswap.
//
// Table rendering uses ASCII characters and ANSI color codes; color is
// suppressed when stdout is not a TTY or NO_COLOR is set.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/skyswap/internal/cache"
	"github.com/blackwell-systems/skyswap/internal/journal"
	"github.com/blackwell-systems/skyswap/internal/launcher"
	"github.com/blackwell-systems/skyswap/internal/source"
)

// ANSI color codes for outcome display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderInstallationTable renders discovered installations with the active
// skybox asset per target. active maps Installation.Key() to an asset ID.
func RenderInstallationTable(installs []launcher.Installation, active map[string]string) string {
	if len(installs) == 0 {
		return "No installations found.\n"
	}

	sorted := make([]launcher.Installation, len(installs))
	copy(sorted, installs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind < sorted[j].Kind
		}
		return sorted[i].VersionID < sorted[j].VersionID
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-11s %-22s %-16s %s\n",
		"Launcher", "Version", "Active Skybox", "Textures Path"))
	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")

	for _, inst := range sorted {
		asset := active[inst.Key()]
		if asset == "" {
			asset = "—"
		}
		sb.WriteString(fmt.Sprintf("%-11s %-22s %-16s %s\n",
			inst.Kind,
			truncate(inst.VersionID, 22),
			truncate(asset, 16),
			inst.TexturesPath()))
	}

	return sb.String()
}

// RenderAssetTable renders cached assets, newest first.
func RenderAssetTable(assets []cache.Asset) string {
	if len(assets) == 0 {
		return "No cached assets.\n"
	}

	sorted := make([]cache.Asset, len(assets))
	copy(sorted, assets)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DownloadedAt.After(sorted[j].DownloadedAt)
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %-14s %-10s %s\n",
		"Asset", "Content Hash", "Size", "Downloaded"))
	sb.WriteString(strings.Repeat("─", 70))
	sb.WriteString("\n")

	for _, asset := range sorted {
		sb.WriteString(fmt.Sprintf("%-20s %-14s %-10s %s\n",
			truncate(asset.ID, 20),
			shortHash(asset.ContentHash),
			humanize.IBytes(uint64(asset.SizeBytes)),
			humanize.Time(asset.DownloadedAt)))
	}

	return sb.String()
}

// RenderRemoteAssetTable renders assets advertised by the source, marking the
// ones already cached.
func RenderRemoteAssetTable(infos []source.AssetInfo, cached map[string]bool) string {
	if len(infos) == 0 {
		return "No assets available.\n"
	}

	sorted := make([]source.AssetInfo, len(infos))
	copy(sorted, infos)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %-10s %s\n", "Asset", "Size", "Cached"))
	sb.WriteString(strings.Repeat("─", 44))
	sb.WriteString("\n")

	for _, info := range sorted {
		size := "?"
		if info.SizeBytes > 0 {
			size = humanize.IBytes(uint64(info.SizeBytes))
		}
		mark := "—"
		if cached[info.ID] {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("%-20s %-10s %s\n",
			truncate(info.ID, 20), size, mark))
	}

	return sb.String()
}

// RenderHistoryTable renders apply records, newest first, with colored
// outcomes.
func RenderHistoryTable(records []journal.Record) string {
	if len(records) == 0 {
		return "No apply history.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-14s %-11s %-18s %-16s %-14s %s\n",
		"When", "Launcher", "Version", "Asset", "Outcome", "Reason"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, rec := range records {
		asset := rec.AssetID
		if asset == "" {
			asset = "—"
		}
		outcome := colorize(outcomeColor(rec.Outcome), string(rec.Outcome))
		if IsColorEnabled() {
			// The color escape codes throw off %-14s padding; pad the
			// visible text by hand.
			outcome += strings.Repeat(" ", max(0, 14-len(rec.Outcome)))
		} else {
			outcome = fmt.Sprintf("%-14s", rec.Outcome)
		}

		sb.WriteString(fmt.Sprintf("%-14s %-11s %-18s %-16s %s %s\n",
			humanize.Time(rec.Timestamp),
			rec.Kind,
			truncate(rec.VersionID, 18),
			truncate(asset, 16),
			outcome,
			truncate(rec.Reason, 48)))
	}

	return sb.String()
}

// RenderCacheStats renders a one-line cache summary.
// Format: "12 assets · 48 MiB · /home/user/.skyswap/cache"
func RenderCacheStats(count int, sizeBytes int64, root string) string {
	return fmt.Sprintf("%d assets · %s · %s",
		count, humanize.IBytes(uint64(sizeBytes)), root)
}

// outcomeColor returns the ANSI color code for an apply outcome.
func outcomeColor(outcome journal.Outcome) string {
	switch outcome {
	case journal.OutcomeSuccess:
		return colorGreen
	case journal.OutcomeRolledBack:
		return colorYellow
	case journal.OutcomeFailed:
		return colorRed
	case journal.OutcomeUnrecoverable:
		return colorRed
	default:
		return colorGray
	}
}

// shortHash abbreviates a content hash for table display.
func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
