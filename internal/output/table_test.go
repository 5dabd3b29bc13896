package output

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/skyswap/internal/cache"
	"github.com/blackwell-systems/skyswap/internal/journal"
	"github.com/blackwell-systems/skyswap/internal/launcher"
	"github.com/blackwell-systems/skyswap/internal/source"
)

func TestRenderInstallationTable(t *testing.T) {
	tests := []struct {
		name     string
		installs []launcher.Installation
		active   map[string]string
		contains []string
	}{
		{
			name:     "empty",
			installs: nil,
			contains: []string{"No installations found"},
		},
		{
			name: "roblox with active skybox",
			installs: []launcher.Installation{
				{
					Kind:            launcher.KindRoblox,
					Root:            "/data/Roblox",
					VersionID:       "version-abc123",
					TexturesSubpath: "PlatformContent/pc/textures",
				},
			},
			active:   map[string]string{"roblox-version-abc123": "Aurora"},
			contains: []string{"roblox", "version-abc123", "Aurora", "PlatformContent"},
		},
		{
			name: "overlay without active skybox",
			installs: []launcher.Installation{
				{
					Kind:            launcher.KindBloxstrap,
					Root:            "/data/Bloxstrap",
					VersionID:       "modifications",
					TexturesSubpath: "Modifications/PlatformContent/pc/textures",
				},
			},
			contains: []string{"bloxstrap", "modifications", "—"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderInstallationTable(tt.installs, tt.active)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderInstallationTable() missing expected string %q\nGot:\n%s", expected, result)
				}
			}
		})
	}
}

func TestRenderInstallationTableSortsByKind(t *testing.T) {
	result := RenderInstallationTable([]launcher.Installation{
		{Kind: launcher.KindRoblox, VersionID: "version-live"},
		{Kind: launcher.KindBloxstrap, VersionID: "modifications"},
	}, nil)

	if strings.Index(result, "bloxstrap") > strings.Index(result, "roblox") {
		t.Errorf("Expected bloxstrap before roblox:\n%s", result)
	}
}

func TestRenderAssetTable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		assets   []cache.Asset
		contains []string
	}{
		{
			name:     "empty",
			assets:   nil,
			contains: []string{"No cached assets"},
		},
		{
			name: "single asset",
			assets: []cache.Asset{
				{
					ID:           "Aurora",
					ContentHash:  "deadbeefcafe0123456789",
					SizeBytes:    2 * 1024 * 1024,
					DownloadedAt: now.Add(-24 * time.Hour),
				},
			},
			contains: []string{"Aurora", "deadbeefcafe", "2.0 MiB", "1 day ago"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderAssetTable(tt.assets)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderAssetTable() missing expected string %q\nGot:\n%s", expected, result)
				}
			}
		})
	}
}

func TestRenderAssetTableTruncatesHash(t *testing.T) {
	full := strings.Repeat("a", 64)
	result := RenderAssetTable([]cache.Asset{
		{ID: "Aurora", ContentHash: full, DownloadedAt: time.Now()},
	})
	if strings.Contains(result, full) {
		t.Error("Expected content hash to be abbreviated")
	}
	if !strings.Contains(result, full[:12]) {
		t.Error("Expected abbreviated hash prefix")
	}
}

func TestRenderRemoteAssetTable(t *testing.T) {
	result := RenderRemoteAssetTable([]source.AssetInfo{
		{ID: "Aurora", SizeBytes: 1024 * 1024},
		{ID: "Cloudy"},
	}, map[string]bool{"Aurora": true})

	for _, expected := range []string{"Aurora", "Cloudy", "1.0 MiB", "✓"} {
		if !strings.Contains(result, expected) {
			t.Errorf("RenderRemoteAssetTable() missing %q\nGot:\n%s", expected, result)
		}
	}
}

func TestRenderHistoryTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name     string
		records  []journal.Record
		contains []string
	}{
		{
			name:     "empty",
			records:  nil,
			contains: []string{"No apply history"},
		},
		{
			name: "success and rollback",
			records: []journal.Record{
				{
					Timestamp: time.Now().Add(-time.Hour),
					Kind:      "roblox",
					VersionID: "version-abc",
					AssetID:   "Aurora",
					Outcome:   journal.OutcomeSuccess,
				},
				{
					Timestamp: time.Now().Add(-2 * time.Hour),
					Kind:      "roblox",
					VersionID: "version-abc",
					AssetID:   "Cloudy",
					Outcome:   journal.OutcomeRolledBack,
					Reason:    "swap failed",
				},
			},
			contains: []string{"Aurora", "Cloudy", "success", "rolled_back", "swap failed", "1 hour ago"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderHistoryTable(tt.records)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderHistoryTable() missing expected string %q\nGot:\n%s", expected, result)
				}
			}
		})
	}
}

func TestRenderCacheStats(t *testing.T) {
	result := RenderCacheStats(3, 4*1024*1024, "/home/user/.skyswap/cache")
	for _, expected := range []string{"3 assets", "4.0 MiB", "/home/user/.skyswap/cache"} {
		if !strings.Contains(result, expected) {
			t.Errorf("RenderCacheStats() missing %q\nGot: %s", expected, result)
		}
	}
}

func TestIsColorEnabledRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if IsColorEnabled() {
		t.Error("Expected color disabled when NO_COLOR is set")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a-much-longer-string", 10, "a-much-..."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
