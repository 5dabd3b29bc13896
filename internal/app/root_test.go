package app

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	// Test that root command is properly configured
	if RootCmd.Use != "skyswap" {
		t.Errorf("expected Use to be 'skyswap', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	// Test that subcommands are registered
	commands := RootCmd.Commands()

	expectedCommands := []string{"scan", "list", "apply", "restore", "history", "evict", "status", "watch"}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		foundCommands[strings.Fields(cmd.Use)[0]] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"data-dir", "source-url"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestGetDataDirUsesFlag(t *testing.T) {
	orig := dataDir
	defer func() { dataDir = orig }()

	dataDir = filepath.Join(t.TempDir(), "skyswap-data")
	dir, err := getDataDir()
	if err != nil {
		t.Fatalf("getDataDir failed: %v", err)
	}
	if dir != dataDir {
		t.Errorf("expected %s, got %s", dataDir, dir)
	}

	// The directory is created on resolution.
	paths := []func() (string, error){getJournalPath, getCacheDir, getBackupRoot, getDefaultPIDFile, getDefaultLogFile}
	for _, fn := range paths {
		p, err := fn()
		if err != nil {
			t.Fatalf("path helper failed: %v", err)
		}
		if !strings.HasPrefix(p, dir) {
			t.Errorf("expected %s under %s", p, dir)
		}
	}
}
