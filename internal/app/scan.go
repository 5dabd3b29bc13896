package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/skyswap/internal/output"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover client installations",
	Long: `Scan launcher roots for Roblox, Bloxstrap, and Fishstrap installations.

Each discovered installation shows its version, texture path, and the skybox
asset last applied to it (per the activity journal). Installations are
re-discovered on every invocation; nothing is cached, so the output always
reflects the filesystem as it is right now.`,
	Example: `  # Discover installations
  skyswap scan`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	installs, err := newLocator().Discover()
	if err != nil {
		return fmt.Errorf("failed to discover installations: %w", err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	active := make(map[string]string)
	for _, inst := range installs {
		asset, ok, err := j.ActiveAsset(string(inst.Kind), inst.VersionID)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		if ok {
			active[inst.Key()] = asset
		}
	}

	fmt.Print(output.RenderInstallationTable(installs, active))
	return nil
}
