package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/skyswap/internal/journal"
	"github.com/blackwell-systems/skyswap/internal/launcher"
)

var (
	applyTimeout time.Duration

	applyCmd = &cobra.Command{
		Use:   "apply <launcher> <asset>",
		Short: "Apply a skybox to a launcher's active installation",
		Long: `Apply a skybox asset to the named launcher's active installation.

The asset is fetched if not cached, verified, and swapped in atomically.
The current texture set is backed up first; if the swap fails, the
installation is rolled back to that backup. Every attempt lands in the
activity journal ('skyswap history').`,
		Example: `  # Apply to the active Roblox installation
  skyswap apply roblox Aurora

  # Apply to a Bloxstrap overlay with a shorter timeout
  skyswap apply bloxstrap Aurora --timeout 1m`,
		Args: cobra.ExactArgs(2),
		RunE: runApply,
	}
)

func init() {
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", 5*time.Minute, "overall apply deadline")
}

func runApply(cmd *cobra.Command, args []string) error {
	kind, err := launcher.ParseKind(args[0])
	if err != nil {
		return err
	}
	assetID := args[1]

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	c, err := newCache(j)
	if err != nil {
		return err
	}

	src := newSource()
	defer src.Close()

	loc := newLocator()
	eng, err := newEngine(loc, c, j, src)
	if err != nil {
		return err
	}

	target, err := loc.ResolveActive(kind)
	if err != nil {
		return fmt.Errorf("failed to resolve active %s installation: %w", kind, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	rec, err := eng.Apply(ctx, target, assetID)
	if err != nil {
		if rec != nil && rec.Outcome == journal.OutcomeRolledBack {
			fmt.Printf("✗ Apply failed; %s was rolled back to its previous skybox\n", target.Key())
		}
		return err
	}

	fmt.Printf("✓ Applied %s to %s (%s)\n", assetID, target.Key(), target.TexturesPath())
	fmt.Printf("  Backup: %s\n", rec.BackupRef)
	return nil
}
