package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/skyswap/internal/launcher"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <launcher>",
	Short: "Revert a launcher to its pre-apply skybox",
	Long: `Restore the named launcher's active installation from its most recent
retained backup, undoing the last apply.

One backup per installation target is retained (the snapshot taken before
the last successful apply), so restore steps back exactly one apply.`,
	Example: `  # Undo the last apply on Roblox
  skyswap restore roblox`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	kind, err := launcher.ParseKind(args[0])
	if err != nil {
		return err
	}

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

	eng, err := newEngine(newLocator(), c, j, src)
	if err != nil {
		return err
	}

	rec, err := eng.Restore(context.Background(), kind)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Restored %s-%s from %s\n", rec.Kind, rec.VersionID, rec.BackupRef)
	return nil
}
