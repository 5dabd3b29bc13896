package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/skyswap/internal/output"
)

var (
	listRemote bool

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List cached skybox assets",
		Long: `List the skybox assets held in the local cache.

With --remote, the asset source's manifest is fetched instead and each
advertised asset is marked if it is already cached.`,
		Example: `  # List cached assets
  skyswap list

  # List what the source offers
  skyswap list --remote`,
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().BoolVar(&listRemote, "remote", false, "list assets advertised by the source")
}

func runList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	c, err := newCache(j)
	if err != nil {
		return err
	}

	if listRemote {
		src := newSource()
		defer src.Close()

		infos, err := src.ListAvailable(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list assets from source: %w", err)
		}

		cached := make(map[string]bool)
		for _, info := range infos {
			cached[info.ID] = c.Has(info.ID)
		}
		fmt.Print(output.RenderRemoteAssetTable(infos, cached))
		return nil
	}

	assets, err := c.List()
	if err != nil {
		return fmt.Errorf("failed to list cached assets: %w", err)
	}
	fmt.Print(output.RenderAssetTable(assets))
	return nil
}
