package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <asset>...",
	Short: "Download skybox assets into the cache",
	Long: `Download one or more skybox assets from the source into the local cache
without applying them.

Assets already cached under the same content hash are skipped without a
network call, so fetch is safe to re-run. Each payload is verified before it
is admitted to the cache.`,
	Example: `  # Pre-warm the cache
  skyswap fetch Aurora Cloudy`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	for _, assetID := range args {
		asset, err := c.FetchOrGet(context.Background(), assetID, src)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", assetID, err)
		}
		fmt.Printf("✓ %s cached (%s)\n", asset.ID, asset.ContentHash[:12])
	}
	return nil
}
