package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/skyswap/internal/cache"
)

var evictCmd = &cobra.Command{
	Use:   "evict <asset>...",
	Short: "Remove skybox assets from the cache",
	Long: `Remove one or more assets from the local cache.

An asset that is the active skybox of any installation is refused; apply a
different skybox or restore the installation first. Eviction only ever
happens explicitly — the cache has no automatic expiry.`,
	Example: `  # Evict a cached asset
  skyswap evict Aurora`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvict,
}

func runEvict(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	c, err := newCache(j)
	if err != nil {
		return err
	}

	for _, assetID := range args {
		if err := c.Evict(assetID); err != nil {
			if errors.Is(err, cache.ErrAssetInUse) {
				return fmt.Errorf("%s is the active skybox of an installation; apply another or restore first: %w", assetID, err)
			}
			return fmt.Errorf("failed to evict %s: %w", assetID, err)
		}
		fmt.Printf("✓ Evicted %s\n", assetID)
	}
	return nil
}
