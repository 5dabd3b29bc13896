package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	dataDir   string
	sourceURL string
	verbose   bool

	// RootCmd is the root command for skyswap
	RootCmd = &cobra.Command{
		Use:   "skyswap",
		Short: "Safe skybox swapping for Roblox-family clients",
		Long: `skyswap downloads skybox texture packs, verifies them, and swaps them
into Roblox, Bloxstrap, or Fishstrap installations with an automatic
pre-swap backup and atomic commit.

Every apply is journaled; a failed swap rolls the installation back to
its previous state, and 'skyswap restore' reverts the last apply at any
time. Run 'skyswap watch --daemon' to re-apply your skybox automatically
after client self-updates.

Quick Start:
  1. skyswap scan
  2. skyswap list --remote
  3. skyswap apply roblox <asset>
  4. skyswap watch --daemon  # survive client updates

Examples:
  # Discover installations
  skyswap scan

  # Apply a skybox to the active Roblox installation
  skyswap apply roblox Aurora

  # Revert the last apply
  skyswap restore roblox

  # Review what happened
  skyswap history`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("skyswap: safe skybox swapping for Roblox-family clients")
			fmt.Println()
			fmt.Println("Run 'skyswap scan' to discover installations.")
			fmt.Println("Run 'skyswap --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: ~/.skyswap)")
	RootCmd.PersistentFlags().StringVar(&sourceURL, "source-url", "https://skies.blackwell.systems", "asset source base URL")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(fetchCmd)
	RootCmd.AddCommand(applyCmd)
	RootCmd.AddCommand(restoreCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(evictCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(watchCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
