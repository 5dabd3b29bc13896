package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/skyswap/internal/journal"
	"github.com/blackwell-systems/skyswap/internal/output"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show the apply journal",
		Long: `Show recorded apply attempts, most recent first.

Every apply, restore, rollback, and failure is journaled with its outcome
and reason; nothing is ever deleted from the journal.`,
		Example: `  # Last 20 records
  skyswap history

  # Everything
  skyswap history -n 0`,
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of records to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	var records []*journal.Record
	if historyLimit > 0 {
		records, err = j.Recent(historyLimit)
	} else {
		records, err = j.All()
	}
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	flat := make([]journal.Record, len(records))
	for i, rec := range records {
		flat[i] = *rec
	}
	fmt.Print(output.RenderHistoryTable(flat))
	return nil
}
