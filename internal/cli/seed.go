package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo accounts and messages into an empty store",
	Long: `Seed the database with demo accounts and messages.

Seeding is idempotent: a store that already contains accounts is left
untouched.

Example:
  kleinvault seed --db ./data/accounts.db`,
	RunE: runSeed,
}

func init() {
	RootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SeedDemoData(); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	stats := s.Stats()
	fmt.Printf("Store ready: %d accounts, %d messages, %d jobs\n",
		stats.AccountCount, stats.MessageCount, stats.JobCount)
	return nil
}
