package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kleinvault/kleinvault/internal/models"
	"github.com/kleinvault/kleinvault/internal/store"
)

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"a", "acc"},
	Short:   "List promoted accounts",
	Long: `Display all accounts in the registry with their derived age.

Examples:
  # Show all accounts
  kleinvault accounts

  # Output as JSON
  kleinvault accounts --json | jq '.'`,
	RunE: runAccounts,
}

func init() {
	RootCmd.AddCommand(accountsCmd)
}

func openStore() (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(globalFlags.DBPath, store.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", globalFlags.DBPath, err)
	}
	return s, nil
}

func runAccounts(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	accounts, err := s.ListAccounts()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, acc := range accounts {
		acc.AgeDays = acc.Age(now)
	}

	if globalFlags.JSON {
		return outputJSON(accounts)
	}
	return outputAccountsTable(accounts)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputAccountsTable(accounts []*models.Account) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tAGE (DAYS)\tDEVICE\tPROXY\tNOTES")
	for _, acc := range accounts {
		proxy := acc.Proxy
		if proxy == "" {
			proxy = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			acc.ID, acc.Name, acc.Email, acc.AgeDays, acc.Device, proxy, acc.Notes)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d accounts\n", len(accounts))
	return nil
}
