package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/models"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local reconciliation state",
	Long: `Print the number of tracked issues per lifecycle status and the
number of open copilot payment rows, straight from the local database.

This reads the same data the /api/status endpoint serves.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

type statusResult struct {
	Issues       map[string]int `json:"issues"`
	OpenPayments int            `json:"open_payments"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := databasePath()
	if !db.Exists(path) {
		return fmt.Errorf("database not found (run 'xbridge init')")
	}

	database, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	ctx := context.Background()
	counts, err := db.NewIssueRepo(database.DB).CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to count issues: %w", err)
	}
	openPayments, err := db.NewPaymentRepo(database.DB).CountOpen(ctx)
	if err != nil {
		return fmt.Errorf("failed to count payments: %w", err)
	}

	result := statusResult{
		Issues:       make(map[string]int, len(counts)),
		OpenPayments: openPayments,
	}
	for _, st := range models.AllIssueStatuses() {
		result.Issues[string(st)] = counts[st]
	}

	if jsonOut {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Println("Issues:")
	for _, st := range models.AllIssueStatuses() {
		fmt.Printf("  %-34s %d\n", st, counts[st])
	}
	fmt.Printf("Open copilot payments: %d\n", openPayments)
	return nil
}
