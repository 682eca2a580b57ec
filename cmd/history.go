package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ocrscan/internal/history"
	"ocrscan/internal/logger"
	"ocrscan/pkg/models"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scans, newest first",
	Example: `  ocrscan history
  ocrscan history --state error --limit 10
  ocrscan history --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("state", "", "Only show scans in this state (draft, processed, error)")
	historyCmd.Flags().Int("limit", history.DefaultListLimit, "Maximum number of scans to show")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("history-cmd")

	state, _ := cmd.Flags().GetString("state")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	opts, err := listOptions(state, limit)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(30*time.Second, log)
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.history.List(ctx, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list scans")
		return fmt.Errorf("failed to list scans: %w", err)
	}

	if jsonOutput {
		return writeJSON(records)
	}

	if len(records) == 0 {
		fmt.Println("No scans recorded")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-13s  %-13s  %s\n", "RECORD", "SCANNED", "STATE", "IDENTIFIER", "FILE")
	for _, rec := range records {
		fmt.Printf("%-36s  %-20s  %-13s  %-13s  %s\n",
			rec.ID,
			rec.ScannedAt.Local().Format("2006-01-02 15:04:05"),
			stateLabel(rec.State),
			rec.IdentifiedNumber,
			rec.Filename,
		)
	}
	return nil
}

// listOptions validates the shared history filter flags.
func listOptions(state string, limit int) (history.ListOptions, error) {
	opts := history.ListOptions{Limit: limit}
	switch s := models.ScanState(state); s {
	case "":
	case models.ScanStateDraft, models.ScanStateProcessed, models.ScanStateError:
		opts.State = s
	default:
		return opts, fmt.Errorf("unknown state %q: use draft, processed or error", state)
	}
	if limit < 0 {
		return opts, fmt.Errorf("limit must not be negative")
	}
	return opts, nil
}
