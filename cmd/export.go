package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ocrscan/internal/export"
	"ocrscan/internal/history"
	"ocrscan/internal/logger"
	"ocrscan/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the scan history to Excel or Google Sheets",
	Long: `Write recorded scans to an XLSX file with --output, append them to a
Google Sheet with --sheet-url (or GOOGLE_SHEET_URL), or both.

The Google Sheet must be shared with the service account from
GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Example: `  ocrscan export --output scans.xlsx
  ocrscan export --state processed --sheet-url "https://docs.google.com/spreadsheets/d/..."`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "XLSX file to write")
	exportCmd.Flags().String("sheet-url", "", "Google Sheet URL to append to (overrides GOOGLE_SHEET_URL)")
	exportCmd.Flags().String("sheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET or Scans)")
	exportCmd.Flags().String("state", "", "Only export scans in this state (draft, processed, error)")
	exportCmd.Flags().Int("limit", 0, "Maximum number of scans to export (0 for all)")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export-cmd")

	output, _ := cmd.Flags().GetString("output")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	sheetName, _ := cmd.Flags().GetString("sheet")
	state, _ := cmd.Flags().GetString("state")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if sheetURL == "" {
		sheetURL = cfg.GoogleSheetURL
	}
	if sheetName == "" {
		sheetName = cfg.GoogleSheetWorksheet
	}
	if output == "" && sheetURL == "" {
		return fmt.Errorf("nothing to export to: set --output or --sheet-url")
	}

	opts, err := listOptions(state, limit)
	if err != nil {
		return err
	}
	if limit == 0 {
		opts.Limit = history.NoLimit
	}

	ctx, cancel := createContextWithTimeout(2*time.Minute, log)
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.history.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}

	log.Info().
		Int("records", len(records)).
		Str("output", output).
		Bool("sheets", sheetURL != "").
		Msg("Exporting scans")

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		if err := export.WriteXLSX(f, records, sheetName); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		fmt.Printf("✅ Wrote %d scans to %s\n", len(records), output)
	}

	if sheetURL != "" {
		svc, err := sheets.NewSheetsService(ctx, sheetURL, cfg.SheetsConfig())
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Sheets service")
			return fmt.Errorf("failed to connect to Google Sheets: %w", err)
		}
		if err := svc.AppendRecords(ctx, records, sheetName); err != nil {
			log.Error().Err(err).Msg("Failed to append to Google Sheets")
			return fmt.Errorf("failed to append to Google Sheets: %w", err)
		}
		fmt.Printf("✅ Appended %d scans to sheet %q\n", len(records), sheetName)
	}
	return nil
}
