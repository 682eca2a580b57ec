package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ocrscan/internal/extraction"
	"ocrscan/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [text-file|-]",
	Short: "Extract identifier, date and amount from already recognized text",
	Long: `Run the extraction rules on plain text without OCR. The text is read
from the given file, or from standard input when the argument is "-" or
missing. Nothing is stored.`,
	Example: `  ocrscan extract ocr_output.txt
  echo "ID 1234567890121 date 15/03/2024 total 1,234.50" | ocrscan extract --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Bool("json", false, "Output as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract-cmd")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	source := "-"
	if len(args) == 1 {
		source = args[0]
	}

	var (
		text []byte
		err  error
	)
	if source == "-" {
		text, err = io.ReadAll(cmd.InOrStdin())
	} else {
		text, err = os.ReadFile(source)
	}
	if err != nil {
		log.Error().Err(err).Str("source", source).Msg("Failed to read text")
		return fmt.Errorf("failed to read text: %w", err)
	}

	log.Info().
		Str("source", source).
		Int("text_length", len(text)).
		Msg("Extracting fields")

	result := extraction.NewProcessor().Process(string(text))

	if jsonOutput {
		return writeJSON(result)
	}

	if result.Succeeded {
		fmt.Printf("✅ Identifier: %s\n", result.IdentifiedNumber)
	} else {
		fmt.Printf("❌ %s\n", result.ErrorMessage)
	}
	if result.HasDate() {
		fmt.Printf("   Date:       %s\n", result.IdentifiedDate)
	}
	if result.HasAmount() {
		fmt.Printf("   Amount:     %.2f\n", *result.IdentifiedAmount)
	}
	return nil
}
