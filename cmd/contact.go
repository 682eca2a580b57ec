package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ocrscan/internal/contact"
	"ocrscan/internal/history"
	"ocrscan/internal/logger"
	"ocrscan/internal/scan"
)

var contactCmd = &cobra.Command{
	Use:   "contact <record-id>",
	Short: "Create or update a contact from a scanned identifier",
	Long: `Look up a scan in the history and create a contact whose reference is
the scanned identifier. If a contact with that reference exists it is
updated with the latest scan date instead. The scan is marked processed.`,
	Example: `  ocrscan contact 3f2a9c1e-5b7d-4e8f-a6c2-1d9e0b4f7a21`,
	Args:    cobra.ExactArgs(1),
	RunE:    runContact,
}

func init() {
	rootCmd.AddCommand(contactCmd)

	contactCmd.Flags().Bool("json", false, "Output as JSON")
}

func runContact(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("contact-cmd")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	recordID := args[0]

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

	log.Info().Str("record_id", recordID).Msg("Creating contact from scan")

	svc := scan.NewService(nil, st.history, st.contacts)
	c, message, err := svc.CreateContact(ctx, recordID)
	if err != nil {
		switch {
		case errors.Is(err, history.ErrNotFound):
			return fmt.Errorf("no scan with id %s", recordID)
		case errors.Is(err, scan.ErrNoIdentifier), errors.Is(err, contact.ErrMissingReference):
			return fmt.Errorf("scan %s has no identifier to create a contact from", recordID)
		default:
			return fmt.Errorf("failed to create contact: %w", err)
		}
	}

	if jsonOutput {
		return writeJSON(map[string]any{
			"message": message,
			"contact": c,
		})
	}

	fmt.Printf("✅ %s\n", message)
	fmt.Printf("   Reference: %s\n", c.Reference)
	fmt.Printf("   Name:      %s\n", c.Name)
	fmt.Printf("   Comment:   %s\n", c.Comment)
	return nil
}
