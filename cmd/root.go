package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrscan/internal/config"
	"ocrscan/internal/contact"
	"ocrscan/internal/database"
	"ocrscan/internal/history"
	"ocrscan/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "ocrscan",
	Short: "Scan Thai ID documents and extract identifier, date and amount",
	Long: `ocrscan reads scanned documents with an OCR engine and extracts a
13-digit Thai national identification number (validated with its checksum),
a date and a monetary amount from the recognized text.

Scans are kept in a local history database. Identifiers from successful
scans can be turned into contacts, and the history can be exported to
Excel or Google Sheets.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Debug().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment configuration for a command.
func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// stores bundles the database and the repositories built on it.
type stores struct {
	db       *sql.DB
	history  *history.Store
	contacts *contact.Repository
}

func (s *stores) Close() error {
	return s.db.Close()
}

// openStores opens and migrates the configured database.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	dbCfg := cfg.DatabaseConfig()
	db, err := database.OpenAndMigrate(ctx, dbCfg)
	if err != nil {
		log.Error().
			Err(err).
			Str("driver", dbCfg.Driver).
			Msg("Failed to open database")
		return nil, fmt.Errorf("failed to open %s database: %w", dbCfg.Driver, err)
	}
	return &stores{
		db:       db,
		history:  history.NewStore(db),
		contacts: contact.NewRepository(db),
	}, nil
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	data = append(data, '\n')
	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
