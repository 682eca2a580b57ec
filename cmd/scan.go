package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrscan/internal/extraction"
	"ocrscan/internal/logger"
	"ocrscan/internal/ocr"
	"ocrscan/internal/scan"
	"ocrscan/pkg/models"
)

var scanCmd = &cobra.Command{
	Use:   "scan [image-file]...",
	Short: "Recognize documents and extract identifier, date and amount",
	Long: `Run OCR on one or more document images, extract the Thai national ID,
date and amount from the recognized text, and store the outcome in the scan
history.

The OCR engine is chosen with OCR_ENGINE or --engine:
  tesseract  - local Tesseract (default; needs the tha and eng traineddata)
  vision     - Google Cloud Vision (GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS)
  documentai - Google Document AI (also GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID)
  openai     - OpenAI vision model (OPENAI_API_KEY)`,
	Example: `  # Scan one ID card with Tesseract
  ocrscan scan id_card.png

  # Scan a folder of receipts with Cloud Vision, four at a time
  ocrscan scan --engine vision --concurrency 4 receipts/*.jpg

  # Print results as JSON without touching the history database
  ocrscan scan --json --no-store card.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

// ScanOutput represents one file in the JSON output of the scan command
type ScanOutput struct {
	File       string            `json:"file"`
	RecordID   string            `json:"record_id,omitempty"`
	Engine     string            `json:"engine"`
	Result     extraction.Result `json:"result"`
	Confidence *float32          `json:"confidence,omitempty"`
	RawText    string            `json:"raw_text,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("engine", "", "OCR engine (tesseract, vision, documentai, openai); overrides OCR_ENGINE")
	scanCmd.Flags().String("uploader", "", "Name recorded as uploader (default: current user)")
	scanCmd.Flags().Bool("json", false, "Output as JSON")
	scanCmd.Flags().Int("concurrency", runtime.NumCPU(), "Number of files scanned in parallel")
	scanCmd.Flags().Int("timeout", 300, "Processing timeout in seconds for the whole run")
	scanCmd.Flags().Bool("no-store", false, "Do not record scans in the history database")
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("scan-cmd")

	engine, _ := cmd.Flags().GetString("engine")
	uploader, _ := cmd.Flags().GetString("uploader")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	noStore, _ := cmd.Flags().GetBool("no-store")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if engine != "" {
		cfg.OCREngine = strings.ToLower(engine)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if uploader == "" {
		uploader = currentUser()
	}

	log.Info().
		Int("files", len(args)).
		Str("engine", cfg.OCREngine).
		Int("concurrency", concurrency).
		Bool("store", !noStore).
		Msg("Starting scan")

	uploads := make([]scan.Upload, 0, len(args))
	for _, path := range args {
		image, err := readImageFile(path, log)
		if err != nil {
			return err
		}
		uploads = append(uploads, scan.Upload{
			Filename: filepath.Base(path),
			Uploader: uploader,
			Image:    image,
		})
	}

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	recognizer, err := createRecognizer(ctx, cfg.OCRConfig(), log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := recognizer.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR engine")
		}
	}()

	var svc *scan.Service
	if noStore {
		svc = scan.NewService(recognizer, nil, nil)
	} else {
		st, err := openStores(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()
		svc = scan.NewService(recognizer, st.history, st.contacts)
	}

	items, batchErr := svc.ScanBatch(ctx, uploads, concurrency)

	// Items finished before a cancellation are still reported.
	outputs, failed := collectScanOutputs(items, recognizer.Name(), log)

	if jsonOutput {
		if err := writeJSON(outputs); err != nil {
			return err
		}
	} else {
		printScanOutputs(outputs)
	}

	if batchErr != nil {
		return handleScanError(batchErr, log)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scans failed", failed, len(items))
	}
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// readImageFile checks that path is a readable regular file within the size limit
func readImageFile(path string, log zerolog.Logger) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", path).Msg("Image file not found")
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().Str("file", path).Msg("Permission denied accessing image file")
			return nil, fmt.Errorf("permission denied accessing image file: %s", path)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() > ocr.MaxImageSizeBytes {
		log.Error().
			Str("file", path).
			Int64("size", info.Size()).
			Msg("Image file exceeds maximum size limit")
		return nil, fmt.Errorf("image file too large (%d bytes). Maximum size is %d bytes (20MB)",
			info.Size(), ocr.MaxImageSizeBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// createRecognizer creates the configured OCR engine
func createRecognizer(ctx context.Context, cfg ocr.Config, log zerolog.Logger) (ocr.Recognizer, error) {
	recognizer, err := ocr.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("engine", cfg.Engine).Msg("Failed to create OCR engine")
		switch {
		case errors.Is(err, ocr.ErrMissingCredentials):
			return nil, fmt.Errorf("credentials for the %s engine are missing or invalid. Please check:\n\n"+
				"1. GOOGLE_APPLICATION_CREDENTIALS points to a readable service account JSON file, or\n"+
				"2. GOOGLE_CREDENTIALS contains the inline JSON key, or\n"+
				"3. OPENAI_API_KEY is set for the openai engine\n\n"+
				"Original error: %w", cfg.Engine, err)
		case errors.Is(err, ocr.ErrInvalidConfiguration):
			return nil, fmt.Errorf("the %s engine is not fully configured: %w", cfg.Engine, err)
		default:
			return nil, fmt.Errorf("failed to create OCR engine: %w", err)
		}
	}

	log.Debug().Str("engine", recognizer.Name()).Msg("OCR engine created successfully")
	return recognizer, nil
}

// handleScanError provides user-friendly error messages for scan failures
func handleScanError(err error, log zerolog.Logger) error {
	log.Debug().Err(err).Msg("Scan failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("scan timed out. Try increasing --timeout or scanning fewer files")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("scan was canceled")
	case errors.Is(err, scan.ErrNoImage), errors.Is(err, ocr.ErrEmptyImage):
		return fmt.Errorf("the file is empty")
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image is too large (maximum 20MB). Try compressing or resizing it")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported file format for this engine. Use PNG, JPEG, GIF, BMP, TIFF or WebP (PDF with vision or documentai)")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum 5 pages). Try splitting into smaller files")
	case errors.Is(err, scan.ErrNoText):
		return fmt.Errorf("no readable text found in the image")
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("OCR engine rejected the credentials. Check the service account permissions or API key: %w", err)
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("scan failed: %w", err)
	}
}

// collectScanOutputs converts batch items to outputs and counts the failed ones.
func collectScanOutputs(items []scan.BatchItem, engine string, log zerolog.Logger) ([]ScanOutput, int) {
	failed := 0
	outputs := make([]ScanOutput, 0, len(items))
	for _, it := range items {
		out := toScanOutput(it, engine)
		if it.Err != nil {
			failed++
			out.Error = handleScanError(it.Err, log).Error()
		}
		outputs = append(outputs, out)
	}
	return outputs, failed
}

func toScanOutput(it scan.BatchItem, engine string) ScanOutput {
	out := ScanOutput{
		File:   it.Upload.Filename,
		Engine: engine,
	}
	if it.Outcome == nil {
		return out
	}
	rec := it.Outcome.Record
	out.RecordID = rec.ID
	out.Result = it.Outcome.Result
	out.Confidence = rec.Confidence
	out.RawText = rec.RawText
	return out
}

func printScanOutputs(outputs []ScanOutput) {
	for i, out := range outputs {
		status := statusSymbol(out)
		fmt.Printf("[%d/%d] %s - %s", i+1, len(outputs), out.File, status)
		switch {
		case out.Error != "":
			fmt.Printf(" (%s)", out.Error)
		case out.Result.Succeeded:
			fmt.Printf(" %s", out.Result.IdentifiedNumber)
		default:
			fmt.Printf(" (%s)", out.Result.ErrorMessage)
		}
		fmt.Println()

		if out.Result.HasDate() {
			fmt.Printf("      date:   %s\n", out.Result.IdentifiedDate)
		}
		if out.Result.HasAmount() {
			fmt.Printf("      amount: %.2f\n", *out.Result.IdentifiedAmount)
		}
		if out.RecordID != "" {
			fmt.Printf("      record: %s\n", out.RecordID)
		}
	}
}

func statusSymbol(out ScanOutput) string {
	switch {
	case out.Error != "":
		return "❌"
	case out.Result.State == extraction.StateProcessed:
		return "✅"
	default:
		return "⚠️"
	}
}

// stateLabel renders a record state for terminal output.
func stateLabel(state models.ScanState) string {
	switch state {
	case models.ScanStateProcessed:
		return "✅ processed"
	case models.ScanStateError:
		return "❌ error"
	default:
		return "… draft"
	}
}
