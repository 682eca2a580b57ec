package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"ocrscan/internal/ocr"
)

// Example demonstrates recognizing a scanned card with the default engine.
func Example() {
	// Create context with timeout for OCR processing
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recognizer, err := ocr.New(ctx, ocr.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to create recognizer: %v", err)
	}
	defer recognizer.Close()

	image, err := os.ReadFile("id_card.png")
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}

	segments, err := recognizer.Recognize(ctx, image)
	if err != nil {
		log.Fatalf("Failed to recognize image: %v", err)
	}

	fmt.Printf("Recognized %d segments:\n%s", len(segments), ocr.Text(segments))
}

// ExampleNew demonstrates selecting a cloud engine with explicit credentials.
func ExampleNew() {
	ctx := context.Background()

	cfg := ocr.DefaultConfig()
	cfg.Engine = ocr.EngineDocumentAI
	cfg.Google = ocr.GoogleConfig{CredentialsFile: "service-account.json"}
	cfg.DocumentAI = ocr.DocumentAIConfig{
		ProjectID:   "my-project",
		Location:    "eu",
		ProcessorID: "abc123",
	}

	recognizer, err := ocr.New(ctx, cfg)
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrMissingCredentials):
			log.Fatalf("Please provide Google Cloud credentials")
		case errors.Is(err, ocr.ErrInvalidConfiguration):
			log.Fatalf("Document AI processor is not configured: %v", err)
		default:
			log.Fatalf("Failed to create recognizer: %v", err)
		}
	}
	defer recognizer.Close()

	fmt.Println("Using engine:", recognizer.Name())
}

// ExampleText shows how segments are joined into document text.
func ExampleText() {
	segments := []ocr.Segment{
		{Text: "เลขประจำตัวประชาชน 1 2345 67890 12 1"},
		{Text: "  "},
		{Text: "Date 15-01-2565"},
	}
	fmt.Print(ocr.Text(segments))
	// Output:
	// เลขประจำตัวประชาชน 1 2345 67890 12 1
	// Date 15-01-2565
}
