// Package ocr turns document images into recognized text.
//
// Every OCR backend is wrapped in a Recognizer that yields a sequence of text
// segments with optional confidence and position. Engines group text
// differently (Tesseract and Document AI report lines, Cloud Vision reports
// detected blocks); callers only see segments and join them with Text.
//
// Supported engines:
//   - tesseract: local Tesseract through gosseract (default)
//   - vision: Google Cloud Vision document text detection
//   - documentai: Google Document AI OCR processor
//   - openai: OpenAI vision model transcription
//
// Engines are configured explicitly through Config at construction. No
// adapter reads or modifies process environment variables.
//
// Input limits shared by all engines:
//   - Maximum image size: 20MB
//   - Formats: PNG, JPEG, GIF, BMP, TIFF, WebP; PDF for vision and documentai
package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Engine names accepted by New.
const (
	EngineTesseract  = "tesseract"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
	EngineOpenAI     = "openai"
)

// Recognizer is the capability every OCR backend provides.
type Recognizer interface {
	// Name returns the engine name.
	Name() string

	// Recognize extracts text segments from an encoded image.
	// An image without text yields an empty slice and no error.
	Recognize(ctx context.Context, image []byte) ([]Segment, error)

	// Close releases engine resources such as API clients.
	Close() error
}

// Segment is one unit of recognized text as grouped by the engine.
type Segment struct {
	// Text is the recognized text of the segment.
	Text string `json:"text"`

	// Confidence is the engine's confidence (0.0 to 1.0), nil when the engine
	// does not report one.
	Confidence *float32 `json:"confidence,omitempty"`

	// Bounds is the segment's position in pixels, nil when unknown.
	Bounds *Box `json:"bounds,omitempty"`
}

// Box is an axis-aligned rectangle in image pixels.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Config selects and configures an OCR engine.
type Config struct {
	// Engine is one of the Engine* constants. Empty means tesseract.
	Engine string

	// Languages are BCP-47 language hints such as "th" and "en".
	Languages []string

	// Timeout bounds a single Recognize call. Zero means no extra limit.
	Timeout time.Duration

	Tesseract  TesseractConfig
	Google     GoogleConfig
	DocumentAI DocumentAIConfig
	OpenAI     OpenAIConfig
}

// DefaultConfig returns a Tesseract configuration for Thai and English text.
func DefaultConfig() Config {
	return Config{
		Engine:    EngineTesseract,
		Languages: []string{"th", "en"},
		Timeout:   60 * time.Second,
	}
}

// New builds the Recognizer selected by cfg.Engine.
func New(ctx context.Context, cfg Config) (Recognizer, error) {
	const op = "New"

	var (
		r   Recognizer
		err error
	)
	switch strings.ToLower(cfg.Engine) {
	case "", EngineTesseract:
		r = NewTesseractRecognizer(cfg.Tesseract, cfg.Languages)
	case EngineVision:
		r, err = NewVisionRecognizer(ctx, cfg.Google, cfg.Languages)
	case EngineDocumentAI:
		r, err = NewDocumentAIRecognizer(ctx, cfg.Google, cfg.DocumentAI)
	case EngineOpenAI:
		r, err = NewOpenAIRecognizer(cfg.OpenAI)
	default:
		return nil, WrapOCRError(op, ErrUnknownEngine, fmt.Sprintf("engine %q", cfg.Engine))
	}
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		r = &timeoutRecognizer{Recognizer: r, timeout: cfg.Timeout}
	}
	return r, nil
}

// timeoutRecognizer bounds every Recognize call of the wrapped engine.
type timeoutRecognizer struct {
	Recognizer
	timeout time.Duration
}

func (t *timeoutRecognizer) Recognize(ctx context.Context, image []byte) ([]Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Recognizer.Recognize(ctx, image)
}

// Text joins segment texts in order, one segment per line. Empty segments
// are skipped.
func Text(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		b.WriteString(s.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// MeanConfidence averages the confidences reported by the engine.
// It returns false when no segment carries a confidence.
func MeanConfidence(segments []Segment) (float32, bool) {
	var sum float32
	var n int
	for _, s := range segments {
		if s.Confidence != nil {
			sum += *s.Confidence
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float32(n), true
}

func confidence(v float32) *float32 {
	return &v
}
