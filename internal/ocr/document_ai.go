package ocr

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"ocrscan/internal/logger"
)

// DocumentAIConfig identifies the Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string // "us" or "eu"
	ProcessorID      string
	ProcessorVersion string
}

// processorName constructs the full processor name for the Document AI API.
func (c DocumentAIConfig) processorName() string {
	if c.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			c.ProjectID, c.Location, c.ProcessorID, c.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIRecognizer implements Recognizer using a Document AI OCR
// processor. Each detected page line becomes one segment.
type DocumentAIRecognizer struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIRecognizer creates a Document AI client for the configured
// processor location.
func NewDocumentAIRecognizer(ctx context.Context, google GoogleConfig, cfg DocumentAIConfig) (*DocumentAIRecognizer, error) {
	const op = "NewDocumentAIRecognizer"

	if cfg.ProjectID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "project ID is required")
	}
	if cfg.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "processor ID is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}

	clientOptions := google.clientOptions()
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if google.CredentialsJSON == "" && google.CredentialsFile == "" {
			return nil, WrapOCRError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return NewDocumentAIRecognizerWithClient(client, cfg), nil
}

// NewDocumentAIRecognizerWithClient wraps an existing client (for testing).
func NewDocumentAIRecognizerWithClient(client *documentai.DocumentProcessorClient, cfg DocumentAIConfig) *DocumentAIRecognizer {
	return &DocumentAIRecognizer{
		client: client,
		config: cfg,
		log:    logger.WithComponent("ocr-document-ai"),
	}
}

// Name implements Recognizer.
func (d *DocumentAIRecognizer) Name() string { return EngineDocumentAI }

// Recognize implements Recognizer.
func (d *DocumentAIRecognizer) Recognize(ctx context.Context, image []byte) ([]Segment, error) {
	const op = "DocumentAIRecognize"

	format, err := checkInput(op, image, true)
	if err != nil {
		return nil, err
	}

	req := &documentaipb.ProcessRequest{
		Name: d.config.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: string(format),
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, wrapGoogleError(op, err)
	}
	if resp.GetDocument() == nil {
		return nil, WrapOCRError(op, ErrOCRFailed, "no document in response")
	}

	segments := documentSegments(resp.GetDocument())
	d.log.Debug().
		Int("pages", len(resp.GetDocument().GetPages())).
		Int("segments", len(segments)).
		Msg("Document AI processing completed")

	return segments, nil
}

// documentSegments returns one segment per detected line. Documents without
// layout information fall back to the lines of the full text.
func documentSegments(doc *documentaipb.Document) []Segment {
	text := []rune(doc.GetText())

	var segments []Segment
	for _, page := range doc.GetPages() {
		for _, line := range page.GetLines() {
			layout := line.GetLayout()
			s := strings.TrimSpace(anchorText(text, layout.GetTextAnchor()))
			if s == "" {
				continue
			}
			segments = append(segments, Segment{
				Text:       s,
				Confidence: confidence(layout.GetConfidence()),
				Bounds:     documentBounds(layout.GetBoundingPoly()),
			})
		}
	}
	if len(segments) > 0 {
		return segments
	}

	return lineSegments(string(text))
}

// anchorText resolves a text anchor against the document text. Anchor
// indices count characters, not bytes.
func anchorText(text []rune, anchor *documentaipb.Document_TextAnchor) string {
	var b strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start, end := seg.GetStartIndex(), seg.GetEndIndex()
		if start < 0 || end > int64(len(text)) || start >= end {
			continue
		}
		b.WriteString(string(text[start:end]))
	}
	return b.String()
}

func documentBounds(poly *documentaipb.BoundingPoly) *Box {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return nil
	}
	minX, minY := vertices[0].GetX(), vertices[0].GetY()
	maxX, maxY := minX, minY
	for _, v := range vertices[1:] {
		minX, maxX = min(minX, v.GetX()), max(maxX, v.GetX())
		minY, maxY = min(minY, v.GetY()), max(maxY, v.GetY())
	}
	return &Box{
		X:      int(minX),
		Y:      int(minY),
		Width:  int(maxX - minX),
		Height: int(maxY - minY),
	}
}

// Close closes the underlying Document AI client.
func (d *DocumentAIRecognizer) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
