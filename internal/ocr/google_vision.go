package ocr

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"ocrscan/internal/logger"
)

// MaxPagesSync is the maximum number of PDF pages for synchronous processing.
const MaxPagesSync = 5

// VisionRecognizer implements Recognizer using Google Cloud Vision document
// text detection. Each detected block becomes one segment.
type VisionRecognizer struct {
	client    *vision.ImageAnnotatorClient
	languages []string
	log       zerolog.Logger
}

// NewVisionRecognizer creates a Vision client from explicit credentials.
func NewVisionRecognizer(ctx context.Context, cfg GoogleConfig, languages []string) (*VisionRecognizer, error) {
	const op = "NewVisionRecognizer"

	opts := cfg.clientOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapOCRError(op, err, "failed to create client with "+cfg.source())
	}

	return NewVisionRecognizerWithClient(client, languages), nil
}

// NewVisionRecognizerWithClient wraps an existing client (for testing).
func NewVisionRecognizerWithClient(client *vision.ImageAnnotatorClient, languages []string) *VisionRecognizer {
	return &VisionRecognizer{
		client:    client,
		languages: languages,
		log:       logger.WithComponent("ocr-vision"),
	}
}

// Name implements Recognizer.
func (v *VisionRecognizer) Name() string { return EngineVision }

// Recognize implements Recognizer.
func (v *VisionRecognizer) Recognize(ctx context.Context, image []byte) ([]Segment, error) {
	const op = "VisionRecognize"

	format, err := checkInput(op, image, true)
	if err != nil {
		return nil, err
	}

	var pages []*visionpb.AnnotateImageResponse
	if format == FormatPDF {
		pages, err = v.annotateFile(ctx, image)
	} else {
		pages, err = v.annotateImage(ctx, image)
	}
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	var segments []Segment
	for i, page := range pages {
		if page.GetError() != nil {
			return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("page %d: %s", i+1, page.GetError().GetMessage()))
		}
		segments = append(segments, annotationSegments(page.GetFullTextAnnotation())...)
	}

	v.log.Debug().
		Int("pages", len(pages)).
		Int("segments", len(segments)).
		Msg("Vision text detection completed")

	return segments, nil
}

func (v *VisionRecognizer) imageContext() *visionpb.ImageContext {
	if len(v.languages) == 0 {
		return nil
	}
	return &visionpb.ImageContext{LanguageHints: v.languages}
}

func (v *VisionRecognizer) annotateImage(ctx context.Context, image []byte) ([]*visionpb.AnnotateImageResponse, error) {
	const op = "annotateImage"

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: v.imageContext(),
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, wrapGoogleError(op, err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}
	return resp.GetResponses(), nil
}

func (v *VisionRecognizer) annotateFile(ctx context.Context, pdf []byte) ([]*visionpb.AnnotateImageResponse, error) {
	const op = "annotateFile"

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdf,
					MimeType: string(FormatPDF),
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: v.imageContext(),
			},
		},
	}

	resp, err := v.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, wrapGoogleError(op, err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	return filePages(op, resp.GetResponses()[0])
}

// filePages returns the page responses of a synchronous file annotation.
// The API answers for the first MaxPagesSync pages only, so the document's
// total page count decides whether pages were left out.
func filePages(op string, fileResp *visionpb.AnnotateFileResponse) ([]*visionpb.AnnotateImageResponse, error) {
	if fileResp.GetError() != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.GetError().GetMessage()))
	}
	total := int(fileResp.GetTotalPages())
	if n := len(fileResp.GetResponses()); n > total {
		total = n
	}
	if total > MaxPagesSync {
		return nil, WrapOCRError(op, ErrTooManyPages, fmt.Sprintf("document has %d pages", total))
	}
	return fileResp.GetResponses(), nil
}

// annotationSegments turns every detected block into one segment.
func annotationSegments(ann *visionpb.TextAnnotation) []Segment {
	var segments []Segment
	for _, page := range ann.GetPages() {
		for _, block := range page.GetBlocks() {
			text := strings.TrimSpace(blockText(block))
			if text == "" {
				continue
			}
			segments = append(segments, Segment{
				Text:       text,
				Confidence: confidence(block.GetConfidence()),
				Bounds:     visionBounds(block.GetBoundingBox()),
			})
		}
	}
	return segments
}

// blockText rebuilds a block's text from its symbols and detected breaks.
func blockText(block *visionpb.Block) string {
	var b strings.Builder
	for _, paragraph := range block.GetParagraphs() {
		for _, word := range paragraph.GetWords() {
			for _, symbol := range word.GetSymbols() {
				b.WriteString(symbol.GetText())
				switch symbol.GetProperty().GetDetectedBreak().GetType() {
				case visionpb.TextAnnotation_DetectedBreak_SPACE,
					visionpb.TextAnnotation_DetectedBreak_SURE_SPACE:
					b.WriteByte(' ')
				case visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
					visionpb.TextAnnotation_DetectedBreak_LINE_BREAK,
					visionpb.TextAnnotation_DetectedBreak_HYPHEN:
					b.WriteByte('\n')
				}
			}
		}
	}
	return b.String()
}

func visionBounds(poly *visionpb.BoundingPoly) *Box {
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

// Close closes the underlying Vision client.
func (v *VisionRecognizer) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
