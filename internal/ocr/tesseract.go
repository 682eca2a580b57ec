package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"ocrscan/internal/logger"
)

// TesseractConfig configures the local Tesseract engine.
type TesseractConfig struct {
	// TessdataPrefix is the directory holding traineddata files.
	// Empty uses the library default.
	TessdataPrefix string

	// PageSegMode is a Tesseract page segmentation mode; 0 keeps the default.
	PageSegMode int

	// Variables are Tesseract parameters applied to every client, for
	// example "tessedit_do_invert" or "user_defined_dpi".
	Variables map[string]string
}

// tesseractLanguages maps BCP-47 hints to traineddata names.
var tesseractLanguages = map[string]string{
	"th": "tha",
	"en": "eng",
	"de": "deu",
	"fr": "fra",
	"ja": "jpn",
	"zh": "chi_sim",
}

// TesseractRecognizer implements Recognizer using local Tesseract. Each
// recognized text line becomes one segment.
//
// A fresh client is created per call, so a recognizer is safe for
// concurrent use.
type TesseractRecognizer struct {
	config    TesseractConfig
	languages []string
	log       zerolog.Logger
}

// NewTesseractRecognizer creates a Tesseract recognizer. Languages default
// to Thai and English.
func NewTesseractRecognizer(cfg TesseractConfig, languages []string) *TesseractRecognizer {
	if len(languages) == 0 {
		languages = []string{"th", "en"}
	}
	return &TesseractRecognizer{
		config:    cfg,
		languages: TesseractLanguages(languages),
		log:       logger.WithComponent("ocr-tesseract"),
	}
}

// TesseractLanguages converts language hints to traineddata names.
// Unknown hints are passed through unchanged.
func TesseractLanguages(hints []string) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if name, ok := tesseractLanguages[h]; ok {
			h = name
		}
		out = append(out, h)
	}
	return out
}

// Name implements Recognizer.
func (t *TesseractRecognizer) Name() string { return EngineTesseract }

// Recognize implements Recognizer.
func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte) ([]Segment, error) {
	const op = "TesseractRecognize"

	if _, err := checkInput(op, image, false); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := t.configure(client); err != nil {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, err.Error())
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, WrapOCRError(op, ErrUnsupportedFormat, err.Error())
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, err.Error())
	}
	// Tesseract cannot be interrupted mid-page; drop the result instead.
	if err := ctx.Err(); err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	segments := make([]Segment, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Text:       text,
			Confidence: confidence(float32(box.Confidence / 100)),
			Bounds: &Box{
				X:      box.Box.Min.X,
				Y:      box.Box.Min.Y,
				Width:  box.Box.Dx(),
				Height: box.Box.Dy(),
			},
		})
	}

	t.log.Debug().
		Strs("languages", t.languages).
		Int("segments", len(segments)).
		Msg("Tesseract recognition completed")

	return segments, nil
}

func (t *TesseractRecognizer) configure(client *gosseract.Client) error {
	if t.config.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.config.TessdataPrefix); err != nil {
			return fmt.Errorf("tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		return fmt.Errorf("languages %v: %w", t.languages, err)
	}
	if t.config.PageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(t.config.PageSegMode)); err != nil {
			return fmt.Errorf("page segmentation mode %d: %w", t.config.PageSegMode, err)
		}
	}

	keys := make([]string, 0, len(t.config.Variables))
	for k := range t.config.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := client.SetVariable(gosseract.SettableVariable(k), t.config.Variables[k]); err != nil {
			return fmt.Errorf("variable %s: %w", k, err)
		}
	}
	return nil
}

// Close implements Recognizer. Tesseract clients are closed per call.
func (t *TesseractRecognizer) Close() error { return nil }
