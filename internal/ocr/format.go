package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxImageSizeBytes is the largest image accepted by any engine (20MB).
const MaxImageSizeBytes = 20 * 1024 * 1024

// Format is the MIME type of an OCR input.
type Format string

const (
	FormatPNG  Format = "image/png"
	FormatJPEG Format = "image/jpeg"
	FormatGIF  Format = "image/gif"
	FormatBMP  Format = "image/bmp"
	FormatTIFF Format = "image/tiff"
	FormatWebP Format = "image/webp"
	FormatPDF  Format = "application/pdf"
)

var decoderFormats = map[string]Format{
	"png":  FormatPNG,
	"jpeg": FormatJPEG,
	"gif":  FormatGIF,
	"bmp":  FormatBMP,
	"tiff": FormatTIFF,
	"webp": FormatWebP,
}

// DetectFormat sniffs the content type of data from its header.
func DetectFormat(data []byte) (Format, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF, nil
	}
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	f, ok := decoderFormats[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// checkInput applies the limits shared by all engines and returns the
// detected format.
func checkInput(op string, data []byte, allowPDF bool) (Format, error) {
	if len(data) == 0 {
		return "", WrapOCRError(op, ErrEmptyImage, "")
	}
	if len(data) > MaxImageSizeBytes {
		return "", WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(data)))
	}
	format, err := DetectFormat(data)
	if err != nil {
		return "", WrapOCRError(op, err, "")
	}
	if format == FormatPDF && !allowPDF {
		return "", WrapOCRError(op, ErrUnsupportedFormat, "engine does not accept PDF input")
	}
	return format, nil
}
