package ocr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GoogleConfig holds credentials shared by the Google Cloud engines.
// When both fields are empty, Application Default Credentials are used.
type GoogleConfig struct {
	// CredentialsJSON is an inline service account key.
	CredentialsJSON string

	// CredentialsFile is the path to a service account key file.
	CredentialsFile string
}

func (c GoogleConfig) clientOptions() []option.ClientOption {
	switch {
	case c.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.CredentialsJSON))}
	case c.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
	default:
		return nil
	}
}

func (c GoogleConfig) source() string {
	switch {
	case c.CredentialsJSON != "":
		return "inline credentials"
	case c.CredentialsFile != "":
		return "credentials file " + c.CredentialsFile
	default:
		return "default credentials"
	}
}

// wrapGoogleError maps a Google API call failure to an OCRError.
func wrapGoogleError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapOCRError(op, err, "request did not complete")
	}

	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return WrapOCRError(op, ErrMissingCredentials, err.Error())
	case codes.InvalidArgument:
		return WrapOCRError(op, ErrUnsupportedFormat, err.Error())
	case codes.DeadlineExceeded:
		return WrapOCRError(op, context.DeadlineExceeded, err.Error())
	case codes.Canceled:
		return WrapOCRError(op, context.Canceled, err.Error())
	default:
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("API call failed: %v", err))
	}
}
