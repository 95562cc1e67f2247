package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bryanwahyu/radiology-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/imaging"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
)

// apiError is the HTTP view of a failure, shared by the pages and the JSON API.
type apiError struct {
	Status  int
	Code    string
	Message string
}

// badRequestError marks malformed form input.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// exportError marks a failure while rendering the PDF of an existing analysis.
type exportError struct{ err error }

func (e *exportError) Error() string { return e.err.Error() }
func (e *exportError) Unwrap() error { return e.err }

func classify(err error) apiError {
	var (
		unsupported *imaging.UnsupportedFormatError
		invalid     *imaging.InvalidImageError
		tooLarge    *imaging.TooLargeError
		maxBytes    *http.MaxBytesError
		bad         *badRequestError
		external    *ai.ExternalServiceError
		export      *exportError
	)

	switch {
	case errors.As(err, &unsupported):
		return apiError{http.StatusUnsupportedMediaType, "unsupported_format", unsupported.Error()}
	case errors.As(err, &invalid):
		return apiError{http.StatusUnprocessableEntity, "invalid_image", invalid.Error()}
	case errors.Is(err, imaging.ErrEmptyImage):
		return apiError{http.StatusBadRequest, "empty_file", "The uploaded file is empty."}
	case errors.As(err, &tooLarge):
		return apiError{http.StatusRequestEntityTooLarge, "file_too_large", tooLarge.Error()}
	case errors.As(err, &maxBytes):
		return apiError{http.StatusRequestEntityTooLarge, "file_too_large", "The upload exceeds the size limit."}
	case errors.As(err, &bad):
		return apiError{http.StatusBadRequest, "bad_request", bad.msg}
	case errors.Is(err, report.ErrNotFound):
		return apiError{http.StatusNotFound, "not_found", "The analysis was not found or has expired."}
	case errors.As(err, &external):
		msg := fmt.Sprintf("%s (%v)", external.UserMessage(), external.Err)
		if external.Kind == ai.KindRateLimit {
			return apiError{http.StatusTooManyRequests, "inference_rate_limited", msg}
		}
		return apiError{http.StatusBadGateway, "inference_failed", msg}
	case errors.As(err, &export):
		return apiError{http.StatusInternalServerError, "pdf_failed",
			fmt.Sprintf("Failed to generate the PDF report: %v", export.err)}
	default:
		return apiError{http.StatusInternalServerError, "internal", "Internal server error."}
	}
}
