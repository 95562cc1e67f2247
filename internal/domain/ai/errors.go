package ai

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// Kind classifies inference failures for the user-facing message.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindAuth        Kind = "auth"
	KindRateLimit   Kind = "rate_limit"
	KindBadResponse Kind = "bad_response"
	KindUpstream    Kind = "upstream"
)

// ExternalServiceError wraps any failure of the inference call.
type ExternalServiceError struct {
	Kind       Kind
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inference api %s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("inference api %s error: %v", e.Kind, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrQuotaExceeded) match rate limit failures.
func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.Kind == KindRateLimit
}

// UserMessage is the text shown to the person who uploaded the image.
func (e *ExternalServiceError) UserMessage() string {
	switch e.Kind {
	case KindNetwork:
		return "The analysis service could not be reached. Check your connection and try again."
	case KindAuth:
		return "The analysis service rejected the configured API key."
	case KindRateLimit:
		return "The analysis service is rate limiting requests. Please wait a moment and try again."
	case KindBadResponse:
		return "The analysis service returned an empty or unreadable response."
	default:
		return "The analysis service failed to process the image."
	}
}
