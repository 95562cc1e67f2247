package report

import "errors"

var (
	// ErrNotFound indicates the analysis does not exist or has expired.
	ErrNotFound = errors.New("analysis not found")

	// ErrEmptyAnalysis indicates there is no text to put in a report.
	ErrEmptyAnalysis = errors.New("analysis text is empty")
)
