package middleware

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

// MaxFieldRunes is the longest metadata value accepted from a form.
const MaxFieldRunes = 128

// ValidateUploadFilename checks the client supplied filename before it is
// used for format detection or printed on a report.
func ValidateUploadFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 255 {
		return fmt.Errorf("file name is too long")
	}

	// Block dangerous patterns
	dangerous := []string{"\x00", "\n", "\r"}
	for _, d := range dangerous {
		if strings.Contains(name, d) {
			return fmt.Errorf("invalid characters in file name")
		}
	}

	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "/" || base == "." || base == ".." {
		return fmt.Errorf("invalid file name")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// MetadataField sanitizes a form value and enforces MaxFieldRunes.
func MetadataField(label, value string) (string, error) {
	v := strings.Join(strings.Fields(SanitizeString(value)), " ")
	if utf8.RuneCountInString(v) > MaxFieldRunes {
		return "", fmt.Errorf("%s is longer than %d characters", label, MaxFieldRunes)
	}
	return v, nil
}

// ValidateAnalysisID validates analysis ID format (uuid)
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}
