package imaging

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyImage indicates an upload with no bytes.
var ErrEmptyImage = errors.New("uploaded file is empty")

// UnsupportedFormatError is returned when the file extension is not on the allow-list.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported image format: file has no extension (allowed: %s)",
			strings.Join(AllowedExtensions, ", "))
	}
	return fmt.Sprintf("unsupported image format %q (allowed: %s)",
		e.Extension, strings.Join(AllowedExtensions, ", "))
}

// InvalidImageError wraps a decoder failure for an allowed extension.
type InvalidImageError struct {
	Filename string
	Err      error
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("cannot decode image %q: %v", e.Filename, e.Err)
}

func (e *InvalidImageError) Unwrap() error { return e.Err }

// TooLargeError is returned when an upload exceeds the configured limit.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("uploaded file is %d bytes, limit is %d bytes", e.Size, e.Limit)
}
