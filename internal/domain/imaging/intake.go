package imaging

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// decoders untuk format yang diizinkan
	_ "image/jpeg"
	_ "image/png"
)

// FormatFromFilename checks the extension against AllowedExtensions.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return "", &UnsupportedFormatError{Extension: ext}
	}
}

// DefaultMaxPixels caps width*height when Limits.MaxPixels is not set.
const DefaultMaxPixels = 50_000_000

// Limits bounds an upload. MaxBytes <= 0 disables the byte check;
// MaxPixels <= 0 means DefaultMaxPixels.
type Limits struct {
	MaxBytes  int64
	MaxPixels int64
}

// Decode validates an upload and decodes it. Pixel data is not modified;
// Data keeps the original bytes. The header is checked against the pixel
// cap before the full decode allocates the bitmap.
func Decode(filename string, data []byte, lim Limits) (*UploadedImage, error) {
	if _, err := FormatFromFilename(filename); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if lim.MaxBytes > 0 && int64(len(data)) > lim.MaxBytes {
		return nil, &TooLargeError{Size: int64(len(data)), Limit: lim.MaxBytes}
	}

	maxPixels := lim.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageError{Filename: filename, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, &InvalidImageError{Filename: filename,
			Err: fmt.Errorf("image is %dx%d pixels, limit is %d pixels", cfg.Width, cfg.Height, maxPixels)}
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageError{Filename: filename, Err: err}
	}

	// a .png that is really a jpeg is still a valid upload; the decoder wins
	format := Format(name)
	if format != FormatPNG && format != FormatJPEG {
		return nil, &InvalidImageError{Filename: filename, Err: fmt.Errorf("unexpected encoding %q", name)}
	}

	b := img.Bounds()
	return &UploadedImage{
		Filename: filepath.Base(filename),
		Format:   format,
		Data:     data,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}
