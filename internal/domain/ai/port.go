package ai

import (
	"context"

	"github.com/bryanwahyu/radiology-analyzer/internal/domain/imaging"
)

// Client sends one image to the inference API and returns its text verbatim.
type Client interface {
	Analyze(ctx context.Context, img *imaging.UploadedImage) (string, error)
	Model() string
}
