package report

import "context"

// Store keeps analysis results between display and export.
type Store interface {
	Save(ctx context.Context, r *AnalysisResult) error
	Get(ctx context.Context, id AnalysisID) (*AnalysisResult, error)
	Delete(ctx context.Context, id AnalysisID) error
}

// Exporter renders an analysis result into a document.
type Exporter interface {
	Export(r *AnalysisResult) (Document, error)
}
