package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/radiology-analyzer/internal/application"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/imaging"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
)

// Outcome labels passed to the Observer.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Observer receives pipeline measurements. Implemented by the metrics middleware.
type Observer interface {
	ObserveAnalysis(outcome string, d time.Duration)
	ObserveExport(outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveAnalysis(string, time.Duration) {}
func (noopObserver) ObserveExport(string)                  {}

// Service implements use-cases upload → inference → report.
// Service is designed to be used concurrently; every call is independent.
type Service struct {
	AI             ai.Client
	Store          report.Store
	Exporter       report.Exporter
	Clock          application.Clock
	Observer       Observer
	MaxUploadBytes int64
	MaxImagePixels int64
}

// AnalyzeCommand is one uploaded file plus the optional study information.
type AnalyzeCommand struct {
	Filename string
	Data     []byte
	Metadata report.Metadata
}

// Analysis is returned to the UI: the stored result and the decoded upload
// for the preview. The image is not stored.
type Analysis struct {
	Result *report.AnalysisResult
	Image  *imaging.UploadedImage
}

func (s *Service) observer() Observer {
	if s.Observer == nil {
		return noopObserver{}
	}
	return s.Observer
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

// Analyze validates and decodes the upload, sends it to the inference API
// once (no retry) and stores the result for display and export.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*Analysis, error) {
	img, err := imaging.Decode(cmd.Filename, cmd.Data, imaging.Limits{
		MaxBytes:  s.MaxUploadBytes,
		MaxPixels: s.MaxImagePixels,
	})
	if err != nil {
		return nil, err
	}

	start := s.clock().Now()
	text, err := s.AI.Analyze(ctx, img)
	elapsed := s.clock().Now().Sub(start)
	if err != nil {
		s.observer().ObserveAnalysis(OutcomeFailure, elapsed)
		return nil, fmt.Errorf("analyze %s: %w", img.Filename, err)
	}
	s.observer().ObserveAnalysis(OutcomeSuccess, elapsed)

	res := &report.AnalysisResult{
		ID:          report.AnalysisID(uuid.New().String()),
		Text:        text,
		Sections:    report.ParseSections(text),
		Model:       s.AI.Model(),
		ImageName:   img.Filename,
		ImageFormat: string(img.Format),
		Metadata:    cmd.Metadata,
		CreatedAt:   s.clock().Now().UTC(),
	}
	if err := s.Store.Save(ctx, res); err != nil {
		return nil, fmt.Errorf("store analysis: %w", err)
	}
	return &Analysis{Result: res, Image: img}, nil
}

// Get ambil 1 analysis by id
func (s *Service) Get(ctx context.Context, id report.AnalysisID) (*report.AnalysisResult, error) {
	return s.Store.Get(ctx, id)
}

// Export renders the stored analysis as a PDF. The analysis must exist.
func (s *Service) Export(ctx context.Context, id report.AnalysisID) (report.Document, error) {
	res, err := s.Store.Get(ctx, id)
	if err != nil {
		return report.Document{}, err
	}
	doc, err := s.Exporter.Export(res)
	if err != nil {
		s.observer().ObserveExport(OutcomeFailure)
		return report.Document{}, fmt.Errorf("export %s: %w", id, err)
	}
	s.observer().ObserveExport(OutcomeSuccess)
	return doc, nil
}

// Clear removes the analysis; later Get/Export calls return report.ErrNotFound.
func (s *Service) Clear(ctx context.Context, id report.AnalysisID) error {
	return s.Store.Delete(ctx, id)
}
