package analysis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/radiology-analyzer/internal/application"
	domai "github.com/bryanwahyu/radiology-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/imaging"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
)

type fakeAI struct {
	text  string
	err   error
	calls int
	got   *imaging.UploadedImage
}

func (f *fakeAI) Analyze(_ context.Context, img *imaging.UploadedImage) (string, error) {
	f.calls++
	f.got = img
	return f.text, f.err
}

func (f *fakeAI) Model() string { return "fake-vision" }

type memStore struct {
	mu   sync.Mutex
	data map[report.AnalysisID]report.AnalysisResult
}

func newMemStore() *memStore {
	return &memStore{data: map[report.AnalysisID]report.AnalysisResult{}}
}

func (m *memStore) Save(_ context.Context, r *report.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[r.ID] = *r
	return nil
}

func (m *memStore) Get(_ context.Context, id report.AnalysisID) (*report.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) Delete(_ context.Context, id report.AnalysisID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return report.ErrNotFound
	}
	delete(m.data, id)
	return nil
}

type fakeExporter struct {
	err error
}

func (f fakeExporter) Export(r *report.AnalysisResult) (report.Document, error) {
	if f.err != nil {
		return report.Document{}, f.err
	}
	return report.Document{Filename: "radiology_report.pdf", ContentType: "application/pdf", Data: []byte("%PDF " + r.Text)}, nil
}

type recorder struct {
	analyses []string
	exports  []string
}

func (r *recorder) ObserveAnalysis(outcome string, _ time.Duration) {
	r.analyses = append(r.analyses, outcome)
}
func (r *recorder) ObserveExport(outcome string) { r.exports = append(r.exports, outcome) }

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil))
	return buf.Bytes()
}

var now = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

func newService(ai *fakeAI, exp report.Exporter) (*Service, *recorder) {
	rec := &recorder{}
	return &Service{
		AI:       ai,
		Store:    newMemStore(),
		Exporter: exp,
		Clock:    application.FixedClock{T: now},
		Observer: rec,
	}, rec
}

func TestService_AnalyzeAndExport(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{text: "No abnormality detected"}
	svc, rec := newService(ai, fakeExporter{})

	a, err := svc.Analyze(ctx, AnalyzeCommand{
		Filename: "knee.jpeg",
		Data:     jpegBytes(t),
		Metadata: report.Metadata{PatientID: "MRN-1"},
	})
	require.NoError(t, err)
	require.NotNil(t, a.Image)
	assert.Equal(t, imaging.FormatJPEG, a.Image.Format)

	res := a.Result
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "No abnormality detected", res.Text)
	assert.Equal(t, []report.Section{{Body: "No abnormality detected"}}, res.Sections)
	assert.Equal(t, "fake-vision", res.Model)
	assert.Equal(t, "knee.jpeg", res.ImageName)
	assert.Equal(t, "jpeg", res.ImageFormat)
	assert.Equal(t, "MRN-1", res.Metadata.PatientID)
	assert.Equal(t, now, res.CreatedAt)
	assert.Equal(t, 1, ai.calls)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Text, got.Text)

	doc, err := svc.Export(ctx, res.ID)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Data), "No abnormality detected")

	assert.Equal(t, []string{OutcomeSuccess}, rec.analyses)
	assert.Equal(t, []string{OutcomeSuccess}, rec.exports)
}

func TestService_AnalyzeRejectsUnsupportedFormat(t *testing.T) {
	ai := &fakeAI{text: "unused"}
	svc, rec := newService(ai, fakeExporter{})

	_, err := svc.Analyze(context.Background(), AnalyzeCommand{Filename: "scan.gif", Data: []byte("GIF89a")})
	var ufe *imaging.UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "gif", ufe.Extension)
	assert.Zero(t, ai.calls, "no inference call for rejected uploads")
	assert.Empty(t, rec.analyses)
}

func TestService_AnalyzeSizeLimit(t *testing.T) {
	svc, _ := newService(&fakeAI{text: "x"}, fakeExporter{})
	svc.MaxUploadBytes = 10

	_, err := svc.Analyze(context.Background(), AnalyzeCommand{Filename: "a.jpg", Data: jpegBytes(t)})
	var tl *imaging.TooLargeError
	require.ErrorAs(t, err, &tl)
}

func TestService_AnalyzePixelLimit(t *testing.T) {
	ai := &fakeAI{text: "x"}
	svc, _ := newService(ai, fakeExporter{})
	svc.MaxImagePixels = 15 // jpegBytes is 4x4

	_, err := svc.Analyze(context.Background(), AnalyzeCommand{Filename: "a.jpg", Data: jpegBytes(t)})
	var iie *imaging.InvalidImageError
	require.ErrorAs(t, err, &iie)
	assert.Zero(t, ai.calls)
}

func TestService_AnalyzeInferenceFailure(t *testing.T) {
	cause := &domai.ExternalServiceError{Kind: domai.KindRateLimit, StatusCode: 429, Err: errors.New("slow down")}
	ai := &fakeAI{err: cause}
	svc, rec := newService(ai, fakeExporter{})

	_, err := svc.Analyze(context.Background(), AnalyzeCommand{Filename: "a.jpg", Data: jpegBytes(t)})
	require.ErrorIs(t, err, domai.ErrQuotaExceeded)
	var ese *domai.ExternalServiceError
	require.ErrorAs(t, err, &ese)
	assert.Equal(t, 1, ai.calls, "no retry")
	assert.Equal(t, []string{OutcomeFailure}, rec.analyses)
}

func TestService_ExportRequiresAnalysis(t *testing.T) {
	svc, rec := newService(&fakeAI{}, fakeExporter{})
	_, err := svc.Export(context.Background(), "missing")
	require.ErrorIs(t, err, report.ErrNotFound)
	assert.Empty(t, rec.exports)
}

func TestService_ExportFailureKeepsAnalysis(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("layout failed")
	svc, rec := newService(&fakeAI{text: "Findings"}, fakeExporter{err: boom})

	a, err := svc.Analyze(ctx, AnalyzeCommand{Filename: "a.jpg", Data: jpegBytes(t)})
	require.NoError(t, err)

	_, err = svc.Export(ctx, a.Result.ID)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{OutcomeFailure}, rec.exports)

	got, err := svc.Get(ctx, a.Result.ID)
	require.NoError(t, err)
	assert.Equal(t, "Findings", got.Text)
}

func TestService_Clear(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&fakeAI{text: "x"}, fakeExporter{})
	a, err := svc.Analyze(ctx, AnalyzeCommand{Filename: "a.jpg", Data: jpegBytes(t)})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, a.Result.ID))
	_, err = svc.Export(ctx, a.Result.ID)
	assert.ErrorIs(t, err, report.ErrNotFound)
}

func TestService_DefaultsWithoutClockOrObserver(t *testing.T) {
	svc := &Service{AI: &fakeAI{text: "x"}, Store: newMemStore(), Exporter: fakeExporter{}}
	a, err := svc.Analyze(context.Background(), AnalyzeCommand{Filename: "a.jpg", Data: jpegBytes(t)})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), a.Result.CreatedAt, time.Minute)
}
