package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
)

func sampleResult(text string) *report.AnalysisResult {
	return &report.AnalysisResult{
		ID:        "3f1c2a9e-0000-4000-8000-000000000001",
		Text:      text,
		Sections:  report.ParseSections(text),
		Model:     "llama-3.2-11b-vision-preview",
		ImageName: "chest.jpg",
		Metadata: report.Metadata{
			PatientName: "Jane Roe",
			PatientID:   "MRN-42",
			StudyDate:   "2026-10-01",
		},
		CreatedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600)),
	}
}

func uncompressed() *Exporter {
	return NewExporter(Options{
		Title:      "Radiology Report",
		Subtitle:   "Advanced Medical Imaging Analysis",
		Disclaimer: "Not a medical diagnosis.",
	})
}

func TestExport_ContainsTextAndMetadata(t *testing.T) {
	doc, err := uncompressed().Export(sampleResult("No abnormality detected"))
	require.NoError(t, err)

	assert.Equal(t, "radiology_report.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(No abnormality detected)")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(Jane Roe)")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(MRN-42)")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(Not a medical diagnosis.)")))
	// timestamp is printed in UTC
	assert.True(t, bytes.Contains(doc.Data, []byte("(2026-10-18 02:30:00 UTC)")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(Page 1/1)")))
}

func TestExport_Deterministic(t *testing.T) {
	text := "1. Imaging Modality: Chest X-ray\n2. Findings\nClear lungs.\n3. Impression: Normal."
	e := NewExporter(Options{Compress: true, Disclaimer: "AI generated"})

	first, err := e.Export(sampleResult(text))
	require.NoError(t, err)
	second, err := e.Export(sampleResult(text))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first.Data, second.Data), "identical input must give identical bytes")

	later := sampleResult(text)
	later.CreatedAt = later.CreatedAt.Add(time.Second)
	third, err := e.Export(later)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(first.Data, third.Data))
}

func TestExport_SectionHeadings(t *testing.T) {
	doc, err := uncompressed().Export(sampleResult("**1. Imaging Modality:** CT head\n## 2. Impression\nNo acute hemorrhage."))
	require.NoError(t, err)
	assert.True(t, bytes.Contains(doc.Data, []byte("(Imaging Modality)")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(CT head)")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(No acute hemorrhage.)")))
	assert.False(t, bytes.Contains(doc.Data, []byte("**")))
}

func TestExport_ParsesSectionsWhenMissing(t *testing.T) {
	r := sampleResult("## Impression\nNormal study.")
	r.Sections = nil
	doc, err := uncompressed().Export(r)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(doc.Data, []byte("(Impression)")))
}

func TestExport_MultiPage(t *testing.T) {
	long := strings.Repeat("The visualized osseous structures are intact without fracture.\n", 120)
	doc, err := uncompressed().Export(sampleResult(long))
	require.NoError(t, err)
	assert.True(t, bytes.Contains(doc.Data, []byte("(Page 2/")))
}

func TestExport_EmptyAnalysis(t *testing.T) {
	_, err := uncompressed().Export(sampleResult("   "))
	require.ErrorIs(t, err, report.ErrEmptyAnalysis)

	_, err = uncompressed().Export(nil)
	require.ErrorIs(t, err, report.ErrEmptyAnalysis)
}

func TestExport_NonASCII(t *testing.T) {
	doc, err := uncompressed().Export(sampleResult("Opacity ≈ 2 cm – café sign"))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Data)
}

func TestExport_PageAliasNotExpandedInText(t *testing.T) {
	res := sampleResult("Template token {nb} left by the model\x01nb\x01.")
	res.Metadata.StudyDescription = "Series {nb}"

	doc, err := uncompressed().Export(res)
	require.NoError(t, err)

	assert.True(t, bytes.Contains(doc.Data, []byte("(Template token {nb} left by the modelnb.)")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(Series {nb})")))
	assert.True(t, bytes.Contains(doc.Data, []byte("(Page 1/1)")))
	assert.False(t, bytes.Contains(doc.Data, []byte(pageCountAlias)))
}
