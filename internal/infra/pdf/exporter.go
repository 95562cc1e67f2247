package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
)

const (
	contentType = "application/pdf"
	fontFamily  = "Helvetica"
	marginX     = 20.0
	marginTop   = 20.0
	bottomSpace = 28.0

	// pageCountAlias is replaced by the page count when the document is
	// closed. Control bytes are stripped from all input, so it cannot occur
	// in report text.
	pageCountAlias = "\x01nb\x01"
)

type Options struct {
	Title      string
	Subtitle   string
	Disclaimer string
	Filename   string
	Compress   bool
}

// Exporter lays out an analysis result as a Letter size PDF.
type Exporter struct {
	opts Options
}

func NewExporter(opts Options) *Exporter {
	if opts.Title == "" {
		opts.Title = "Radiology Report"
	}
	if opts.Filename == "" {
		opts.Filename = "radiology_report.pdf"
	}
	return &Exporter{opts: opts}
}

// Export renders r. Output only depends on r and the exporter options: the
// document dates come from r.CreatedAt and the catalog is written sorted.
func (e *Exporter) Export(r *report.AnalysisResult) (report.Document, error) {
	if r == nil || strings.TrimSpace(r.Text) == "" {
		return report.Document{}, report.ErrEmptyAnalysis
	}
	sections := r.Sections
	if len(sections) == 0 {
		sections = report.ParseSections(r.Text)
	}
	created := r.CreatedAt.UTC()

	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetCompression(e.opts.Compress)
	doc.SetCatalogSort(true)
	doc.SetCreationDate(created)
	doc.SetModificationDate(created)
	doc.SetTitle(e.opts.Title, true)
	doc.SetSubject(e.opts.Subtitle, true)
	doc.SetCreator("radiology-analyzer", false)
	doc.SetMargins(marginX, marginTop, marginX)
	doc.SetAutoPageBreak(true, bottomSpace)
	doc.AliasNbPages(pageCountAlias)

	cp1252 := doc.UnicodeTranslatorFromDescriptor("")
	tr := func(s string) string { return cp1252(stripControl(s)) }

	doc.SetFooterFunc(func() {
		doc.SetY(-22)
		doc.SetDrawColor(200, 200, 200)
		doc.SetTextColor(110, 110, 110)
		doc.SetFont(fontFamily, "I", 7)
		if e.opts.Disclaimer != "" {
			doc.MultiCell(0, 3.5, tr(e.opts.Disclaimer), "T", "C", false)
		}
		doc.CellFormat(0, 5, fmt.Sprintf("Page %d/%s", doc.PageNo(), pageCountAlias), "", 0, "C", false, 0, "")
	})

	doc.AddPage()

	// judul
	doc.SetTextColor(20, 60, 80)
	doc.SetFont(fontFamily, "B", 20)
	doc.CellFormat(0, 10, tr(e.opts.Title), "", 1, "C", false, 0, "")
	if e.opts.Subtitle != "" {
		doc.SetFont(fontFamily, "", 11)
		doc.SetTextColor(107, 107, 107)
		doc.CellFormat(0, 6, tr(e.opts.Subtitle), "", 1, "C", false, 0, "")
	}
	doc.Ln(4)

	writeMetadata(doc, tr, r, created.Format("2006-01-02 15:04:05 UTC"))
	doc.Ln(6)

	doc.SetTextColor(30, 30, 30)
	for _, s := range sections {
		if s.Title != "" {
			doc.SetFont(fontFamily, "B", 12)
			doc.CellFormat(0, 7, tr(s.Title), "B", 1, "L", false, 0, "")
			doc.Ln(1.5)
		}
		if s.Body != "" {
			doc.SetFont(fontFamily, "", 10.5)
			doc.MultiCell(0, 5.5, tr(s.Body), "", "L", false)
		}
		doc.Ln(4)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return report.Document{}, fmt.Errorf("render pdf: %w", err)
	}
	return report.Document{
		Filename:    e.opts.Filename,
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

func writeMetadata(doc *fpdf.Fpdf, tr func(string) string, r *report.AnalysisResult, generated string) {
	rows := [][2]string{
		{"Patient", r.Metadata.PatientName},
		{"Patient ID", r.Metadata.PatientID},
		{"Study date", r.Metadata.StudyDate},
		{"Study", r.Metadata.StudyDescription},
		{"Source image", r.ImageName},
		{"Report ID", string(r.ID)},
		{"Generated", generated},
		{"Model", r.Model},
	}

	const labelW = 35.0
	doc.SetFillColor(236, 246, 246)
	doc.SetDrawColor(200, 220, 220)
	for _, row := range rows {
		if strings.TrimSpace(row[1]) == "" {
			continue
		}
		doc.SetFont(fontFamily, "B", 9.5)
		doc.SetTextColor(60, 60, 60)
		doc.CellFormat(labelW, 6.5, tr(row[0]), "1", 0, "L", true, 0, "")
		doc.SetFont(fontFamily, "", 9.5)
		doc.SetTextColor(30, 30, 30)
		doc.CellFormat(0, 6.5, tr(row[1]), "1", 1, "L", false, 0, "")
	}
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
