package httpserver

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/radiology-analyzer/internal/domain/imaging"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageTitle    = "Radiology Analyzer"
	pageSubtitle = "Advanced Medical Imaging Analysis"
)

var capabilities = []capability{
	{"Multi-Modality Analysis", "X-ray, MRI, CT, Ultrasound"},
	{"Pathology Detection", "Fractures, tumors, infections"},
	{"Comparative Analysis", "Track disease progression"},
	{"Structured Reporting", "Standardized output format"},
	{"Clinical Correlation", "Suggested next steps"},
}

type capability struct {
	Name, Detail string
}

type pageData struct {
	Title        string
	Subtitle     string
	Capabilities []capability
	Accept       string
	MaxUploadMB  string
	Error        string
	Result       *report.AnalysisResult
	Preview      template.URL
	ImageInfo    string
	Metadata     report.Metadata
}

func parsePages() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"upper": strings.ToUpper,
	}).ParseFS(templateFS, "templates/*.html"))
}

func (r *Router) newPage() pageData {
	accept := make([]string, 0, len(imaging.AllowedExtensions))
	for _, ext := range imaging.AllowedExtensions {
		accept = append(accept, "."+ext)
	}
	limit := r.maxUpload
	if limit <= 0 {
		limit = defaultUpload
	}
	return pageData{
		Title:        pageTitle,
		Subtitle:     pageSubtitle,
		Capabilities: capabilities,
		Accept:       strings.Join(accept, ","),
		MaxUploadMB:  strconv.FormatFloat(float64(limit)/(1<<20), 'f', -1, 64),
	}
}

// render executes into a buffer first so a template error never leaves a
// half written page.
func (r *Router) render(w http.ResponseWriter, req *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := r.pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		r.logger.ErrorContext(req.Context(), "render page", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// page turns handler errors into the upload page with an error banner.
func (r *Router) page(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			r.renderError(w, req, err, report.Metadata{})
		}
	}
}

func (r *Router) renderError(w http.ResponseWriter, req *http.Request, err error, meta report.Metadata) {
	e := classify(err)
	r.logFailure(req, e, err)
	data := r.newPage()
	data.Error = e.Message
	data.Metadata = meta
	r.render(w, req, e.Status, data)
}

func (r *Router) denyPage(w http.ResponseWriter, req *http.Request) {
	r.metrics.RateLimitedTotal.Inc()
	data := r.newPage()
	data.Error = "Too many analysis requests, please wait a moment and try again."
	r.render(w, req, http.StatusTooManyRequests, data)
}

func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	r.render(w, req, http.StatusOK, r.newPage())
}

func (r *Router) handleAnalyzePage(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.readUpload(w, req)
	if err != nil {
		r.renderError(w, req, err, cmd.Metadata)
		return nil
	}
	a, err := r.svc.Analyze(req.Context(), cmd)
	if err != nil {
		r.renderError(w, req, err, cmd.Metadata)
		return nil
	}

	data := r.newPage()
	data.Result = a.Result
	data.Metadata = a.Result.Metadata
	if a.Image != nil {
		// DataURL is built from our own encoding of validated bytes.
		data.Preview = template.URL(a.Image.DataURL())
		data.ImageInfo = fmt.Sprintf("%d×%d %s", a.Image.Width, a.Image.Height, strings.ToUpper(string(a.Image.Format)))
	}
	r.render(w, req, http.StatusOK, data)
	return nil
}

func (r *Router) handleReportPage(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	res, err := r.svc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	data := r.newPage()
	data.Result = res
	data.Metadata = res.Metadata
	r.render(w, req, http.StatusOK, data)
	return nil
}

// handleReportPDF serves the download. When rendering fails the result page
// is shown again with the error so the analysis text stays on screen.
func (r *Router) handleReportPDF(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	doc, err := r.svc.Export(req.Context(), id)
	if err == nil {
		writeDocument(w, doc)
		return nil
	}
	if errors.Is(err, report.ErrNotFound) {
		return err
	}

	e := classify(&exportError{err: err})
	r.logFailure(req, e, err)
	data := r.newPage()
	data.Error = e.Message
	if res, gerr := r.svc.Get(req.Context(), id); gerr == nil {
		data.Result = res
		data.Metadata = res.Metadata
	}
	r.render(w, req, e.Status, data)
	return nil
}

func (r *Router) handleClearPage(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(chi.URLParam(req, "id"))
	if err == nil {
		if err := r.svc.Clear(req.Context(), id); err != nil && !errors.Is(err, report.ErrNotFound) {
			return err
		}
	}
	http.Redirect(w, req, "/", http.StatusSeeOther)
	return nil
}

func writeDocument(w http.ResponseWriter, doc report.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}
