package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	appanalysis "github.com/bryanwahyu/radiology-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
	"github.com/bryanwahyu/radiology-analyzer/internal/middleware"
)

const (
	uploadField   = "file"
	formMemory    = 8 << 20
	formOverhead  = 1 << 20
	defaultUpload = 10 << 20
)

// readUpload parses the multipart form of an analyze request. On error the
// returned command still carries whatever metadata was parsed.
func (r *Router) readUpload(w http.ResponseWriter, req *http.Request) (appanalysis.AnalyzeCommand, error) {
	var cmd appanalysis.AnalyzeCommand

	limit := r.maxUpload
	if limit <= 0 {
		limit = defaultUpload
	}
	req.Body = http.MaxBytesReader(w, req.Body, limit+formOverhead)
	if err := req.ParseMultipartForm(formMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return cmd, fmt.Errorf("read upload: %w", mbe)
		}
		return cmd, badRequest("could not parse the upload form: %v", err)
	}

	// metadata first so error pages can refill the form
	meta, err := readMetadata(req)
	if err != nil {
		return cmd, err
	}
	cmd.Metadata = meta

	file, header, err := req.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return cmd, badRequest("no file was uploaded")
		}
		return cmd, badRequest("could not read the uploaded file: %v", err)
	}
	defer file.Close()

	if err := middleware.ValidateUploadFilename(header.Filename); err != nil {
		return cmd, badRequest("%v", err)
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return cmd, badRequest("could not read the uploaded file: %v", err)
	}

	cmd.Filename = header.Filename
	cmd.Data = data
	return cmd, nil
}

func readMetadata(req *http.Request) (report.Metadata, error) {
	var m report.Metadata
	fields := []struct {
		key, label string
		dst        *string
	}{
		{"patient_name", "patient name", &m.PatientName},
		{"patient_id", "patient ID", &m.PatientID},
		{"study_date", "study date", &m.StudyDate},
		{"study_description", "study description", &m.StudyDescription},
	}
	for _, f := range fields {
		v, err := middleware.MetadataField(f.label, req.FormValue(f.key))
		if err != nil {
			return report.Metadata{}, badRequest("%v", err)
		}
		*f.dst = v
	}
	return m, nil
}

func analysisID(raw string) (report.AnalysisID, error) {
	if err := middleware.ValidateAnalysisID(raw); err != nil {
		return "", report.ErrNotFound
	}
	return report.AnalysisID(raw), nil
}
