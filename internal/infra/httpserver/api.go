package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
)

// POST /v1/analyses
func (r *Router) handleAPIAnalyze(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.readUpload(w, req)
	if err != nil {
		return err
	}
	a, err := r.svc.Analyze(req.Context(), cmd)
	if err != nil {
		return err
	}
	w.Header().Set("Location", "/v1/analyses/"+string(a.Result.ID))
	writeJSON(w, http.StatusCreated, toResponse(a.Result, a.Image))
	return nil
}

// GET /v1/analyses/{id}
func (r *Router) handleAPIGet(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	res, err := r.svc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toResponse(res, nil))
	return nil
}

// GET /v1/analyses/{id}/report.pdf
func (r *Router) handleAPIReport(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	doc, err := r.svc.Export(req.Context(), id)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			return err
		}
		return &exportError{err: err}
	}
	writeDocument(w, doc)
	return nil
}

// DELETE /v1/analyses/{id}
func (r *Router) handleAPIDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if err := r.svc.Clear(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
