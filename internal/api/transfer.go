package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/percentile-data/growth.report/internal/db"
	"github.com/percentile-data/growth.report/internal/httputil"
)

// ImportResponse reports how many records an archive import created.
type ImportResponse struct {
	Persons      int `json:"persons"`
	Measurements int `json:"measurements"`
}

// handleImport handles POST /api/import - restore persons from an archive
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.GetMaxImportBytes())
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("import exceeds %d byte limit", tooLarge.Limit))
			return
		}
		httputil.BadRequest(w, "failed to read request body")
		return
	}

	persons, measurements, err := s.db.ImportJSON(data)
	if err != nil {
		status := errorStatus(err)
		// A malformed archive is the caller's problem, not ours.
		if strings.Contains(err.Error(), "failed to parse import") {
			status = http.StatusBadRequest
		}
		httputil.WriteJSONError(w, status, err.Error())
		return
	}

	httputil.WriteJSONOK(w, ImportResponse{Persons: persons, Measurements: measurements})
}

// handleExport handles GET /api/export - download every person and
// measurement as a JSON archive
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	data, err := s.db.ExportJSON()
	if err != nil {
		httputil.InternalServerError(w, "failed to export database")
		return
	}

	name := fmt.Sprintf("growth-report-export-%s.json", s.clock.Now().UTC().Format(db.DateLayout))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
