package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/ethpandaops/junitoor/pkg/reportindex"
	"github.com/go-chi/chi/v5"
)

const xmlContentType = "application/xml; charset=utf-8"

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListReports returns indexed reports, newest first.
func (s *server) handleListReports(w http.ResponseWriter, r *http.Request) {
	var opts reportindex.ListOptions

	for param, dst := range map[string]*int{
		"limit":  &opts.Limit,
		"offset": &opts.Offset,
	} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}

		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{"invalid " + param})

			return
		}

		*dst = n
	}

	reports, err := s.index.ListReports(r.Context(), opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing reports: " + err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
	})
}

// handleGetReport returns one report with its suites.
func (s *server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookupReport(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleReportXML serves the report document, from local disk when the
// written file is still present, otherwise from object storage.
func (s *server) handleReportXML(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookupReport(w, r)
	if !ok {
		return
	}

	if report.Path != "" {
		if info, err := os.Stat(report.Path); err == nil && info.Mode().IsRegular() {
			w.Header().Set("Content-Type", xmlContentType)
			http.ServeFile(w, r, report.Path)

			return
		}
	}

	if report.ObjectURI == "" || s.objects == nil {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"report file not available"})

		return
	}

	data, err := s.objects.GetObject(r.Context(), report.ObjectURI)
	if err != nil {
		s.log.WithError(err).
			WithField("uri", report.ObjectURI).
			Warn("Failed to fetch report object")
		writeJSON(w, http.StatusBadGateway,
			errorResponse{"fetching report object"})

		return
	}

	if data == nil {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"report file not available"})

		return
	}

	w.Header().Set("Content-Type", xmlContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// lookupReport resolves the {id} URL parameter and writes the error
// response when it cannot.
func (s *server) lookupReport(
	w http.ResponseWriter, r *http.Request,
) (*reportindex.Report, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return nil, false
	}

	report, err := s.index.GetReport(r.Context(), uint(id))
	if errors.Is(err, reportindex.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{"report not found"})

		return nil, false
	}

	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"getting report: " + err.Error()})

		return nil, false
	}

	return report, true
}
