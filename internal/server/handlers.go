package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/site-auditor/internal/blob"
	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/queue"
)

// ScanRequest represents the request body for POST /scans.
type ScanRequest struct {
	URL        string `json:"url" validate:"required,http_url"`
	AIProvider string `json:"ai_provider,omitempty"`
	AIModel    string `json:"ai_model,omitempty"`
}

// ScanResponse represents the response for POST /scans.
type ScanResponse struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
	URL      string `json:"url"`
}

// handleCreateScan accepts a scan request, creates the pending report, and
// queues the task. The scan itself runs in a worker; the client polls or
// streams the report.
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "url must be a valid http(s) URL")
		return
	}
	if req.AIProvider != "" && !llm.Supported(req.AIProvider) {
		err := &ErrUnsupportedProvider{Provider: req.AIProvider}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	rec, err := s.store.Create(r.Context(), req.URL)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create report: "+err.Error())
		return
	}

	task := queue.Task{
		ReportID: rec.ID,
		URL:      req.URL,
		Provider: req.AIProvider,
		Model:    req.AIModel,
	}
	if err := s.queue.Enqueue(r.Context(), task); err != nil {
		// The pending record stays; a re-submitted scan gets a fresh one.
		log.Printf("Failed to enqueue scan for report %s: %v", rec.ID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to queue scan")
		return
	}

	s.jsonResponse(w, http.StatusAccepted, ScanResponse{
		ReportID: rec.ID.String(),
		Status:   string(rec.Status),
		URL:      rec.URL,
	})
}

// handleGetScan returns the full report record, however far along it is.
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid report ID format")
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleGetScreenshot serves a captured screenshot by blob reference.
func (s *Server) handleGetScreenshot(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	if !blob.ValidRef(ref) {
		s.errorResponse(w, http.StatusBadRequest, "Invalid screenshot reference")
		return
	}

	data, err := s.blobs.Get(ref)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "Screenshot not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable") // content-addressed
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing screenshot response: %v", err)
	}
}
