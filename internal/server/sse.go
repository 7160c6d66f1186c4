package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// defaultStreamInterval is how often the stream handler re-reads the record.
const defaultStreamInterval = time.Second

// SSEWriter helps write Server-Sent Events.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event.
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// WriteComplete sends a completion event.
func (s *SSEWriter) WriteComplete(reportID, status string) {
	s.WriteEvent("complete", map[string]string{ //nolint:errcheck
		"report_id": reportID,
		"status":    status,
	})
}

// handleStreamScan streams report snapshots as the workers fill the record
// in. Every change to the record produces a "report" event; a terminal status
// produces a final "complete" event and ends the stream.
func (s *Server) handleStreamScan(w http.ResponseWriter, r *http.Request) {
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

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := sse.WriteEvent("report", rec); err != nil {
		return
	}
	if rec.Status.Terminal() {
		sse.WriteComplete(rec.ID.String(), string(rec.Status))
		return
	}

	interval := s.streamInterval
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastUpdated := rec.UpdatedAt
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		rec, err = s.store.Get(r.Context(), id)
		if err != nil {
			sse.WriteError(err.Error())
			return
		}
		if !rec.UpdatedAt.After(lastUpdated) {
			continue
		}
		lastUpdated = rec.UpdatedAt

		if err := sse.WriteEvent("report", rec); err != nil {
			return
		}
		if rec.Status.Terminal() {
			sse.WriteComplete(rec.ID.String(), string(rec.Status))
			return
		}
	}
}
