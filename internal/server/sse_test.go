package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-auditor/internal/report"
)

// readEvents consumes the SSE stream until the named event arrives or the
// stream ends, returning every event name seen.
func readEvents(t *testing.T, body *bufio.Scanner, until string) []string {
	t.Helper()
	var events []string
	for body.Scan() {
		line := body.Text()
		if !strings.HasPrefix(line, "event: ") {
			continue
		}
		name := strings.TrimPrefix(line, "event: ")
		events = append(events, name)
		if name == until {
			return events
		}
	}
	return events
}

func TestStreamScanDeliversProgressAndCompletion(t *testing.T) {
	ts := newTestServer(Config{})
	rec, err := ts.store.Create(context.Background(), "https://example.com")
	require.NoError(t, err)

	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	// Drive the record through its lifecycle while the stream is open.
	go func() {
		ctx := context.Background()
		time.Sleep(30 * time.Millisecond)
		_ = ts.store.SetStatus(ctx, rec.ID, report.StatusProcessing)
		time.Sleep(30 * time.Millisecond)
		_ = ts.store.SaveSection(ctx, rec.ID, report.SectionCapture, report.CaptureResult{Success: true})
		time.Sleep(30 * time.Millisecond)
		_ = ts.store.SetStatus(ctx, rec.ID, report.StatusCompleted)
	}()

	resp, err := http.Get(srv.URL + "/scans/" + rec.ID.String() + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, bufio.NewScanner(resp.Body), "complete")
	require.NotEmpty(t, events)
	assert.Equal(t, "complete", events[len(events)-1])
	// At least the initial snapshot plus one update before completion.
	assert.GreaterOrEqual(t, countOf(events, "report"), 2)
}

func TestStreamScanTerminalRecordCompletesImmediately(t *testing.T) {
	ts := newTestServer(Config{})
	ctx := context.Background()
	rec, err := ts.store.Create(ctx, "https://example.com")
	require.NoError(t, err)
	require.NoError(t, ts.store.SetStatus(ctx, rec.ID, report.StatusProcessing))
	require.NoError(t, ts.store.Fail(ctx, rec.ID, "required sections failed: audit"))

	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/scans/" + rec.ID.String() + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readEvents(t, bufio.NewScanner(resp.Body), "complete")
	assert.Equal(t, []string{"report", "complete"}, events)
}

func TestStreamScanUnknownRecord(t *testing.T) {
	ts := newTestServer(Config{})

	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/scans/" + uuid.New().String() + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func countOf(events []string, name string) int {
	n := 0
	for _, e := range events {
		if e == name {
			n++
		}
	}
	return n
}
