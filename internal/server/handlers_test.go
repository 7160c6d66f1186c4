package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-auditor/internal/queue"
	"github.com/jonathan/site-auditor/internal/report"
)

type memBlobs struct {
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (m *memBlobs) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])
	m.blobs[ref] = data
	return ref, nil
}

func (m *memBlobs) Get(ref string) ([]byte, error) {
	data, ok := m.blobs[ref]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

type testServer struct {
	*Server
	store *report.MemoryStore
	queue *queue.MemoryQueue
	blobs *memBlobs
}

func newTestServer(cfg Config) *testServer {
	store := report.NewMemoryStore()
	q := queue.NewMemoryQueue(3)
	blobs := newMemBlobs()
	s := New(cfg, store, q, blobs)
	s.streamInterval = 10 * time.Millisecond
	return &testServer{Server: s, store: store, queue: q, blobs: blobs}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleCreateScan(t *testing.T) {
	ts := newTestServer(Config{})

	w := ts.do(t, http.MethodPost, "/scans", `{"url": "https://example.com"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "https://example.com", resp.URL)

	// The pending record exists and the task is claimable.
	id, err := uuid.Parse(resp.ReportID)
	require.NoError(t, err)
	rec, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, report.StatusPending, rec.Status)

	task, err := ts.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, id, task.ReportID)
	assert.Equal(t, "https://example.com", task.URL)
}

func TestHandleCreateScan_ProviderOverride(t *testing.T) {
	ts := newTestServer(Config{})

	w := ts.do(t, http.MethodPost, "/scans",
		`{"url": "https://example.com", "ai_provider": "openai", "ai_model": "gpt-4o"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	task, err := ts.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "openai", task.Provider)
	assert.Equal(t, "gpt-4o", task.Model)
}

func TestHandleCreateScan_InvalidURL(t *testing.T) {
	ts := newTestServer(Config{})

	for _, body := range []string{
		`{"url": "not-a-url"}`,
		`{"url": ""}`,
		`{}`,
		`{"url": "ftp://example.com/files"}`,
	} {
		w := ts.do(t, http.MethodPost, "/scans", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}

	// Nothing was queued.
	task, err := ts.queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestHandleCreateScan_UnsupportedProvider(t *testing.T) {
	ts := newTestServer(Config{})

	w := ts.do(t, http.MethodPost, "/scans", `{"url": "https://example.com", "ai_provider": "skynet"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "skynet")
}

func TestHandleGetScan(t *testing.T) {
	ts := newTestServer(Config{})
	rec, err := ts.store.Create(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.NoError(t, ts.store.SaveSection(context.Background(), rec.ID, report.SectionTech,
		report.TechResult{Status: report.SectionCompleted, Technologies: []report.Technology{{Name: "WordPress"}}}))

	w := ts.do(t, http.MethodGet, "/scans/"+rec.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	var got report.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, rec.ID, got.ID)
	require.NotNil(t, got.Tech)
	assert.Equal(t, "WordPress", got.Tech.Technologies[0].Name)
}

func TestHandleGetScan_NotFound(t *testing.T) {
	ts := newTestServer(Config{})

	w := ts.do(t, http.MethodGet, "/scans/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetScan_InvalidID(t *testing.T) {
	ts := newTestServer(Config{})

	w := ts.do(t, http.MethodGet, "/scans/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetScreenshot(t *testing.T) {
	ts := newTestServer(Config{})
	ref, err := ts.blobs.Put([]byte("png-bytes"))
	require.NoError(t, err)

	w := ts.do(t, http.MethodGet, "/screenshots/"+ref, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestHandleGetScreenshot_InvalidRef(t *testing.T) {
	ts := newTestServer(Config{})

	// Malformed refs never reach the blob store.
	for _, ref := range []string{"short", strings.Repeat("Z", 64), strings.Repeat("a", 63)} {
		w := ts.do(t, http.MethodGet, "/screenshots/"+ref, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "ref: %s", ref)
	}
}

func TestHandleGetScreenshot_Missing(t *testing.T) {
	ts := newTestServer(Config{})

	w := ts.do(t, http.MethodGet, "/screenshots/"+strings.Repeat("a", 64), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(Config{})

	w := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestAuthDisabledByDefault(t *testing.T) {
	ts := newTestServer(Config{})

	w := ts.do(t, http.MethodPost, "/scans", `{"url": "https://example.com"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	ts := newTestServer(Config{JWTSecret: "test-secret"})

	w := ts.do(t, http.MethodPost, "/scans", `{"url": "https://example.com"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Health stays open for probes.
	w = ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthAcceptsValidToken(t *testing.T) {
	ts := newTestServer(Config{JWTSecret: "test-secret"})

	token, err := GenerateToken("test-secret", "ci", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(`{"url": "https://example.com"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAuthRejectsTokenSignedWithWrongSecret(t *testing.T) {
	ts := newTestServer(Config{JWTSecret: "test-secret"})

	token, err := GenerateToken("other-secret", "ci", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/scans/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
