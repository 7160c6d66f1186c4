package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/site-auditor/internal/blob"
	"github.com/jonathan/site-auditor/internal/queue"
	"github.com/jonathan/site-auditor/internal/report"
)

// Config holds server configuration.
type Config struct {
	Port      int
	JWTSecret string // empty disables bearer-token auth
}

// Server is the HTTP API: scan intake, report reads, SSE progress, and
// screenshot serving. Scan execution itself happens in the workers.
type Server struct {
	httpServer *http.Server
	store      report.Store
	queue      queue.Queue
	blobs      blob.Store
	validate   *validator.Validate
	jwtSecret  string

	streamInterval time.Duration // SSE poll interval, shortened in tests
}

// New creates a server wired to its stores and queue.
func New(cfg Config, store report.Store, q queue.Queue, blobs blob.Store) *Server {
	s := &Server{
		store:     store,
		queue:     q,
		blobs:     blobs,
		validate:  validator.New(),
		jwtSecret: cfg.JWTSecret,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /scans", s.handleCreateScan)
	mux.HandleFunc("GET /scans/{id}", s.handleGetScan)
	mux.HandleFunc("GET /scans/{id}/stream", s.handleStreamScan)
	mux.HandleFunc("GET /screenshots/{ref}", s.handleGetScreenshot)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(s.withAuth(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // SSE streams stay open for whole scans
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening and blocks until an interrupt triggers graceful
// shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// Handler exposes the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
