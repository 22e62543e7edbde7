// Package server exposes the agent over HTTP: a streaming invoke endpoint,
// a health check, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajay-arram0101/web-search-agent/internal/agent"
	"github.com/ajay-arram0101/web-search-agent/internal/history"
	"github.com/ajay-arram0101/web-search-agent/internal/observability"
	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

// Options configures the HTTP server.
type Options struct {
	Host string
	Port int

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration
}

// Server routes HTTP requests to the agent executor. Runs for the same
// session are serialized; distinct sessions run concurrently.
type Server struct {
	executor   *agent.Executor
	transcript *history.Store
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options

	httpServer *http.Server

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	mu      sync.Mutex
	session *models.Session
}

// New creates a server. The transcript store may be nil to disable
// persistence.
func New(executor *agent.Executor, transcript *history.Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		executor:   executor,
		transcript: transcript,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
		sessions:   make(map[string]*sessionState),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /invoke", s.handleInvoke)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Handler:           s.instrument(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving requests until the context is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// handleInvoke runs the agent for ?content= and streams step markup back as
// plain text. Output is written incrementally; once streaming has started,
// a run failure can only be signaled by closing the connection.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	content := r.URL.Query().Get("content")
	if content == "" {
		http.Error(w, "content query parameter is required", http.StatusBadRequest)
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = "default"
	}

	state := s.sessionFor(sessionID)
	state.mu.Lock()
	defer state.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	bridge := agent.NewBridge()
	ctx := r.Context()

	type invokeResult struct {
		result *agent.Result
		err    error
	}
	resultCh := make(chan invokeResult, 1)
	go func() {
		res, err := s.executor.Invoke(ctx, state.session, content, bridge)
		resultCh <- invokeResult{result: res, err: err}
	}()

	if err := agent.RenderSteps(ctx, bridge, w); err != nil {
		s.logger.Error("streaming failed",
			"session_id", sessionID,
			"error", err)
		// headers are gone; nothing more to send
	}

	res := <-resultCh
	if res.err != nil {
		s.logger.Error("agent run failed",
			"session_id", sessionID,
			"error", res.err)
		return
	}

	if s.transcript != nil {
		if err := s.transcript.Record(ctx, sessionID, content, res.result.Answer, res.result.ToolsUsed); err != nil {
			s.logger.Warn("failed to persist transcript",
				"session_id", sessionID,
				"error", err)
		}
	}
}

func (s *Server) sessionFor(id string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	if !ok {
		state = &sessionState{session: models.NewSession(id)}
		if s.transcript != nil {
			if err := s.transcript.Restore(context.Background(), state.session, 50); err != nil {
				s.logger.Warn("failed to restore session history",
					"session_id", id,
					"error", err)
			}
		}
		s.sessions[id] = state
	}
	return state
}

// instrument wraps the mux with request logging and metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		s.logger.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", duration.Milliseconds())
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, r.URL.Path, fmt.Sprintf("%d", sw.status), duration.Seconds())
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the underlying writer so streamed bytes reach the
// client immediately.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
