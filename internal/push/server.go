// Package push runs the local HTTP callback listener through which the clip
// service can report job completion ahead of the next poll. Completions are
// advisory: unknown or duplicate job ids are acknowledged and ignored.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/logging"
)

// CompletionSink receives externally reported clip completions. A completion
// may be addressed by job id, by shot id, or both; at least one is set. The
// implementation must be safe for concurrent use and must treat unknown or
// already-settled ids as a no-op.
type CompletionSink interface {
	HandlePushCompletion(jobID, shotID, resultURL string)
}

// Server is the callback HTTP listener.
type Server struct {
	bind   string
	sink   CompletionSink
	logger *slog.Logger

	httpServer *http.Server
	addr       string
}

// NewServer builds a callback server bound to the configured address.
func NewServer(bind string, sink CompletionSink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		bind:   bind,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "push"),
	}
}

// Start begins serving callbacks in the background. It returns once the
// listener is bound so callers know the address is live.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/clips/complete", s.handleComplete)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("bind callback listener on %s: %w", s.bind, err)
	}

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("callback listener stopped", logging.Error(serveErr))
		}
	}()

	s.addr = listener.Addr().String()
	s.logger.Info("callback listener started", logging.String("bind", s.addr))
	return nil
}

// Addr returns the bound address, or the configured bind before Start.
func (s *Server) Addr() string {
	if s.addr != "" {
		return s.addr
	}
	return s.bind
}

// Stop shuts the listener down, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type completionRequest struct {
	JobID     string `json:"job_id"`
	ShotID    string `json:"shot_id"`
	ResultURL string `json:"result_url"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		http.Error(w, "invalid completion payload", http.StatusBadRequest)
		return
	}
	jobID := strings.TrimSpace(req.JobID)
	shotID := strings.TrimSpace(req.ShotID)
	resultURL := strings.TrimSpace(req.ResultURL)
	if resultURL == "" || (jobID == "" && shotID == "") {
		http.Error(w, "result_url and one of job_id or shot_id are required", http.StatusBadRequest)
		return
	}

	s.logger.Info("clip completion pushed",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldShotID, shotID),
	)
	if s.sink != nil {
		s.sink.HandlePushCompletion(jobID, shotID, resultURL)
	}
	w.WriteHeader(http.StatusAccepted)
}
