package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the classify and SOS pipeline behind the API.
type Service interface {
	Classify(ctx context.Context, req pipeline.ClassifyRequest) (pipeline.Assessment, error)
	TriggerSOS(ctx context.Context, req pipeline.SOSRequest) (pipeline.SOSResult, error)
	CheckReadiness(ctx context.Context) error
}

const (
	readTimeout  = 10 * time.Second
	maxBodyBytes = 64 << 10
	// requestSlack covers geocoding, classification and the audit publish
	// around the dispatch itself.
	requestSlack = 30 * time.Second
)

// WriteTimeoutFor sizes the response deadline so a request carrying the most
// recipients still gets its report when each recipient takes perRecipient.
func WriteTimeoutFor(perRecipient time.Duration) time.Duration {
	return time.Duration(maxRecipients)*perRecipient + requestSlack
}

// Server exposes the classify and SOS endpoints plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	svc        Service
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/classify, /v1/sos, /healthz, /readyz, and /metrics routes.
// A writeTimeout below WriteTimeoutFor(0) is raised to it.
func NewServer(addr string, svc Service, writeTimeout time.Duration, logger *slog.Logger) *Server {
	writeTimeout = max(writeTimeout, WriteTimeoutFor(0))

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("POST /v1/classify", s.handleClassify)
	mux.HandleFunc("POST /v1/sos", s.handleSOS)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// WriteTimeout is the longest a single request may run.
func (s *Server) WriteTimeout() time.Duration {
	return s.httpServer.WriteTimeout
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !s.decode(w, r, &req) {
		return
	}

	a, err := s.svc.Classify(r.Context(), req.toPipeline())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newClassifyResponse(a))
}

func (s *Server) handleSOS(w http.ResponseWriter, r *http.Request) {
	var req sosRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Recipients) > maxRecipients {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "too many recipients"})
		return
	}

	res, err := s.svc.TriggerSOS(r.Context(), pipeline.SOSRequest{
		ClassifyRequest: req.toPipeline(),
		Recipients:      req.Recipients,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newSOSResponse(res))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps pipeline errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *pipeline.ValidationError
	switch {
	case errors.As(err, &ve):
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error()})
	case errors.Is(err, domain.ErrClassificationUnavailable):
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: domain.ErrClassificationUnavailable.Error()})
	case errors.Is(err, domain.ErrNoValidRecipients):
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: domain.ErrNoValidRecipients.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "request cancelled"})
	default:
		s.logger.Error("request failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
