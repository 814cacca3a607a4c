// Package api exposes the HTTP interface for the harvester service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/metrics"
)

// Submitter hands a trigger message to the extraction pipeline. API-triggered
// and scheduled runs share this path.
type Submitter interface {
	Submit(ctx context.Context, msg harvest.TriggerMessage) error
}

// Server wires HTTP handlers to the submitter and the extraction store.
type Server struct {
	router     chi.Router
	store      harvest.ExtractionStore
	submitter  Submitter
	clock      harvest.Clock
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store harvest.ExtractionStore,
	submitter Submitter,
	clock harvest.Clock,
	staleAfter time.Duration,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		store:      store,
		submitter:  submitter,
		clock:      clock,
		staleAfter: staleAfter,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/extractions", func(r chi.Router) {
			r.Post("/", s.submitExtraction)
			r.Get("/{extraction_id}", s.getExtraction)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type extractionRequest struct {
	Keywords    []string `json:"keywords"`
	Location    string   `json:"location"`
	DistanceKm  int      `json:"distance_km"`
	Country     string   `json:"country"`
	OffersLimit int      `json:"offers_limit"`
	// Sources names specific sources for a debug run; country becomes
	// optional then.
	Sources []string `json:"sources"`
}

func (r extractionRequest) validate() string {
	if len(r.Keywords) == 0 {
		return "keywords required"
	}
	for _, kw := range r.Keywords {
		if strings.TrimSpace(kw) == "" {
			return "keywords must be non-blank"
		}
	}
	if r.Country == "" && len(r.Sources) == 0 {
		return "country required for full runs"
	}
	if r.DistanceKm < 0 {
		return "distance_km must be >= 0"
	}
	if r.OffersLimit < 0 {
		return "offers_limit must be >= 0"
	}
	return ""
}

func (s *Server) submitExtraction(w http.ResponseWriter, r *http.Request) {
	var req extractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if reason := req.validate(); reason != "" {
		writeError(w, http.StatusBadRequest, reason)
		return
	}

	msg := harvest.TriggerMessage{
		CorrelationID: uuid.NewString(),
		Sources:       req.Sources,
		Parameters: harvest.SearchParameters{
			Keywords:    req.Keywords,
			Location:    req.Location,
			DistanceKm:  req.DistanceKm,
			Country:     req.Country,
			OffersLimit: req.OffersLimit,
		},
	}
	if err := s.submitter.Submit(r.Context(), msg); err != nil {
		s.logger.Error("submit extraction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "submit extraction failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"correlation_id": msg.CorrelationID})
}

type extractionResponse struct {
	harvest.Extraction
	// Stale flags a run that has been in the running state longer than the
	// configured threshold.
	Stale bool `json:"stale"`
}

func (s *Server) getExtraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "extraction_id")
	ex, err := s.store.GetExtraction(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "extraction not found")
		return
	}
	stale := !ex.Status.Terminal() && s.clock.Now().Sub(ex.Created) > s.staleAfter
	writeJSON(w, http.StatusOK, extractionResponse{Extraction: ex, Stale: stale})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
