package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/drift"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/logger"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/metrics"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/pipeline"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/store"
)

var tracer = otel.Tracer("api")

type Deps struct {
	Log       *logger.Logger
	Store     *store.Store
	Pipeline  *pipeline.Pipeline
	AuthToken string
}

type Config struct{ Addr string }

type Server struct {
	d Deps
	c Config
}

func NewServer(d Deps, c Config) *Server { return &Server{d: d, c: c} }

// Handler builds the route tree. Split from Run so tests can drive the
// API without a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { metrics.Handler().ServeHTTP(w, r) })
	r.Get("/v1/anomalies", s.handleAnomalies)
	r.Get("/v1/points", s.handlePoints)
	r.Post("/v1/points", s.handleSubmit)
	r.Get("/v1/detectors", s.handleDetectors)
	r.Post("/v1/drift", s.handleDrift)
	return r
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.c.Addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.d.Log.Info().Str("addr", s.c.Addr).Msg("api listening")

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) auth(r *http.Request) bool {
	if s.d.AuthToken == "" {
		return true
	}
	got := r.Header.Get("Authorization")
	return strings.HasPrefix(got, "Bearer ") && strings.TrimPrefix(got, "Bearer ") == s.d.AuthToken
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "GET /v1/anomalies")
	defer span.End()

	arr, err := s.d.Store.ListDetections(limitParam(r, 200))
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, arr)
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "GET /v1/points")
	defer span.End()

	arr, err := s.d.Store.ListSamples(limitParam(r, 500))
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, arr)
}

type submitPayload struct {
	Value float64 `json:"value"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "POST /v1/points")
	defer span.End()

	if !s.auth(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var p submitPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Float64("value", p.Value))

	if !s.d.Pipeline.Submit(p.Value) {
		http.Error(w, "pipeline saturated", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDetectors(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "GET /v1/detectors")
	defer span.End()

	writeJSON(w, s.d.Pipeline.Detectors())
}

type driftPayload struct {
	Reference []float64 `json:"reference"`
	Actual    []float64 `json:"actual"`
	Bins      int       `json:"bins"`
}

type driftResponse struct {
	drift.Result
	Drifted bool `json:"drifted"`
}

func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "POST /v1/drift")
	defer span.End()

	if !s.auth(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var p driftPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	m, err := drift.New(p.Reference, p.Bins)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := m.Check(p.Actual)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	drifted := res.Drifted()
	metrics.DriftChecks.WithLabelValues(strconv.FormatBool(drifted)).Inc()
	if drifted {
		s.d.Log.Warn().Float64("psi", res.PSI).Float64("kld", res.KLD).Msg("concept drift detected")
	}
	writeJSON(w, driftResponse{Result: res, Drifted: drifted})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
