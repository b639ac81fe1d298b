// Package metrics exposes unit invocation counters and latencies to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation outcomes recorded in the outcome label.
const (
	OutcomeDelivered = "delivered"
	OutcomeUnchanged = "unchanged"
	OutcomeError     = "error"
	OutcomeRejected  = "rejected"
	OutcomeDropped   = "dropped"
)

// Recorder receives one observation per unit invocation.
type Recorder interface {
	Observe(unit, outcome string, elapsed time.Duration)
}

// Metrics holds the collectors registered for the pipeline.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plugin_pipeline",
			Subsystem: "unit",
			Name:      "invocations_total",
			Help:      "Unit invocations by outcome.",
		}, []string{"unit", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plugin_pipeline",
			Subsystem: "unit",
			Name:      "duration_seconds",
			Help:      "Time spent in a single unit invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"unit"}),
	}
}

// Observe implements Recorder.
func (m *Metrics) Observe(unit, outcome string, elapsed time.Duration) {
	m.invocations.WithLabelValues(unit, outcome).Inc()
	m.duration.WithLabelValues(unit).Observe(elapsed.Seconds())
}

// Invocations returns the counter vector, for tests and ad-hoc inspection.
func (m *Metrics) Invocations() *prometheus.CounterVec {
	return m.invocations
}

// Nop discards observations.
type Nop struct{}

// Observe implements Recorder.
func (Nop) Observe(string, string, time.Duration) {}

// Server serves the registry over HTTP.
type Server struct {
	srv    *http.Server
	logger logger.ILogger
}

// NewServer builds a metrics endpoint for gatherer at addr and path.
func NewServer(addr, path string, gatherer prometheus.Gatherer, log logger.ILogger) *Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log.SubLogger("Metrics"),
	}
}

// Handler returns the HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens in the background until Stop is called.
func (s *Server) Start() {
	go func() {
		s.logger.Infof("serving metrics on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("metrics server: %v", err)
		}
	}()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
