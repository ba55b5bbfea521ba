// Package observability holds the Prometheus collector and the
// OpenTelemetry tracer setup.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fieldrisk/api/analysis"
	"fieldrisk/api/roi"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes on fieldrisk_analysis_runs_total.
const (
	RunSucceeded  = "succeeded"
	RunFailed     = "failed"
	RunInvalid    = "validation_error"
	RunInProgress = "in_progress"
	RunRejected   = "rejected"
)

// Collector bundles the dashboard metrics. It satisfies
// riskclient.CallObserver and analysis.RunObserver.
type Collector struct {
	gatherer prometheus.Gatherer

	Runs            *prometheus.CounterVec
	RemoteCalls     *prometheus.HistogramVec
	SelectionEvents *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDurations   *prometheus.HistogramVec
	Busy            prometheus.Gauge
	Sessions        prometheus.Gauge
}

// NewCollector registers the metrics against reg, or the default registry
// when reg is nil. Registering twice returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldrisk_analysis_runs_total",
		Help: "Analysis runs by outcome, including calls refused before starting.",
	}, []string{"outcome"}), "fieldrisk_analysis_runs_total")
	if err != nil {
		return nil, err
	}

	calls, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldrisk_remote_call_duration_seconds",
		Help:    "Latency of calls to the analysis service.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	}, []string{"call", "outcome"}), "fieldrisk_remote_call_duration_seconds")
	if err != nil {
		return nil, err
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldrisk_selection_events_total",
		Help: "Selection events applied to session state machines.",
	}, []string{"event"}), "fieldrisk_selection_events_total")
	if err != nil {
		return nil, err
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldrisk_http_requests_total",
		Help: "Dashboard HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"}), "fieldrisk_http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldrisk_http_request_duration_seconds",
		Help:    "Dashboard HTTP latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"}), "fieldrisk_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	busy, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldrisk_analysis_busy",
		Help: "Analysis runs currently in flight.",
	}), "fieldrisk_analysis_busy")
	if err != nil {
		return nil, err
	}

	sessions, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldrisk_sessions_active",
		Help: "Live dashboard sessions.",
	}), "fieldrisk_sessions_active")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Runs:            runs,
		RemoteCalls:     calls,
		SelectionEvents: events,
		HTTPRequests:    httpRequests,
		HTTPDurations:   httpDurations,
		Busy:            busy,
		Sessions:        sessions,
	}, nil
}

// ObserveRemoteCall records one analysis-service call.
func (c *Collector) ObserveRemoteCall(call, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.RemoteCalls.WithLabelValues(call, outcome).Observe(elapsed.Seconds())
}

// SelectionEvent counts an applied selection event.
func (c *Collector) SelectionEvent(name string) {
	if c == nil {
		return
	}
	c.SelectionEvents.WithLabelValues(name).Inc()
}

// SetBusy tracks the loading indicator across all sessions.
func (c *Collector) SetBusy(on bool) {
	if c == nil {
		return
	}
	if on {
		c.Busy.Inc()
	} else {
		c.Busy.Dec()
	}
}

// SetSessions sets the live session gauge.
func (c *Collector) SetSessions(n int) {
	if c == nil {
		return
	}
	c.Sessions.Set(float64(n))
}

func (c *Collector) RunStarted(context.Context, analysis.Run) {}

func (c *Collector) RunFinished(_ context.Context, r analysis.Run) {
	if c == nil {
		return
	}
	outcome := RunSucceeded
	if r.State == analysis.Failed {
		outcome = RunFailed
	}
	c.Runs.WithLabelValues(outcome).Inc()
}

func (c *Collector) RunRejected(_ context.Context, err error) {
	if c == nil {
		return
	}
	outcome := RunRejected
	switch {
	case roi.IsValidation(err):
		outcome = RunInvalid
	case errors.Is(err, analysis.ErrRunInProgress):
		outcome = RunInProgress
	}
	c.Runs.WithLabelValues(outcome).Inc()
}

// Middleware counts requests by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if c == nil {
			return
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		c.HTTPDurations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
