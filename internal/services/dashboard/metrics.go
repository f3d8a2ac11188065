package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

// Cycle outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeDataUnavailable = "data_unavailable"
	OutcomeFallback        = "fallback_profile"
	OutcomeError           = "error"
)

// Metrics owns its registry so that several services (and tests) can live in
// one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	cycles            *prometheus.CounterVec
	cycleDuration     prometheus.Histogram
	quality           prometheus.Gauge
	readings          prometheus.Gauge
	alerts            *prometheus.GaugeVec
	sourceFailures    *prometheus.CounterVec
	publishFailures   prometheus.Counter
	cbState           *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_cycles_total",
			Help: "Refresh cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_cycle_duration_seconds",
			Help:    "Duration of a refresh cycle, fetches included.",
			Buckets: prometheus.DefBuckets,
		}),
		quality: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_quality_score",
			Help: "Quality score of the last evaluated window (0..1).",
		}),
		readings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_window_readings",
			Help: "Readings in the last evaluated window.",
		}),
		alerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_alerts",
			Help: "Alerts raised by the last evaluation, by tier.",
		}, []string{"tier"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_source_failures_total",
			Help: "Failed fetches by source.",
		}, []string{"source"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_publish_failures_total",
			Help: "Evaluation events that could not be published.",
		}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.cycles,
		m.cycleDuration,
		m.quality,
		m.readings,
		m.alerts,
		m.sourceFailures,
		m.publishFailures,
		m.cbState,
	)
	for _, t := range []entities.Tier{entities.TierCritical, entities.TierWarning, entities.TierInfo} {
		m.alerts.WithLabelValues(string(t)).Set(0)
	}
	return m
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Cycle(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// Evaluation records the gauges of a stored snapshot.
func (m *Metrics) Evaluation(s *Snapshot) {
	if m == nil || s == nil || s.Result == nil {
		return
	}
	m.quality.Set(s.Result.QualityScore)
	m.readings.Set(float64(len(s.Readings)))
	counts := map[entities.Tier]float64{}
	for _, a := range s.Alerts() {
		counts[a.Tier]++
	}
	for _, t := range []entities.Tier{entities.TierCritical, entities.TierWarning, entities.TierInfo} {
		m.alerts.WithLabelValues(string(t)).Set(counts[t])
	}
}

func (m *Metrics) SourceFailure(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) PublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// SetCircuitBreakerState takes the gobreaker state name.
func (m *Metrics) SetCircuitBreakerState(target, state string) {
	if m == nil {
		return
	}
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.cbState.WithLabelValues(target).Set(v)
}
