// Package prometheus exposes the platform's operational metrics on a private
// registry so tests never trip over duplicate registrations in the global one.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig holds collector tunables.
type MetricsConfig struct {
	Namespace            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
}

var (
	runDurationBuckets  = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	httpDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// Metrics holds every metric of the classification service.  It satisfies
// the engine's MetricsRecorder interface and also carries the HTTP-layer
// vectors used by the gin middleware.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal        prometheus.Counter
	runDuration      prometheus.Histogram
	runSurvivors     prometheus.Histogram
	eliminations     *prometheus.CounterVec
	consultations    *prometheus.CounterVec
	challenges       prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpActive       prometheus.Gauge
	ruleCacheLookups *prometheus.CounterVec
}

// NewMetrics builds and registers all metrics.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "hscode"
	}
	reg := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	if cfg.EnableGoMetrics {
		reg.MustRegister(prometheus.NewGoCollector())
	}

	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "classification_runs_total",
			Help:      "Completed elimination runs.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "classification_run_duration_seconds",
			Help:      "Wall-clock duration of one elimination run.",
			Buckets:   runDurationBuckets,
		}),
		runSurvivors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "classification_survivors",
			Help:      "Surviving candidates per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		eliminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "classification_eliminations_total",
			Help:      "Candidates eliminated, by pipeline stage.",
		}, []string{"stage"}),
		consultations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "ai_consultations_total",
			Help:      "AI fallback consultations, by outcome.",
		}, []string{"outcome"}),
		challenges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "ai_challenges_total",
			Help:      "Devil's-advocate challenges generated for surviving candidates.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "path", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration.",
			Buckets:   httpDurationBuckets,
		}, []string{"method", "path"}),
		httpActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "http_active_requests",
			Help:      "In-flight HTTP requests.",
		}),
		ruleCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "rule_cache_lookups_total",
			Help:      "Rule cache lookups, by result (hit|miss).",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.runsTotal, m.runDuration, m.runSurvivors,
		m.eliminations, m.consultations, m.challenges,
		m.httpRequests, m.httpDuration, m.httpActive,
		m.ruleCacheLookups,
	)
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Engine instrumentation
// ─────────────────────────────────────────────────────────────────────────────

// ObserveRun records one finished elimination run.
func (m *Metrics) ObserveRun(d time.Duration, survivors int) {
	m.runsTotal.Inc()
	m.runDuration.Observe(d.Seconds())
	m.runSurvivors.Observe(float64(survivors))
}

// AddEliminations records eliminations attributed to a pipeline stage.
func (m *Metrics) AddEliminations(stage string, n int) {
	if n <= 0 {
		return
	}
	m.eliminations.WithLabelValues(stage).Add(float64(n))
}

// IncConsultations records one AI consultation outcome.
func (m *Metrics) IncConsultations(outcome string) {
	m.consultations.WithLabelValues(outcome).Inc()
}

// AddChallenges records devil's-advocate challenges produced in one run.
func (m *Metrics) AddChallenges(n int) {
	if n > 0 {
		m.challenges.Add(float64(n))
	}
}

// IncRuleCacheLookup records one rule cache hit or miss.
func (m *Metrics) IncRuleCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ruleCacheLookups.WithLabelValues(result).Inc()
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP instrumentation
// ─────────────────────────────────────────────────────────────────────────────

// ObserveHTTPRequest records one served request.  The path should be the
// route template, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// TrackInFlight brackets one in-flight request; call the returned func when
// the request finishes.
func (m *Metrics) TrackInFlight() func() {
	m.httpActive.Inc()
	return m.httpActive.Dec
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry exposes the private registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
