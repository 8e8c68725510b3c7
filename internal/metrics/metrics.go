// Package metrics exposes Prometheus instrumentation for the request pipeline.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"songline/internal/queue"
)

const namespace = "songline"

// Outcome labels for submissions.
const (
	OutcomeAccepted = "accepted"
	OutcomeDeclined = "declined"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "unresolved"
)

// Recorder holds every metric. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	submissions         *prometheus.CounterVec
	queueLength         prometheus.Gauge
	activePresent       prometheus.Gauge
	matchScore          prometheus.Histogram
	matchMisses         prometheus.Counter
	persistenceFailures *prometheus.CounterVec
}

// New builds a Recorder on a dedicated registry, including Go runtime and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Song request submissions by outcome.",
		}, []string{"outcome"}),
		queueLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Number of queued requests.",
		}),
		activePresent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_present",
			Help:      "1 when a request occupies the active slot.",
		}),
		matchScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_score",
			Help:      "Score of selected catalog matches.",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		}),
		matchMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_misses_total",
			Help:      "Accepted requests with no catalog match.",
		}),
		persistenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Store writes that failed after the in-memory change was applied.",
		}, []string{"op"}),
	}
}

// Registry exposes the underlying registry for extra collectors and tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Submission counts one submission outcome.
func (r *Recorder) Submission(outcome string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(outcome).Inc()
}

// QueueState records the queue length and active slot occupancy.
func (r *Recorder) QueueState(length int, active bool) {
	if r == nil {
		return
	}
	r.queueLength.Set(float64(length))
	if active {
		r.activePresent.Set(1)
	} else {
		r.activePresent.Set(0)
	}
}

// Match records a match attempt; a nil match counts as a miss.
func (r *Recorder) Match(match *queue.TrackMatch) {
	if r == nil {
		return
	}
	if match == nil {
		r.matchMisses.Inc()
		return
	}
	r.matchScore.Observe(match.Score)
}

// PersistenceFailure counts a failed store write for op.
func (r *Recorder) PersistenceFailure(op string) {
	if r == nil {
		return
	}
	r.persistenceFailures.WithLabelValues(op).Inc()
}

// CountSource reports persisted request totals by status.
type CountSource interface {
	Counts(ctx context.Context) (map[queue.Status]int, error)
}

var requestsDesc = prometheus.NewDesc(
	namespace+"_requests",
	"Persisted requests by status.",
	[]string{"status"},
	nil,
)

// StoreCollector reads persisted request counts on each scrape.
type StoreCollector struct {
	source  CountSource
	logger  *slog.Logger
	timeout time.Duration
}

// NewStoreCollector builds a collector over source.
func NewStoreCollector(source CountSource, logger *slog.Logger) *StoreCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreCollector{source: source, logger: logger, timeout: 2 * time.Second}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	counts, err := c.source.Counts(ctx)
	if err != nil {
		c.logger.Error("failed to collect request counts", "error", err)
		return
	}
	for _, status := range []queue.Status{queue.StatusQueued, queue.StatusActive, queue.StatusArchived, queue.StatusRemoved} {
		ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.GaugeValue, float64(counts[status]), string(status))
	}
}
