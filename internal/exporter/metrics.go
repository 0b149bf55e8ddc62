package exporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Poll cycle results.
const (
	ResultOK         = "ok"
	ResultFetchError = "fetch_error"
	ResultParseError = "parse_error"
	ResultError      = "error"
)

// Metrics describes the exporter itself. All methods are safe on a nil receiver.
type Metrics struct {
	PollCycles       *prometheus.CounterVec
	PollDuration     prometheus.Histogram
	LastSuccess      prometheus.Gauge
	PublishedSamples prometheus.Gauge
	DroppedModules   prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	PublishErrors    prometheus.Counter
	GRPCRequests     *prometheus.CounterVec
	GRPCLatency      *prometheus.HistogramVec
}

// NewMetrics creates and registers the exporter metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smard_exporter_poll_cycles_total",
				Help: "Number of poll cycles by result",
			},
			[]string{"result"},
		),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smard_exporter_poll_duration_seconds",
			Help:    "Duration of poll cycles",
			Buckets: prometheus.DefBuckets,
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smard_exporter_last_success_timestamp_seconds",
			Help: "Unix time of the last published snapshot",
		}),
		PublishedSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smard_exporter_published_samples",
			Help: "Number of samples in the current snapshot",
		}),
		DroppedModules: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smard_exporter_dropped_modules_total",
			Help: "Modules dropped because a sub-value was missing",
		}),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smard_exporter_cache_lookups_total",
				Help: "Feed cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smard_exporter_publish_errors_total",
			Help: "Failed snapshot fan-out attempts",
		}),
		GRPCRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smard_exporter_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method", "code"},
		),
		GRPCLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smard_exporter_grpc_request_duration_seconds",
				Help:    "Time spent processing gRPC requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.PollCycles, m.PollDuration, m.LastSuccess, m.PublishedSamples,
		m.DroppedModules, m.CacheLookups, m.PublishErrors, m.GRPCRequests, m.GRPCLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheLookups.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveCycle records the outcome and duration of one poll cycle.
func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.PollCycles.WithLabelValues(result).Inc()
	m.PollDuration.Observe(d.Seconds())
}

// RecordPublish records a successfully published snapshot.
func (m *Metrics) RecordPublish(at time.Time, samples, dropped int) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(float64(at.Unix()))
	m.PublishedSamples.Set(float64(samples))
	m.DroppedModules.Add(float64(dropped))
}

func (m *Metrics) PublishFailed() {
	if m != nil {
		m.PublishErrors.Inc()
	}
}
