package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probeFiringsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonar_probe_firings_total",
			Help: "Total number of probe firings, by probe and outcome",
		},
		[]string{"probe", "outcome"},
	)

	probeFiringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sonar_probe_firing_duration_seconds",
			Help:    "Duration of a single probe firing",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"probe"},
	)

	sinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonar_sink_writes_total",
			Help: "Total number of sink writes, by sink kind and outcome",
		},
		[]string{"sink", "outcome"},
	)

	sinkBackoffRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonar_sink_backoff_retries_total",
			Help: "Total number of retry attempts made by a backing-off sink",
		},
		[]string{"sink"},
	)

	sinkDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonar_sink_dropped_total",
			Help: "Total number of records dropped by a sink's pending queue overflowing",
		},
		[]string{"sink"},
	)

	accumulatorSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sonar_sample_accumulator_size",
			Help: "Number of process keys currently tracked by the sample producer's accumulator",
		},
	)
)

// Outcome labels used across the probe and sink counters.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeDropped = "dropped"
)

// ObserveProbeFiring records a probe firing's outcome and duration. probe is
// the probe name (sample, sysinfo, jobs, cluster).
func ObserveProbeFiring(probe string, outcome string, duration time.Duration) {
	probeFiringsTotal.WithLabelValues(probe, outcome).Inc()
	probeFiringDuration.WithLabelValues(probe).Observe(duration.Seconds())
}

// ObserveSinkWrite records a sink write outcome. sink is the sink kind
// (directory, stdio, broker).
func ObserveSinkWrite(sink string, outcome string) {
	sinkWritesTotal.WithLabelValues(sink, outcome).Inc()
}

// ObserveSinkBackoffRetry increments the retry counter for sink.
func ObserveSinkBackoffRetry(sink string) {
	sinkBackoffRetriesTotal.WithLabelValues(sink).Inc()
}

// AddSinkDropped adds n to the dropped-record counter for sink. Used by
// pkg/cli's probe wrapper to fold a broker sink's DrainDropped() count into
// metrics each firing.
func AddSinkDropped(sink string, n int) {
	if n <= 0 {
		return
	}
	sinkDroppedTotal.WithLabelValues(sink).Add(float64(n))
}

// SetAccumulatorSize reports the sample producer's current accumulator size.
func SetAccumulatorSize(n int) {
	accumulatorSize.Set(float64(n))
}
