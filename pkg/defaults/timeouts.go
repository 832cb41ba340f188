// Package defaults centralizes the timeout and cadence constants used across
// the agent so a single place documents and tunes them.
package defaults

import "time"

// Probe timeouts. The scheduler does not apply them: a firing runs without a
// deadline until its producer and sink return.
const (
	// ProbeTimeout is a per-firing timeout of 10 seconds.
	ProbeTimeout = 10 * time.Second

	// ClusterProbeTimeout is longer than ProbeTimeout because resolving node
	// membership may involve a resource-manager or Kubernetes API round trip.
	ClusterProbeTimeout = 30 * time.Second
)

// Scheduler constants bound jitter and shutdown behavior.
const (
	// MaxJitterFraction is the largest fraction of a probe's cadence that the
	// scheduler may add as random startup jitter, to avoid every probe on
	// every node firing in lockstep.
	MaxJitterFraction = 0.1

	// DrainTimeout is a 30-second drain window for in-flight firings. The
	// scheduler does not use it; shutdown does not wait on a drain timeout.
	DrainTimeout = 30 * time.Second
)

// Sink timeouts govern delivery and backoff behavior.
const (
	// BrokerPostTimeout is the per-attempt timeout for a broker sink HTTP
	// post.
	BrokerPostTimeout = 10 * time.Second

	// BrokerConnectTimeout is the timeout for establishing the TCP/TLS
	// connection to the broker, separate from the total request timeout.
	BrokerConnectTimeout = 5 * time.Second

	// BrokerInitialBackoff is the first retry delay after a failed post.
	BrokerInitialBackoff = 1 * time.Second

	// BrokerMaxBackoff caps the exponential retry delay at 5 minutes
	// (spec.md §4.6).
	BrokerMaxBackoff = 5 * time.Minute

	// BrokerPendingLimit bounds the number of envelopes queued in memory
	// waiting for a broker that is down; beyond this the sink drops the
	// oldest entries and counts them.
	BrokerPendingLimit = 4096
)

// Server timeouts for the optional health/ready/metrics HTTP surface.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Resource-manager query timeouts.
const (
	// ResourceManagerQueryTimeout is a 15-second bound for a single
	// sacct/scontrol-equivalent query. The sacct Source does not apply it.
	ResourceManagerQueryTimeout = 15 * time.Second
)
