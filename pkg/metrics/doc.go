// Package metrics exposes the daemon's node-local Prometheus counters and
// gauges: probe firings, firing duration, sink delivery outcomes, broker
// backoff retries, and accumulator size. It carries no cluster-wide
// aggregation (that stays out of scope for a host agent); it only describes
// what a single daemon instance is doing, for an operator scraping it or a
// node-level Grafana panel.
//
// The probe wrapper and daemon bootstrap in pkg/cli call these functions; the
// metrics are served over HTTP only when the daemon is configured with a
// metrics-address (see pkg/server).
package metrics
