// Package sink implements the three delivery targets a probe's output can be
// routed to — a local directory, standard output, or a remote broker — behind
// one small interface so the scheduler never depends on which is configured
// (spec.md §4.6). Producers never import this package directly; only the
// probe wrapper that owns a producer+sink pair does.
package sink
