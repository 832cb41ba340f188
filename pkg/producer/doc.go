// Package producer assembles envelopes from live system state: one
// Produce call per probe firing, returning the data envelope plus any
// error envelopes that per-record or per-subsystem failures generated.
// Producers are pure functions over the platform and accelerator
// abstractions (plus, for the sample producer, the accumulator they own
// across firings); they never touch a sink.
package producer
