package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nordichpc/sonar/pkg/envelope"
	"github.com/nordichpc/sonar/pkg/metrics"
	"github.com/nordichpc/sonar/pkg/sink"
)

// dataProducer is the minimal shape every data-kind producer implements:
// assemble this firing's envelope(s) of attribute type T. SampleProducer,
// SysinfoProducer, JobsProducer, and ClusterProducer each satisfy this
// structurally (their Produce methods return a type-aliased
// []envelope.Envelope[T]).
type dataProducer[T any] interface {
	Produce(ctx context.Context) []envelope.Envelope[T]
}

// probe adapts one producer/sink pair into a scheduler.Probe: marshal every
// envelope to JSON and hand it to the configured sink, recording firing and
// per-write metrics along the way (SPEC_FULL.md §4.9).
type probe[T any] struct {
	name    string
	cadence time.Duration
	kind    sink.Kind
	node    string
	cluster string
	clock   func() time.Time
	produce dataProducer[T]
	dest    sink.Sink
}

func (p *probe[T]) Name() string           { return p.name }
func (p *probe[T]) Cadence() time.Duration { return p.cadence }

// Fire produces the envelope(s) for this firing and writes each to the sink.
// A per-write failure is recorded but does not stop the remaining writes;
// the first error encountered is returned so the scheduler logs it.
func (p *probe[T]) Fire(ctx context.Context) error {
	start := time.Now()
	envelopes := p.produce.Produce(ctx)

	outcome := metrics.OutcomeSuccess
	var firstErr error

	sinkLabel := "unknown"
	switch p.dest.(type) {
	case *sink.Directory:
		sinkLabel = "directory"
	case *sink.Stdio:
		sinkLabel = "stdio"
	case *sink.Broker:
		sinkLabel = "broker"
	}

	for _, env := range envelopes {
		if env.IsError() {
			outcome = metrics.OutcomeError
		}

		payload, err := json.Marshal(env)
		if err != nil {
			outcome = metrics.OutcomeError
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		rec := sink.Record{
			Kind:    p.kind,
			Node:    p.node,
			Cluster: p.cluster,
			Time:    p.clock(),
			Ext:     "json",
			Payload: payload,
		}

		if err := p.dest.Write(ctx, rec); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if sink.IsRetryable(err) {
				metrics.ObserveSinkWrite(sinkLabel, metrics.OutcomeTimeout)
			} else {
				metrics.ObserveSinkWrite(sinkLabel, metrics.OutcomeError)
			}
			outcome = metrics.OutcomeError
			continue
		}
		metrics.ObserveSinkWrite(sinkLabel, metrics.OutcomeSuccess)
	}

	if b, ok := p.dest.(brokerDropCounter); ok {
		metrics.AddSinkDropped(sinkLabel, b.DrainDropped())
	}

	metrics.ObserveProbeFiring(p.name, outcome, time.Since(start))
	return firstErr
}

// brokerDropCounter is the subset of *sink.Broker's API the probe wrapper
// needs to fold dropped-envelope counts into the sink-dropped metric,
// without importing the concrete type everywhere a probe is built.
type brokerDropCounter interface {
	DrainDropped() int
}
