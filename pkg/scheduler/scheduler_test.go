package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProbe struct {
	name    string
	cadence time.Duration
	fires   atomic.Int64
	inFlight atomic.Int32
	maxInFlight atomic.Int32
	panicOn int64
}

func (p *countingProbe) Name() string          { return p.name }
func (p *countingProbe) Cadence() time.Duration { return p.cadence }

func (p *countingProbe) Fire(ctx context.Context) error {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.maxInFlight.Load()
		if n <= old || p.maxInFlight.CompareAndSwap(old, n) {
			break
		}
	}
	count := p.fires.Add(1)
	if p.panicOn != 0 && count == p.panicOn {
		panic("boom")
	}
	return nil
}

func TestCadenceBoundAndNonOverlap(t *testing.T) {
	probe := &countingProbe{name: "sample", cadence: 20 * time.Millisecond}
	s := New([]Probe{probe}, WithJitter(false))

	ctx, cancel := context.WithTimeout(context.Background(), 220*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	require.NoError(t, err)

	fires := probe.fires.Load()
	want := int64(220 / 20)
	assert.InDelta(t, want, fires, 1)
	assert.LessOrEqual(t, probe.maxInFlight.Load(), int32(1))
}

func TestPanicRecoveryDoesNotStopScheduler(t *testing.T) {
	probe := &countingProbe{name: "sample", cadence: 10 * time.Millisecond, panicOn: 2}
	var panicked atomic.Bool
	s := New([]Probe{probe}, WithJitter(false), WithHooks(Hooks{
		OnPanic: func(name string, r any) { panicked.Store(true) },
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))
	assert.True(t, panicked.Load())
	assert.Greater(t, probe.fires.Load(), int64(2))
}

func TestShutdownPromptness(t *testing.T) {
	probe := &countingProbe{name: "sample", cadence: 5 * time.Second}
	s := New([]Probe{probe}, WithJitter(false))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	start := time.Now()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not shut down promptly")
	}
}
