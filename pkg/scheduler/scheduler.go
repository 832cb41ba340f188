// Package scheduler coordinates the probe drivers: one worker goroutine per
// enabled probe, each firing on its own cadence, never overlapping itself,
// with shutdown propagated by context cancellation. Grounded on the
// teacher's errgroup-based server run loop and its documented concurrent-
// collector pattern.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nordichpc/sonar/pkg/defaults"
)

// State is a probe's position in the Idle → Firing → Draining → Idle state
// machine (spec §4.1). Only Idle accepts a new fire.
type State int

const (
	Idle State = iota
	Firing
	Draining
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Firing:
		return "firing"
	case Draining:
		return "draining"
	default:
		return "unknown"
	}
}

// Probe is one data kind's periodic driver: sample, sysinfo, jobs, or
// cluster. Fire is called at most once at a time for a given Probe.
type Probe interface {
	Name() string
	Cadence() time.Duration
	// Fire produces one envelope and hands it to the probe's sink. Errors
	// returned here are logged, recovered from, and do not stop the
	// scheduler — Fire itself is responsible for turning platform/producer
	// failures into error envelopes before this returns.
	Fire(ctx context.Context) error
}

// Hooks lets callers observe firings for metrics without the scheduler
// depending on pkg/metrics directly.
type Hooks struct {
	OnFireStart    func(probe string)
	OnFireComplete func(probe string, duration time.Duration, err error)
	OnPanic        func(probe string, recovered any)
}

// Scheduler runs a fixed set of probes, each on its own goroutine, until its
// context is cancelled.
type Scheduler struct {
	probes      []Probe
	jitter      bool
	hooks       Hooks
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithJitter enables or disables the small per-probe random startup offset
// that avoids every node's probes firing in lockstep. Enabled by default.
func WithJitter(enabled bool) Option {
	return func(s *Scheduler) { s.jitter = enabled }
}

// WithHooks installs firing observability hooks (metrics, logging).
func WithHooks(h Hooks) Option {
	return func(s *Scheduler) { s.hooks = h }
}

// New builds a Scheduler over the given probes.
func New(probes []Probe, opts ...Option) *Scheduler {
	s := &Scheduler{probes: probes, jitter: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts one goroutine per probe and blocks until ctx is cancelled and
// every probe has finished draining, or one probe's goroutine returns a
// non-recovered error (which should not happen — Fire must absorb its own
// failures, per spec §4.1's panic-recovery contract).
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range s.probes {
		p := p
		g.Go(func() error {
			return s.runProbe(gctx, p)
		})
	}

	return g.Wait()
}

func (s *Scheduler) runProbe(ctx context.Context, p Probe) error {
	cadence := p.Cadence()
	if cadence <= 0 {
		return fmt.Errorf("scheduler: probe %s has non-positive cadence %s", p.Name(), cadence)
	}

	if s.jitter {
		offset := time.Duration(rand.Int63n(int64(float64(cadence) * defaults.MaxJitterFraction)))
		if err := sleepCtx(ctx, offset); err != nil {
			return nil
		}
	}

	// state documents where this probe sits in the Idle → Firing → Draining
	// → Idle machine for anyone reading a stack trace or adding tracing
	// later; the non-overlap guarantee itself falls out structurally from
	// this being the probe's only goroutine, not from checking state.
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		if s.hooks.OnFireStart != nil {
			s.hooks.OnFireStart(p.Name())
		}

		err := s.fireWithRecovery(ctx, p) // Firing

		duration := time.Since(start) // Draining: handing off to the sink happens inside Fire
		if s.hooks.OnFireComplete != nil {
			s.hooks.OnFireComplete(p.Name(), duration, err)
		}
		if err != nil {
			slog.Error("probe firing failed", "probe", p.Name(), "error", err)
		}

		// Idle again: not stacked — if the firing overran its cadence, fire
		// again immediately instead of queuing multiple pending firings.
		sleep := cadence - duration
		if sleep < 0 {
			sleep = 0
		}
		if err := sleepCtx(ctx, sleep); err != nil {
			return nil
		}
	}
}

// fireWithRecovery calls p.Fire, converting a panic into an error so one
// probe's bug cannot take down the scheduler or its sibling probes.
func (s *Scheduler) fireWithRecovery(ctx context.Context, p Probe) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if s.hooks.OnPanic != nil {
				s.hooks.OnPanic(p.Name(), r)
			}
			err = fmt.Errorf("scheduler: probe %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Fire(ctx)
}

// sleepCtx blocks for d or until ctx is cancelled, whichever is sooner.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
