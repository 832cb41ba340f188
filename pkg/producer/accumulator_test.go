package producer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccumulatorObserveDelta(t *testing.T) {
	a := NewAccumulator()
	key := AccumulatorKey{PID: 100, StartTime: time.Unix(1000, 0)}

	t0 := time.Unix(2000, 0)
	_, hasPrev := a.observe(key, t0, 500)
	assert.False(t, hasPrev)

	t1 := t0.Add(10 * time.Second)
	prev, hasPrev := a.observe(key, t1, 1500)
	assert.True(t, hasPrev)
	assert.Equal(t, uint64(500), prev.Ticks)
	assert.Equal(t, 1, a.Size())
}

func TestAccumulatorNonMonotonicClockTreatedAsAbsent(t *testing.T) {
	a := NewAccumulator()
	key := AccumulatorKey{PID: 100, StartTime: time.Unix(1000, 0)}

	t0 := time.Unix(2000, 0)
	a.observe(key, t0, 500)

	earlier := t0.Add(-5 * time.Second)
	_, hasPrev := a.observe(key, earlier, 600)
	assert.False(t, hasPrev)
}

func TestAccumulatorPruneRetainsRecentlySeen(t *testing.T) {
	a := NewAccumulator()
	gone := AccumulatorKey{PID: 1, StartTime: time.Unix(0, 0)}
	kept := AccumulatorKey{PID: 2, StartTime: time.Unix(0, 0)}

	now := time.Unix(1000, 0)
	a.observe(gone, now, 1)
	a.observe(kept, now, 1)

	later := now.Add(30 * time.Second)
	present := map[AccumulatorKey]bool{kept: true}
	a.prune(later, present, 20*time.Second)

	assert.Equal(t, 1, a.Size())
}

func TestAccumulatorPruneKeepsWithinRetention(t *testing.T) {
	a := NewAccumulator()
	key := AccumulatorKey{PID: 1, StartTime: time.Unix(0, 0)}

	now := time.Unix(1000, 0)
	a.observe(key, now, 1)

	soon := now.Add(5 * time.Second)
	a.prune(soon, map[AccumulatorKey]bool{}, 20*time.Second)

	assert.Equal(t, 1, a.Size())
}
