package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveProbeFiringIncrementsCounterAndHistogram(t *testing.T) {
	before := testutil.ToFloat64(probeFiringsTotal.WithLabelValues("sample", OutcomeSuccess))

	ObserveProbeFiring("sample", OutcomeSuccess, 5*time.Millisecond)

	after := testutil.ToFloat64(probeFiringsTotal.WithLabelValues("sample", OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestObserveSinkWriteLabelsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(sinkWritesTotal.WithLabelValues("broker", OutcomeError))

	ObserveSinkWrite("broker", OutcomeError)

	after := testutil.ToFloat64(sinkWritesTotal.WithLabelValues("broker", OutcomeError))
	assert.Equal(t, before+1, after)
}

func TestAddSinkDroppedIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(sinkDroppedTotal.WithLabelValues("broker"))

	AddSinkDropped("broker", 0)
	AddSinkDropped("broker", -3)

	after := testutil.ToFloat64(sinkDroppedTotal.WithLabelValues("broker"))
	assert.Equal(t, before, after)

	AddSinkDropped("broker", 2)
	assert.Equal(t, before+2, testutil.ToFloat64(sinkDroppedTotal.WithLabelValues("broker")))
}

func TestSetAccumulatorSizeReportsGauge(t *testing.T) {
	SetAccumulatorSize(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(accumulatorSize))
}
