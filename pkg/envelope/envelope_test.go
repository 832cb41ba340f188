package envelope

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value int `json:"value"`
}

func TestExclusivityInvariant(t *testing.T) {
	meta := Meta{Producer: "sonar", Version: "1", Format: "sample"}

	withData := NewData(DataTypeSample, meta, payload{Value: 1})
	assert.NoError(t, withData.Validate())
	assert.False(t, withData.IsError())

	withErr := NewError[payload](meta, ErrorRecord{Detail: "boom"})
	assert.NoError(t, withErr.Validate())
	assert.True(t, withErr.IsError())

	neither := Envelope[payload]{Meta: meta}
	assert.Error(t, neither.Validate())

	both := Envelope[payload]{Meta: meta, Data: &Data[payload]{Type: DataTypeSample}, Errors: []ErrorRecord{{}}}
	assert.Error(t, both.Validate())
}

func TestXintSentinels(t *testing.T) {
	assert.True(t, XintUnset.Unset())
	assert.True(t, XintInfinite.Infinite())
	assert.False(t, Xint(42).Unset())
	assert.False(t, Xint(42).Infinite())
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)
	ts := Timestamp(now)

	raw, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-05T12:30:00Z"`, string(raw))

	var parsed Timestamp
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.True(t, parsed.Time().Equal(now))
}

func TestEnvelopeJSONOmitsUnsetAlternative(t *testing.T) {
	meta := Meta{Producer: "sonar", Version: "1", Format: "sample"}
	e := NewData(DataTypeSample, meta, payload{Value: 7})

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"errors"`)
	assert.Contains(t, string(raw), `"value":7`)
}
