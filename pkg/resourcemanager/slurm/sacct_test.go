package slurm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryParsesSacctOutputSkippingStepLines(t *testing.T) {
	s := &Source{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(
			"123|0|0|0|alice|acct1|COMPLETED|2026-07-31T10:00:00|2026-07-31T10:00:01|2026-07-31T10:05:00|debug|node01|4|16777216|0|60|0\n" +
				"123.batch|||||||||||||||\n" +
				"124|0|0|0|bob|acct2|RUNNING|2026-07-31T10:01:00|2026-07-31T10:01:01||debug|node02|2|8388608|1|UNLIMITED|0\n",
		), nil
	}}

	records, err := s.Query(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "123", records[0]["JobID"])
	assert.Equal(t, "alice", records[0]["User"])
	assert.Equal(t, "COMPLETED", records[0]["State"])

	assert.Equal(t, "124", records[1]["JobID"])
	assert.Equal(t, "RUNNING", records[1]["State"])
	assert.Equal(t, "UNLIMITED", records[1]["Timelimit"])
}

func TestQueryPropagatesRunError(t *testing.T) {
	s := &Source{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, assert.AnError
	}}

	_, err := s.Query(context.Background(), time.Now(), time.Now())
	assert.Error(t, err)
}

func TestQueryIgnoresMalformedLines(t *testing.T) {
	s := &Source{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("too|few|columns\n"), nil
	}}

	records, err := s.Query(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)
}
