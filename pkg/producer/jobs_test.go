package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobSource struct {
	records []RawJobRecord
	err     error
}

func (f *fakeJobSource) Query(ctx context.Context, since, until time.Time) ([]RawJobRecord, error) {
	return f.records, f.err
}

func TestJobsProducerParsesValidRecords(t *testing.T) {
	fp := newFakePlatform()
	fp.now = time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	source := &fakeJobSource{records: []RawJobRecord{
		{"JobID": "4242", "User": "alice", "State": "COMPLETED", "Submit": "2026-07-31T10:00:00", "Start": "2026-07-31T10:01:00", "End": "2026-07-31T11:00:00", "Timelimit": "UNLIMITED"},
	}}

	prod := &JobsProducer{Source: source, Window: time.Hour, Meta: testMeta(), Cluster: "cl", Clock: fp}
	envs := prod.Produce(context.Background())

	require.Len(t, envs, 1)
	require.False(t, envs[0].IsError())
	require.Len(t, envs[0].Data.Attributes.Jobs, 1)
	job := envs[0].Data.Attributes.Jobs[0]
	assert.Equal(t, int64(4242), job.JobID)
	assert.True(t, job.TimeLimit.Infinite())
}

func TestJobsProducerIsolatesPerRecordParseFailures(t *testing.T) {
	fp := newFakePlatform()
	fp.now = time.Unix(2000, 0)
	source := &fakeJobSource{records: []RawJobRecord{
		{"JobID": "1", "Submit": "2026-07-31T10:00:00"},
		{"JobID": "", "Submit": "2026-07-31T10:00:00"}, // missing JobID: fails to parse
		{"JobID": "3", "Submit": "2026-07-31T10:00:00"},
	}}

	prod := &JobsProducer{Source: source, Window: time.Hour, Meta: testMeta(), Cluster: "cl", Clock: fp}
	envs := prod.Produce(context.Background())

	require.Len(t, envs, 2)
	require.False(t, envs[0].IsError())
	assert.Len(t, envs[0].Data.Attributes.Jobs, 2)
	require.True(t, envs[1].IsError())
	assert.Len(t, envs[1].Errors, 1)
}

func TestJobsProducerSourceErrorProducesErrorEnvelope(t *testing.T) {
	fp := newFakePlatform()
	fp.now = time.Unix(2000, 0)
	source := &fakeJobSource{err: errors.New("sacct: connection refused")}

	prod := &JobsProducer{Source: source, Window: time.Hour, Meta: testMeta(), Cluster: "cl", Clock: fp}
	envs := prod.Produce(context.Background())

	require.Len(t, envs, 1)
	assert.True(t, envs[0].IsError())
}
