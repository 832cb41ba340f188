package slurm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordichpc/sonar/pkg/clusterdata"
)

func TestPartitionsParsesSinfoOutputAndStripsDefaultMarker(t *testing.T) {
	s := &PartitionSource{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("batch*,node[001-004]\ngpu,node[005-006]\n"), nil
	}}

	parts, err := s.Partitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []clusterdata.Partition{
		{Name: "batch", Nodes: "node[001-004]"},
		{Name: "gpu", Nodes: "node[005-006]"},
	}, parts)
}

func TestPartitionsSkipsMalformedLines(t *testing.T) {
	s := &PartitionSource{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("malformed-line-no-comma\nbatch,node[001-004]\n"), nil
	}}

	parts, err := s.Partitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []clusterdata.Partition{{Name: "batch", Nodes: "node[001-004]"}}, parts)
}
