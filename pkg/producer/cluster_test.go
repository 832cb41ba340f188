package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordichpc/sonar/pkg/clusterdata"
)

type fakeResolver struct {
	hosts map[string][]string
	addrs map[string][]string
}

func (f *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	addrs, ok := f.hosts[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func (f *fakeResolver) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	names, ok := f.addrs[addr]
	if !ok {
		return nil, errors.New("no ptr record")
	}
	return names, nil
}

func TestClusterProducerResolvesReachableAndUnreachable(t *testing.T) {
	fp := newFakePlatform()
	fp.now = time.Unix(1000, 0)

	resolver := &fakeResolver{
		hosts: map[string][]string{"node01": {"10.0.0.1"}},
		addrs: map[string][]string{"10.0.0.1": {"node01.cluster.example."}},
	}

	prod := &ClusterProducer{
		Nodes:    StaticNodeLister{"node01", "node02"},
		Resolver: resolver,
		Meta:     testMeta(),
		Cluster:  "cl",
		Clock:    fp,
	}
	envs := prod.Produce(context.Background())

	require.Len(t, envs, 1)
	require.False(t, envs[0].IsError())
	nodes := envs[0].Data.Attributes.Nodes
	require.Len(t, nodes, 2)

	assert.Equal(t, "node01", nodes[0].Name)
	assert.True(t, nodes[0].Reachable)
	assert.Equal(t, "node01.cluster.example.", nodes[0].CanonicalName)

	assert.Equal(t, "node02", nodes[1].Name)
	assert.False(t, nodes[1].Reachable)
}

type fakePartitionSource struct {
	partitions []clusterdata.Partition
	err        error
}

func (f *fakePartitionSource) Partitions(ctx context.Context) ([]clusterdata.Partition, error) {
	return f.partitions, f.err
}

func TestClusterProducerPartitionFailureProducesErrorEnvelope(t *testing.T) {
	fp := newFakePlatform()
	fp.now = time.Unix(1000, 0)

	prod := &ClusterProducer{
		Nodes:      StaticNodeLister{},
		Resolver:   &fakeResolver{hosts: map[string][]string{}, addrs: map[string][]string{}},
		Partitions: &fakePartitionSource{err: errors.New("scontrol: timeout")},
		Meta:       testMeta(),
		Cluster:    "cl",
		Clock:      fp,
	}
	envs := prod.Produce(context.Background())

	require.Len(t, envs, 2)
	require.False(t, envs[0].IsError())
	require.True(t, envs[1].IsError())
}
