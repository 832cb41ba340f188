package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordichpc/sonar/pkg/config"
	"github.com/nordichpc/sonar/pkg/producer"
)

func TestClusterNodeListerStaticByDefault(t *testing.T) {
	lister := clusterNodeLister(config.ClusterConfig{Nodes: []string{"node01", "node02"}})

	names, err := lister.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"node01", "node02"}, names)
	_, ok := lister.(producer.StaticNodeLister)
	assert.True(t, ok, "expected a StaticNodeLister when provider is unset")
}

func TestClusterNodeListerK8sWhenProviderSet(t *testing.T) {
	lister := clusterNodeLister(config.ClusterConfig{Provider: "k8s"})
	_, ok := lister.(producer.StaticNodeLister)
	assert.False(t, ok, "expected a non-static lister when provider=k8s")
}

func TestBuildMetricsServerRejectsMalformedAddress(t *testing.T) {
	_, err := buildMetricsServer("not-a-valid-address")
	assert.Error(t, err)
}

func TestBuildMetricsServerRejectsNonNumericPort(t *testing.T) {
	_, err := buildMetricsServer("localhost:notaport")
	assert.Error(t, err)
}

func TestBuildMetricsServerAcceptsHostPort(t *testing.T) {
	srv, err := buildMetricsServer("127.0.0.1:9100")
	require.NoError(t, err)
	assert.NotNil(t, srv)
}
