package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestListerListNodesReturnsSortedNames(t *testing.T) {
	client := fake.NewSimpleClientset(
		&v1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node02"}},
		&v1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node01"}},
	)

	l := NewLister(ListOptions{Client: client})

	names, err := l.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"node01", "node02"}, names)
}

func TestListerListNodesEmptyCluster(t *testing.T) {
	client := fake.NewSimpleClientset()
	l := NewLister(ListOptions{Client: client})

	names, err := l.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}
