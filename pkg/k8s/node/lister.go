package node

import (
	"context"
	"sort"
)

// Lister adapts this package's node listing onto the plain node-name slice
// the cluster producer's NodeLister interface expects (structurally
// satisfied — this package does not import pkg/producer to avoid a
// dependency cycle).
type Lister struct {
	Options ListOptions
}

// NewLister returns a Lister over the given options.
func NewLister(opts ListOptions) *Lister {
	return &Lister{Options: opts}
}

// ListNodes returns every cluster node's name, sorted, satisfying
// producer.NodeLister.
func (l *Lister) ListNodes(ctx context.Context) ([]string, error) {
	nodes, err := List(ctx, l.Options)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	sort.Strings(names)
	return names, nil
}
