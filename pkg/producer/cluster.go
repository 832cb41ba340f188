package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/nordichpc/sonar/pkg/clusterdata"
	"github.com/nordichpc/sonar/pkg/envelope"
	"github.com/nordichpc/sonar/pkg/platform"
)

// NodeLister returns the cluster's configured node membership: a static
// list (the default) or, with `[cluster] provider=k8s`, the live set of
// v1.Node names (SPEC_FULL.md §4.9).
type NodeLister interface {
	ListNodes(ctx context.Context) ([]string, error)
}

// StaticNodeLister returns a fixed node list read once from configuration.
type StaticNodeLister []string

func (s StaticNodeLister) ListNodes(ctx context.Context) ([]string, error) {
	return []string(s), nil
}

// Resolver is the subset of *net.Resolver the cluster producer needs;
// satisfied directly by *net.Resolver in production.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// PartitionSource optionally supplies the resource manager's partition
// layout (SPEC_FULL.md §4.10); nil disables the partitions field.
type PartitionSource interface {
	Partitions(ctx context.Context) ([]clusterdata.Partition, error)
}

// ClusterProducer assembles one Cluster envelope per firing: node
// membership plus forward+reverse name resolution, per spec.md §4.5.
type ClusterProducer struct {
	Nodes      NodeLister
	Resolver   Resolver
	Partitions PartitionSource
	Meta       envelope.Meta
	Cluster    string
	Clock      platform.Platform
}

// Produce resolves every configured node and returns one data envelope,
// with a trailing errors envelope if partition lookup failed (per-node
// resolution failures are recorded as Reachable=false, not as errors — a
// node being down is expected operational state, not a producer failure).
func (p *ClusterProducer) Produce(ctx context.Context) []clusterdata.Envelope {
	now := p.Clock.Now()

	names, err := p.Nodes.ListNodes(ctx)
	if err != nil {
		return []clusterdata.Envelope{p.errorEnvelope(now, err)}
	}

	nodes := make([]clusterdata.Node, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, p.resolveNode(ctx, name))
	}

	var errs []envelope.ErrorRecord
	var partitions []clusterdata.Partition
	if p.Partitions != nil {
		var perr error
		partitions, perr = p.Partitions.Partitions(ctx)
		if perr != nil {
			errs = append(errs, p.errRecord(now, fmt.Errorf("partitions: %w", perr)))
		}
	}

	attrs := clusterdata.Attributes{Nodes: nodes, Partitions: partitions}
	out := []clusterdata.Envelope{envelope.NewData(envelope.DataTypeCluster, p.Meta, attrs)}
	if len(errs) > 0 {
		out = append(out, envelope.NewError[clusterdata.Attributes](p.Meta, errs...))
	}
	return out
}

// resolveNode performs forward resolution, then reverse-resolves the first
// address back, recording whatever canonicalisation the resolver returns.
// No network probing beyond name resolution is required (spec.md §4.5), so
// an unreachable node is simply recorded as such, never an error entry.
func (p *ClusterProducer) resolveNode(ctx context.Context, name string) clusterdata.Node {
	addrs, err := p.Resolver.LookupHost(ctx, name)
	if err != nil || len(addrs) == 0 {
		return clusterdata.Node{Name: name, Reachable: false}
	}

	node := clusterdata.Node{Name: name, Addresses: addrs, Reachable: true}

	names, err := p.Resolver.LookupAddr(ctx, addrs[0])
	if err == nil && len(names) > 0 {
		node.CanonicalName = names[0]
	}
	return node
}

func (p *ClusterProducer) errorEnvelope(now time.Time, err error) clusterdata.Envelope {
	return envelope.NewError[clusterdata.Attributes](p.Meta, p.errRecord(now, err))
}

func (p *ClusterProducer) errRecord(now time.Time, err error) envelope.ErrorRecord {
	return envelope.ErrorRecord{
		Time:    envelope.Timestamp(now),
		Cluster: p.Cluster,
		Detail:  err.Error(),
	}
}
