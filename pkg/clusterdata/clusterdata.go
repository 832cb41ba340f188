// Package clusterdata holds the attribute types carried by a cluster
// envelope: node membership and reachability, plus optional resource-manager
// partition layout.
package clusterdata

import "github.com/nordichpc/sonar/pkg/envelope"

// Node is one cluster member's name resolution and reachability result.
type Node struct {
	Name          string   `json:"name"`
	Addresses     []string `json:"addresses"`
	Reachable     bool     `json:"reachable"`
	CanonicalName string   `json:"canonical_name,omitempty"`
}

// NodeRange is a bracket-compressed node name range, e.g. "node[001-032]",
// matching the resource manager's own hostlist compression.
type NodeRange string

// Partition maps a resource-manager partition name to the node range it
// spans.
type Partition struct {
	Name  string    `json:"name"`
	Nodes NodeRange `json:"nodes"`
}

// Attributes is the data payload of a cluster envelope.
type Attributes struct {
	Nodes      []Node      `json:"nodes"`
	Partitions []Partition `json:"partitions,omitempty"`
}

// Envelope is a cluster envelope: an Attributes payload or a list of errors.
type Envelope = envelope.Envelope[Attributes]
