package slurm

import (
	"context"
	"fmt"
	"strings"

	"github.com/nordichpc/sonar/pkg/clusterdata"
)

// PartitionSource queries sinfo for the partition-to-node-range mapping
// (SPEC_FULL.md §4.10), satisfying the cluster producer's PartitionSource
// interface structurally, the same way Source satisfies JobSource.
type PartitionSource struct {
	Binary string
	run    runFunc
}

// NewPartitionSource returns a PartitionSource that shells out to sinfo.
func NewPartitionSource() *PartitionSource {
	return &PartitionSource{Binary: "sinfo", run: execRun}
}

// Partitions returns every partition's name and bracket-compressed node
// range, as sinfo itself already compresses it.
func (s *PartitionSource) Partitions(ctx context.Context) ([]clusterdata.Partition, error) {
	binary := s.Binary
	if binary == "" {
		binary = "sinfo"
	}

	out, err := s.run(ctx, binary, "-h", "-o", "%P,%N")
	if err != nil {
		return nil, fmt.Errorf("sinfo: %w", err)
	}
	return parseSinfoOutput(out), nil
}

// parseSinfoOutput parses "partition,noderange" lines, stripping sinfo's
// trailing '*' marker on the default partition's name.
func parseSinfoOutput(out []byte) []clusterdata.Partition {
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	partitions := make([]clusterdata.Partition, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		cols := strings.SplitN(line, ",", 2)
		if len(cols) != 2 {
			continue
		}
		name := strings.TrimSuffix(cols[0], "*")
		partitions = append(partitions, clusterdata.Partition{Name: name, Nodes: clusterdata.NodeRange(cols[1])})
	}
	return partitions
}
