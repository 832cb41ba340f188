// Package sysinfodata holds the attribute types carried by a sysinfo
// envelope: a snapshot of one node's hardware at an instant.
package sysinfodata

import (
	"fmt"
	"strings"

	"github.com/nordichpc/sonar/pkg/envelope"
)

// kibPerGiB converts kibibytes to gibibytes (1 GiB = 1024*1024 KiB).
const kibPerGiB = 1024 * 1024

// SoftwareVersion names one installed component of the HPC software stack
// (Slurm, MPI, kernel) discovered best-effort by the sysinfo producer.
type SoftwareVersion struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Card describes one installed accelerator as reported by its vendor shim at
// sysinfo time. Key is (Manufacturer, Index).
type Card struct {
	Index            int    `json:"index"`
	Address          string `json:"address"`
	UUID             string `json:"uuid"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	Architecture     string `json:"architecture"`
	Driver           string `json:"driver"`
	Firmware         string `json:"firmware"`
	MemoryKiB        int64  `json:"memory_kib"`
	PowerLimitWatts  int64  `json:"power_limit_watts"`
	ClockLimitMHz    int64  `json:"clock_limit_mhz"`
	MemClockLimitMHz int64  `json:"mem_clock_limit_mhz"`
}

// Attributes is the data payload of a sysinfo envelope: a node's hardware
// inventory at an instant.
type Attributes struct {
	Time           envelope.Timestamp `json:"time"`
	Node           envelope.Hostname  `json:"node"`
	OSName         string             `json:"os_name"`
	OSRelease      string             `json:"os_release"`
	Sockets        int                `json:"sockets"`
	CoresPerSocket int                `json:"cores_per_socket"`
	ThreadsPerCore int                `json:"threads_per_core"`
	CPUModel       string             `json:"cpu_model"`
	MemoryKiB      int64              `json:"memory_kib"`
	Cards          []Card             `json:"cards,omitempty"`
	Software       []SoftwareVersion  `json:"software,omitempty"`
}

// Envelope is a sysinfo envelope: an Attributes payload or a list of errors.
type Envelope = envelope.Envelope[Attributes]

// Description renders the one-line human-readable summary used by
// operators scanning a fleet of sysinfo envelopes: socket/core/thread
// topology, memory size, and a compressed accelerator count, e.g.
// "2x64 (hyperthreaded) AMD EPYC 9654, 503 GiB, 2x NVIDIA H100 PCIe @ 80GiB".
func (a Attributes) Description() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d", a.Sockets, a.CoresPerSocket)
	if a.ThreadsPerCore > 1 {
		b.WriteString(" (hyperthreaded)")
	}
	fmt.Fprintf(&b, " %s, %d GiB", a.CPUModel, a.MemoryKiB/kibPerGiB)

	for _, group := range groupCardsByModel(a.Cards) {
		fmt.Fprintf(&b, ", %dx %s @ %dGiB", group.count, group.model, group.memoryKiB/kibPerGiB)
	}
	return b.String()
}

type cardGroup struct {
	model     string
	memoryKiB int64
	count     int
}

// groupCardsByModel collapses cards into (model, memory) groups in first-seen
// order, matching the description format's "2x NVIDIA H100 PCIe @ 80GiB"
// compression for a homogeneous fleet.
func groupCardsByModel(cards []Card) []cardGroup {
	var order []string
	groups := make(map[string]*cardGroup)
	for _, c := range cards {
		key := fmt.Sprintf("%s@%d", c.Model, c.MemoryKiB)
		g, ok := groups[key]
		if !ok {
			g = &cardGroup{model: c.Model, memoryKiB: c.MemoryKiB}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
	}
	out := make([]cardGroup, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	return out
}
