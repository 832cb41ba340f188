// Package sampledata holds the attribute types carried by a sample
// envelope: the per-firing snapshot of per-core load, per-GPU state, and
// per-job process trees that the sample producer assembles.
package sampledata

import "github.com/nordichpc/sonar/pkg/envelope"

// GpuState is one installed accelerator's live state at sample time.
type GpuState struct {
	Index             int     `json:"index"`
	Fan               int     `json:"fan,omitempty"`
	ComputeMode       string  `json:"compute_mode,omitempty"`
	PerformanceState  string  `json:"performance_state,omitempty"`
	MemoryUsedKiB     int64   `json:"memory_used_kib"`
	CeUtil            float64 `json:"ce_util"`
	MemoryUtil        float64 `json:"memory_util"`
	TemperatureC      float64 `json:"temperature"`
	PowerWatts        float64 `json:"power"`
	PowerLimitWatts   float64 `json:"power_limit"`
	CeClockMHz        int64   `json:"ce_clock"`
	MemoryClockMHz    int64   `json:"memory_clock"`
	Failing           uint32  `json:"failing"`
}

// ProcessGpu is one process's share of one GPU's resources, joined in by
// pid against the accelerator abstraction's per-device process list.
type ProcessGpu struct {
	Index         int     `json:"index"`
	GpuUtil       float64 `json:"gpu_util"`
	GpuMemoryUtil float64 `json:"gpu_memory_util"`
	GpuMemoryKiB  int64   `json:"gpu_memory"`
	// Failing carries that GPU's failing bitmask, OR-ed in by the producer
	// onto every process it reports against (spec §4.2).
	Failing uint32 `json:"failing,omitempty"`
}

// GhostCmd is the synthetic command name given to a process that a GPU
// reports by pid but that is absent from the process snapshot.
const GhostCmd = "_unknown_"

// Process is one process attributed to a job within one sample.
type Process struct {
	PID            int32        `json:"pid"`
	ParentPID      int32        `json:"parent_pid"`
	Cmd            string       `json:"cmd"`
	CpuAvgPercent  float64      `json:"cpu_avg"`
	CpuUtilPercent float64      `json:"cpu_util"`
	CpuTimeSeconds float64      `json:"cpu_time"`
	VirtualKiB     int64        `json:"virtual_memory"`
	ResidentKiB    int64        `json:"resident_memory"`
	RolledUp       int          `json:"rolledup"`
	Gpus           []ProcessGpu `json:"gpus,omitempty"`
}

// Job is one resource-manager job's (or batchless session's) process tree
// within one sample. (Job, Epoch, node) uniquely identifies a job instance
// within the cluster.
type Job struct {
	Job       int64     `json:"job"`
	User      string    `json:"user"`
	Epoch     int64     `json:"epoch"`
	Processes []Process `json:"processes"`
}

// System is the node-wide portion of a sample: per-core cumulative jiffies
// (only populated when the `load` filter is enabled) and per-GPU state.
type System struct {
	Cpus []int64    `json:"cpus,omitempty"`
	Gpus []GpuState `json:"gpus,omitempty"`
}

// Attributes is the data payload of a sample envelope.
type Attributes struct {
	Time   envelope.Timestamp `json:"time"`
	Node   envelope.Hostname  `json:"node"`
	System System             `json:"system"`
	Jobs   []Job              `json:"jobs"`
}

// Envelope is a sample envelope: an Attributes payload or a list of errors.
type Envelope = envelope.Envelope[Attributes]

// UngroupedJob is the job id assigned to processes that attribute to neither
// a resource manager nor a batchless session leader.
const UngroupedJob int64 = 0
