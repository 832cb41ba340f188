// Package jobsdata holds the attribute types carried by a jobs envelope:
// completed or terminal-state job records pulled from the resource manager.
package jobsdata

import "github.com/nordichpc/sonar/pkg/envelope"

// SlurmJob is one job record as reported by the resource manager, including
// het/array job linkage, accounting, and final exit state.
type SlurmJob struct {
	JobID       int64             `json:"job_id"`
	ArrayJobID  int64             `json:"array_job_id,omitempty"`
	ArrayTaskID int64             `json:"array_task_id,omitempty"`
	HetJobID    int64             `json:"het_job_id,omitempty"`
	User        string            `json:"user"`
	Account     string            `json:"account"`
	State       string            `json:"state"`
	Submit      envelope.Timestamp `json:"submit_time"`
	Start       envelope.Timestamp `json:"start_time,omitempty"`
	End         envelope.Timestamp `json:"end_time,omitempty"`
	Partition   string            `json:"partition"`
	NodeList    string            `json:"node_list"`
	ReqCPUs     int64             `json:"req_cpus"`
	ReqMemoryKiB int64            `json:"req_memory_kib"`
	ReqGpus     int64             `json:"req_gpus,omitempty"`
	TimeLimit   envelope.Xint     `json:"time_limit_minutes"`
	ExitCode    int               `json:"exit_code"`
}

// suppressedOnLegacyCSV holds the two resource-manager states (RUNNING,
// PENDING) a legacy CSV-compatible sink would suppress; the JSON/broker path
// includes them. No sink in this module calls SuppressedOnLegacyCSV.
// See DESIGN.md's Open Question decision on this.
var suppressedOnLegacyCSV = map[string]bool{
	"RUNNING": true,
	"PENDING": true,
}

// SuppressedOnLegacyCSV reports whether a job in this state must be excluded
// from a legacy CSV-compatible directory sink.
func SuppressedOnLegacyCSV(state string) bool {
	return suppressedOnLegacyCSV[state]
}

// Attributes is the data payload of a jobs envelope.
type Attributes struct {
	Jobs []SlurmJob `json:"jobs"`
}

// Envelope is a jobs envelope: an Attributes payload or a list of errors.
type Envelope = envelope.Envelope[Attributes]
