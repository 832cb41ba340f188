package producer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nordichpc/sonar/pkg/envelope"
	"github.com/nordichpc/sonar/pkg/jobsdata"
	"github.com/nordichpc/sonar/pkg/platform"
)

// RawJobRecord is one resource-manager job record in its native key/value
// shape (sacct's default field names), before sonar's own parsing and
// validation. Left as a flat map rather than a typed sacct client because
// the resource-manager adapter itself is out of spec.md §1's scope; a
// JobSource implementation owns translating its wire format into this
// shape.
type RawJobRecord map[string]string

// JobSource queries the resource manager for job records whose activity
// falls in [since, until], plus any still running. The narrow interface
// spec.md §4.4 actually requires of the resource manager, deliberately not
// a full sacct/scontrol client.
type JobSource interface {
	Query(ctx context.Context, since, until time.Time) ([]RawJobRecord, error)
}

// JobsProducer assembles one Jobs envelope per firing from the resource
// manager's job records, per spec.md §4.4.
type JobsProducer struct {
	Source  JobSource
	Window  time.Duration
	Meta    envelope.Meta
	Cluster string
	Clock   platform.Platform
}

// Produce queries the resource manager for [now-Window, now] plus running
// jobs, and returns the successfully parsed jobs as one data envelope, with
// a trailing errors envelope for any record that failed to parse — a
// failure on one record never aborts the rest (spec.md §4.4).
func (p *JobsProducer) Produce(ctx context.Context) []jobsdata.Envelope {
	now := p.Clock.Now()
	since := now.Add(-p.Window)

	records, err := p.Source.Query(ctx, since, now)
	if err != nil {
		return []jobsdata.Envelope{p.errorEnvelope(now, err)}
	}

	var jobs []jobsdata.SlurmJob
	var errs []envelope.ErrorRecord
	for _, rec := range records {
		job, perr := parseRawJob(rec)
		if perr != nil {
			errs = append(errs, p.errRecord(now, fmt.Errorf("job %s: %w", rec["JobID"], perr)))
			continue
		}
		jobs = append(jobs, job)
	}

	out := []jobsdata.Envelope{envelope.NewData(envelope.DataTypeJobs, p.Meta, jobsdata.Attributes{Jobs: jobs})}
	if len(errs) > 0 {
		out = append(out, envelope.NewError[jobsdata.Attributes](p.Meta, errs...))
	}
	return out
}

func (p *JobsProducer) errorEnvelope(now time.Time, err error) jobsdata.Envelope {
	return envelope.NewError[jobsdata.Attributes](p.Meta, p.errRecord(now, err))
}

func (p *JobsProducer) errRecord(now time.Time, err error) envelope.ErrorRecord {
	return envelope.ErrorRecord{
		Time:    envelope.Timestamp(now),
		Cluster: p.Cluster,
		Detail:  err.Error(),
	}
}

// parseRawJob converts one sacct-shaped record into a SlurmJob, failing the
// whole record (not the whole firing) on the first unparseable required
// field.
func parseRawJob(rec RawJobRecord) (jobsdata.SlurmJob, error) {
	jobID, err := parseInt64(rec["JobID"])
	if err != nil {
		return jobsdata.SlurmJob{}, fmt.Errorf("JobID: %w", err)
	}

	submit, err := parseRecordTime(rec["Submit"])
	if err != nil {
		return jobsdata.SlurmJob{}, fmt.Errorf("Submit: %w", err)
	}

	job := jobsdata.SlurmJob{
		JobID:        jobID,
		ArrayJobID:   parseInt64Lenient(rec["ArrayJobID"]),
		ArrayTaskID:  parseInt64Lenient(rec["ArrayTaskID"]),
		HetJobID:     parseInt64Lenient(rec["HetJobID"]),
		User:         rec["User"],
		Account:      rec["Account"],
		State:        rec["State"],
		Submit:       envelope.Timestamp(submit),
		Partition:    rec["Partition"],
		NodeList:     rec["NodeList"],
		ReqCPUs:      parseInt64Lenient(rec["ReqCPUS"]),
		ReqMemoryKiB: parseInt64Lenient(rec["ReqMemKiB"]),
		ReqGpus:      parseInt64Lenient(rec["ReqGPUs"]),
		TimeLimit:    parseTimeLimit(rec["Timelimit"]),
		ExitCode:     int(parseInt64Lenient(rec["ExitCode"])),
	}

	if start, err := parseRecordTime(rec["Start"]); err == nil {
		job.Start = envelope.Timestamp(start)
	}
	if end, err := parseRecordTime(rec["End"]); err == nil {
		job.End = envelope.Timestamp(end)
	}

	return job, nil
}

func parseInt64(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing required field")
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseInt64Lenient returns 0 for an empty or unparseable optional field
// rather than failing the whole record — sacct frequently leaves optional
// numeric fields blank.
func parseInt64Lenient(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseTimeLimit maps sacct's "UNLIMITED" and blank time limits onto the
// Xint sentinel values, per spec.md §3.
func parseTimeLimit(s string) envelope.Xint {
	if s == "" {
		return envelope.XintUnset
	}
	if s == "UNLIMITED" {
		return envelope.XintInfinite
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return envelope.XintUnset
	}
	return envelope.Xint(n)
}

func parseRecordTime(s string) (time.Time, error) {
	if s == "" || s == "Unknown" {
		return time.Time{}, fmt.Errorf("missing or unknown timestamp")
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
