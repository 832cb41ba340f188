package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/nordichpc/sonar/pkg/producer"
)

// fields is the sacct -P column set matching the RawJobRecord keys
// pkg/producer/jobs.go's parseRawJob expects.
var fields = []string{
	"JobID", "ArrayJobID", "ArrayTaskID", "HetJobID",
	"User", "Account", "State",
	"Submit", "Start", "End",
	"Partition", "NodeList",
	"ReqCPUS", "ReqMemKiB", "ReqGPUs",
	"Timelimit", "ExitCode",
}

// runFunc executes a command and returns its stdout; swappable in tests so
// they never depend on a real sacct binary.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Source queries sacct for job records, satisfying producer.JobSource.
type Source struct {
	// Binary is the sacct executable name or path; defaults to "sacct".
	Binary string

	run runFunc
}

// NewSource returns a Source that shells out to the system sacct binary.
func NewSource() *Source {
	return &Source{Binary: "sacct", run: execRun}
}

var _ producer.JobSource = (*Source)(nil)

// Query runs `sacct -P --noheader --allusers --starttime=<since> --endtime=<until>
// --state=<all> --format=<fields>` and parses each pipe-delimited line into a
// RawJobRecord.
func (s *Source) Query(ctx context.Context, since, until time.Time) ([]producer.RawJobRecord, error) {
	run := s.run
	if run == nil {
		run = execRun
	}
	binary := s.Binary
	if binary == "" {
		binary = "sacct"
	}

	args := []string{
		"-P", "--noheader", "--allusers",
		"--starttime=" + since.UTC().Format("2006-01-02T15:04:05"),
		"--endtime=" + until.UTC().Format("2006-01-02T15:04:05"),
		"--state=all",
		"--format=" + strings.Join(fields, ","),
	}

	out, err := run(ctx, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("slurm: sacct query: %w", err)
	}

	return parseSacctOutput(out), nil
}

// parseSacctOutput splits sacct -P's pipe-delimited, header-free output into
// RawJobRecords. sacct emits one line per job step in addition to one per
// job; only the bare job-id lines (no ".batch"/".extern" suffix) are kept,
// since step-level accounting is not part of jobsdata.SlurmJob.
func parseSacctOutput(out []byte) []producer.RawJobRecord {
	var records []producer.RawJobRecord
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		cols := strings.Split(line, "|")
		if len(cols) != len(fields) {
			continue
		}
		if strings.Contains(cols[0], ".") {
			continue
		}
		rec := make(producer.RawJobRecord, len(fields))
		for i, name := range fields {
			rec[name] = cols[i]
		}
		records = append(records, rec)
	}
	return records
}
