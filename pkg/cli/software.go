package cli

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/nordichpc/sonar/pkg/sysinfodata"
)

// softwareRunFunc runs binary with args and returns its stdout, matching
// pkg/resourcemanager/slurm's injectable runner pattern for testability.
type softwareRunFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

func execSoftwareRun(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}

// discoverSoftware best-effort probes the handful of HPC stack components
// the sysinfo envelope's software list names (SPEC_FULL.md §4.10): the
// resource manager, MPI, and kernel versions. Any component whose binary is
// missing or whose invocation fails is simply omitted, never fatal.
func discoverSoftware(ctx context.Context, run softwareRunFunc) []sysinfodata.SoftwareVersion {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var versions []sysinfodata.SoftwareVersion
	if v, ok := versionOf(ctx, run, "slurm", "sinfo", "--version"); ok {
		versions = append(versions, v)
	}
	if v, ok := versionOf(ctx, run, "mpi", "mpirun", "--version"); ok {
		versions = append(versions, v)
	}
	if v, ok := versionOf(ctx, run, "kernel", "uname", "-r"); ok {
		versions = append(versions, v)
	}
	return versions
}

// versionOf runs binary with args and takes the last field of its output's
// first line as the version string (e.g. "slurm 23.11.1" -> "23.11.1").
func versionOf(ctx context.Context, run softwareRunFunc, key, binary string, args ...string) (sysinfodata.SoftwareVersion, bool) {
	out, err := run(ctx, binary, args...)
	if err != nil {
		return sysinfodata.SoftwareVersion{}, false
	}

	line := firstLine(out)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return sysinfodata.SoftwareVersion{}, false
	}
	return sysinfodata.SoftwareVersion{Key: key, Name: binary, Version: fields[len(fields)-1]}, true
}

func firstLine(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
