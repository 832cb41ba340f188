// Package platform defines the capability interface the producers use to
// read kernel-exposed state: wall/monotonic clock, hostname resolution,
// CPU/memory inventory, per-process snapshots, cgroup membership, a
// resource-manager job lookup, and a sleep-or-wake-on-signal primitive.
// pkg/platform/linux is the only concrete implementation; a fake
// implementation for tests lives alongside the producer packages that need
// one.
package platform

import (
	"context"
	"time"
)

// ProcessSnapshot is one process's state as read from /proc (or equivalent)
// at an instant, matching the fields spec.md §4.2 requires as sample
// producer input.
type ProcessSnapshot struct {
	PID       int32
	PPID      int32
	PGID      int32
	SID       int32
	UID       int64
	Comm      string
	StartTime time.Time
	// UtimeTicks and StimeTicks are cumulative user and kernel jiffies, kept
	// unconverted (not in seconds) so the sample producer can do
	// jiffy-precision delta arithmetic itself.
	UtimeTicks      uint64
	StimeTicks      uint64
	ResidentKiB     int64
	VirtualKiB      int64
}

// CPUInventory is the static CPU topology and identification read once per
// sysinfo firing.
type CPUInventory struct {
	Sockets        int
	CoresPerSocket int
	ThreadsPerCore int
	Model          string
}

// Platform is the capability interface producers are built against. It is
// never implemented by a producer itself — only by pkg/platform/linux (or a
// test fake) — so producers remain pure functions over an injected
// dependency.
type Platform interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// Hostname returns the node's configured hostname.
	Hostname() (string, error)

	// CPUInventory returns the node's CPU topology and total memory in KiB.
	CPUInventory() (CPUInventory, int64, error)

	// OSRelease returns the OS distribution name and release/version string.
	OSRelease() (name, release string, err error)

	// Processes returns a snapshot of every process visible to the caller.
	Processes() ([]ProcessSnapshot, error)

	// CgroupPath returns the pid's cgroup membership path, or "" if the pid
	// has no cgroup entry (e.g. it has already exited).
	CgroupPath(pid int32) (string, error)

	// ResourceManagerJob returns the resource-manager job id owning pid, or
	// 0 if the resource manager has no record of it (batchless). This is the
	// narrow contract spec.md §1 treats as an external collaborator: full
	// sacct/scontrol parsing is out of scope, but the core still needs a
	// yes/no/which-job answer per pid to drive attribution.
	ResourceManagerJob(pid int32) (int64, error)

	// PerCoreJiffies returns the cumulative jiffies-equivalent for each
	// logical core since boot, for the `load` sample filter.
	PerCoreJiffies() ([]int64, error)

	// OwnSessionID returns the calling (sonar) process's own session id, so
	// the sample producer's batchless attribution can tell the daemon's own
	// session apart from a job root's session (spec.md §4.2).
	OwnSessionID() (int32, error)

	// Sleep blocks for d, or until ctx is cancelled, whichever comes first.
	// It returns ctx.Err() if interrupted, nil if the full duration elapsed.
	Sleep(ctx context.Context, d time.Duration) error
}
