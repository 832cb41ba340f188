package producer

import (
	"context"
	"time"

	"github.com/nordichpc/sonar/pkg/platform"
)

// fakePlatform is an in-memory platform.Platform for producer tests: every
// field is set directly by the test instead of read from /proc.
type fakePlatform struct {
	now        time.Time
	hostname   string
	osName     string
	osRelease  string
	inventory  platform.CPUInventory
	memoryKiB  int64
	procs      []platform.ProcessSnapshot
	rmJobs     map[int32]int64
	cgroups    map[int32]string
	perCore    []int64
	ownSID     int32
	hostErr    error
	procsErr   error
	loadErr    error
	sessionErr error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		hostname: "node01",
		rmJobs:   map[int32]int64{},
		cgroups:  map[int32]string{},
	}
}

func (f *fakePlatform) Now() time.Time { return f.now }

func (f *fakePlatform) Hostname() (string, error) {
	if f.hostErr != nil {
		return "", f.hostErr
	}
	return f.hostname, nil
}

func (f *fakePlatform) CPUInventory() (platform.CPUInventory, int64, error) {
	return f.inventory, f.memoryKiB, nil
}

func (f *fakePlatform) OSRelease() (string, string, error) {
	return f.osName, f.osRelease, nil
}

func (f *fakePlatform) Processes() ([]platform.ProcessSnapshot, error) {
	if f.procsErr != nil {
		return nil, f.procsErr
	}
	return f.procs, nil
}

func (f *fakePlatform) CgroupPath(pid int32) (string, error) {
	return f.cgroups[pid], nil
}

func (f *fakePlatform) ResourceManagerJob(pid int32) (int64, error) {
	return f.rmJobs[pid], nil
}

func (f *fakePlatform) PerCoreJiffies() ([]int64, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.perCore, nil
}

func (f *fakePlatform) OwnSessionID() (int32, error) {
	if f.sessionErr != nil {
		return 0, f.sessionErr
	}
	return f.ownSID, nil
}

func (f *fakePlatform) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var _ platform.Platform = (*fakePlatform)(nil)
