// Package fake provides the always-available "no accelerator present" (or,
// for tests, synthetic accelerator) variant, so the daemon never needs a
// vendor shim to be installed in order to start.
package fake

import (
	"fmt"
	"sync"

	"github.com/nordichpc/sonar/pkg/accelerator"
)

// Fake is an in-memory Accelerator whose devices, state, and process lists
// are set directly by tests instead of read from a shim.
type Fake struct {
	mu        sync.Mutex
	infos     []accelerator.CardInfo
	states    []accelerator.CardState
	processes [][]accelerator.Process
}

// New returns a Fake with zero devices, matching production hosts with no
// installed accelerator.
func New() *Fake {
	return &Fake{}
}

// SetDevices replaces the fake's device set, for tests that want to
// exercise sysinfo/sample producer logic against synthetic GPUs.
func (f *Fake) SetDevices(infos []accelerator.CardInfo, states []accelerator.CardState, processes [][]accelerator.Process) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = infos
	f.states = states
	f.processes = processes
}

func (f *Fake) Manufacturer() string { return "Fake" }

func (f *Fake) DeviceCount() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.infos), nil
}

func (f *Fake) Info(index int) (accelerator.CardInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.infos) {
		return accelerator.CardInfo{}, fmt.Errorf("fake: index %d out of range", index)
	}
	return f.infos[index], nil
}

func (f *Fake) State(index int) (accelerator.CardState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.states) {
		return accelerator.CardState{}, fmt.Errorf("fake: index %d out of range", index)
	}
	return f.states[index], nil
}

func (f *Fake) Processes(index int) ([]accelerator.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.processes) {
		return nil, nil
	}
	return f.processes[index], nil
}

func (f *Fake) Close() error { return nil }
