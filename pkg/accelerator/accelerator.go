// Package accelerator defines the uniform interface over installed GPU
// vendors that the sysinfo and sample producers poll: device count,
// per-device static info, per-device live state, and per-device process
// list. Concrete implementations are thin wrappers around each vendor's C
// shim (spec §6's fixed ABI); pkg/accelerator/fake is always compiled in as
// the "no accelerator present" variant.
//
// Each vendor is a tagged alternative behind this one interface, in the
// shape of the teacher's pkg/collector/factory.go Factory pattern: there is
// no dynamic plugin registry, just an ordered, build-time-fixed list of
// variants that the daemon probes once at startup.
package accelerator

// CardInfo is a GPU's static identification and capability info, unchanged
// for the lifetime of the process.
type CardInfo struct {
	Index            int
	BusAddress       string
	UUID             string
	Model            string
	Architecture     string
	Driver           string
	Firmware         string
	TotalMemoryKiB   int64
	PowerLimitWatts  int64
	ClockLimitMHz    int64
	MemClockLimitMHz int64
}

// CardState is a GPU's live telemetry at an instant.
type CardState struct {
	Index            int
	Fan              int
	ComputeMode      string
	PerformanceState string
	MemoryUsedKiB    int64
	CeUtilPercent    float64
	MemoryUtilPercent float64
	TemperatureC     float64
	PowerWatts       float64
	CeClockMHz       int64
	MemoryClockMHz   int64
	Failing          uint32
}

// Process is one process's resource share of a GPU, as reported by the
// vendor shim's per-device process list.
type Process struct {
	PID             int32
	MemoryUsedKiB   int64
	GpuUtilPercent  float64
	MemoryUtilPercent float64
}

// Accelerator is the uniform interface every vendor variant (and the fake
// no-op variant) implements.
type Accelerator interface {
	// Manufacturer names the vendor this variant speaks for, used as half of
	// a Card's (manufacturer, index) key.
	Manufacturer() string

	// DeviceCount returns the number of devices this variant controls. A
	// variant reporting 0 is skipped by the sysinfo producer (spec §4.3).
	DeviceCount() (int, error)

	// Info returns device i's static info.
	Info(index int) (CardInfo, error)

	// State returns device i's live telemetry.
	State(index int) (CardState, error)

	// Processes returns device i's current process list.
	Processes(index int) ([]Process, error)

	// Close releases any resources the shim holds open (library handles,
	// driver contexts).
	Close() error
}
