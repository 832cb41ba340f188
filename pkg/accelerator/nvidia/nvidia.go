//go:build cgo && nvidia

// Package nvidia wraps the NVIDIA vendor shim described in spec §6's fixed
// C ABI. The shim itself (linking against NVML) is out of scope; this file
// only marshals the fixed struct layouts across the cgo boundary.
package nvidia

/*
#cgo LDFLAGS: -lsonar_nvidia_shim
#include "sonar_nvidia_shim.h"
*/
import "C"

import (
	"fmt"

	"github.com/nordichpc/sonar/pkg/accelerator"
)

// Nvidia is the NVIDIA accelerator variant.
type Nvidia struct{}

// New returns the NVIDIA variant. The shim library is linked at build time,
// so New does no probing and always returns a nil error.
func New() (*Nvidia, error) {
	return &Nvidia{}, nil
}

func (n *Nvidia) Manufacturer() string { return "NVIDIA" }

func (n *Nvidia) DeviceCount() (int, error) {
	var count C.int
	if rc := C.device_get_count(&count); rc != 0 {
		return 0, fmt.Errorf("nvidia: device_get_count: rc=%d", rc)
	}
	return int(count), nil
}

func (n *Nvidia) Info(index int) (accelerator.CardInfo, error) {
	var info C.card_info_t
	if rc := C.device_get_card_info(C.int(index), &info); rc != 0 {
		return accelerator.CardInfo{}, fmt.Errorf("nvidia: device_get_card_info(%d): rc=%d", index, rc)
	}
	return accelerator.CardInfo{
		Index:            index,
		BusAddress:       C.GoString(&info.bus_addr[0]),
		UUID:             C.GoString(&info.uuid[0]),
		Model:            C.GoString(&info.model[0]),
		Driver:           C.GoString(&info.driver[0]),
		Firmware:         C.GoString(&info.firmware[0]),
		TotalMemoryKiB:   int64(info.totalmem_kib),
		PowerLimitWatts:  int64(info.power_limit_watts),
		ClockLimitMHz:    int64(info.clock_limit_mhz),
		MemClockLimitMHz: int64(info.mem_clock_limit_mhz),
	}, nil
}

func (n *Nvidia) State(index int) (accelerator.CardState, error) {
	var state C.card_state_t
	if rc := C.device_get_card_state(C.int(index), &state); rc != 0 {
		return accelerator.CardState{}, fmt.Errorf("nvidia: device_get_card_state(%d): rc=%d", index, rc)
	}
	return accelerator.CardState{
		Index:             index,
		Fan:               int(state.fan),
		PerformanceState:  fmt.Sprintf("P%d", int(state.perf_state)),
		MemoryUsedKiB:     int64(state.mem_used_kib),
		CeUtilPercent:     float64(state.ce_util),
		MemoryUtilPercent: float64(state.mem_util),
		TemperatureC:      float64(state.temp_c),
		PowerWatts:        float64(state.power_watts),
		CeClockMHz:        int64(state.ce_clock_mhz),
		MemoryClockMHz:    int64(state.mem_clock_mhz),
	}, nil
}

func (n *Nvidia) Processes(index int) ([]accelerator.Process, error) {
	var count C.int
	if rc := C.device_probe_processes(C.int(index), &count); rc != 0 {
		return nil, fmt.Errorf("nvidia: device_probe_processes(%d): rc=%d", index, rc)
	}
	defer C.free_processes()

	procs := make([]accelerator.Process, 0, int(count))
	for i := 0; i < int(count); i++ {
		var p C.gpu_process_t
		if rc := C.get_process(C.int(i), &p); rc != 0 {
			continue
		}
		procs = append(procs, accelerator.Process{
			PID:               int32(p.pid),
			MemoryUsedKiB:     int64(p.mem_size_kib),
			GpuUtilPercent:    float64(p.gpu_util),
			MemoryUtilPercent: float64(p.mem_util),
		})
	}
	return procs, nil
}

func (n *Nvidia) Close() error { return nil }
