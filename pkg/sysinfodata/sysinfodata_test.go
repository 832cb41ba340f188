package sysinfodata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescriptionFormat(t *testing.T) {
	attrs := Attributes{
		Sockets:        2,
		CoresPerSocket: 64,
		ThreadsPerCore: 2,
		CPUModel:       "<cpu-model>",
		MemoryKiB:      503 * kibPerGiB,
		Cards: []Card{
			{Index: 0, Model: "NVIDIA H100 PCIe", MemoryKiB: 80 * kibPerGiB},
			{Index: 1, Model: "NVIDIA H100 PCIe", MemoryKiB: 80 * kibPerGiB},
		},
	}

	want := "2x64 (hyperthreaded) <cpu-model>, 503 GiB, 2x NVIDIA H100 PCIe @ 80GiB"
	assert.Equal(t, want, attrs.Description())
}

func TestDescriptionNoHyperthreadingNoCards(t *testing.T) {
	attrs := Attributes{
		Sockets:        1,
		CoresPerSocket: 8,
		ThreadsPerCore: 1,
		CPUModel:       "generic",
		MemoryKiB:      16 * kibPerGiB,
	}
	assert.Equal(t, "1x8 generic, 16 GiB", attrs.Description())
}
