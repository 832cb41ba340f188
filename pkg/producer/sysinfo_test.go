package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordichpc/sonar/pkg/accelerator"
	"github.com/nordichpc/sonar/pkg/accelerator/fake"
	"github.com/nordichpc/sonar/pkg/platform"
)

type erroringAccelerator struct{ manufacturer string }

func (e *erroringAccelerator) Manufacturer() string               { return e.manufacturer }
func (e *erroringAccelerator) DeviceCount() (int, error)           { return 0, errors.New("shim init failed") }
func (e *erroringAccelerator) Info(int) (accelerator.CardInfo, error)   { return accelerator.CardInfo{}, nil }
func (e *erroringAccelerator) State(int) (accelerator.CardState, error) { return accelerator.CardState{}, nil }
func (e *erroringAccelerator) Processes(int) ([]accelerator.Process, error) { return nil, nil }
func (e *erroringAccelerator) Close() error                        { return nil }

func TestSysinfoProducerDescriptionMatchesCards(t *testing.T) {
	fp := newFakePlatform()
	fp.now = time.Unix(1000, 0)
	fp.inventory = platform.CPUInventory{Sockets: 2, CoresPerSocket: 64, ThreadsPerCore: 2, Model: "AMD EPYC 9654"}
	fp.memoryKiB = 503 * 1024 * 1024

	f := fake.New()
	f.SetDevices(
		[]accelerator.CardInfo{{Index: 0, Model: "NVIDIA H100 PCIe", TotalMemoryKiB: 80 * 1024 * 1024}, {Index: 1, Model: "NVIDIA H100 PCIe", TotalMemoryKiB: 80 * 1024 * 1024}},
		[]accelerator.CardState{{}, {}},
		[][]accelerator.Process{{}, {}},
	)

	prod := &SysinfoProducer{Platform: fp, Accelerators: []accelerator.Accelerator{f}, Meta: testMeta(), Cluster: "cl"}
	envs := prod.Produce(context.Background())
	require.NoError(t, envs[0].Validate())
	require.False(t, envs[0].IsError())

	attrs := envs[0].Data.Attributes
	assert.Equal(t, `2x64 (hyperthreaded) AMD EPYC 9654, 503 GiB, 2x NVIDIA H100 PCIe @ 80GiB`, attrs.Description())
}

func TestSysinfoProducerOneVariantFailureDoesNotSuppressOthers(t *testing.T) {
	fp := newFakePlatform()
	fp.now = time.Unix(1000, 0)
	fp.inventory = platform.CPUInventory{Sockets: 1, CoresPerSocket: 8, ThreadsPerCore: 1, Model: "generic"}

	good := fake.New()
	good.SetDevices(
		[]accelerator.CardInfo{{Index: 0, Model: "Fake GPU"}},
		[]accelerator.CardState{{}},
		[][]accelerator.Process{{}},
	)
	bad := &erroringAccelerator{manufacturer: "Broken"}

	prod := &SysinfoProducer{Platform: fp, Accelerators: []accelerator.Accelerator{good, bad}, Meta: testMeta(), Cluster: "cl"}
	envs := prod.Produce(context.Background())

	require.Len(t, envs, 2)
	require.False(t, envs[0].IsError())
	assert.Len(t, envs[0].Data.Attributes.Cards, 1)
	require.True(t, envs[1].IsError())
	assert.Len(t, envs[1].Errors, 1)
}
