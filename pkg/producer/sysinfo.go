package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/nordichpc/sonar/pkg/accelerator"
	"github.com/nordichpc/sonar/pkg/envelope"
	"github.com/nordichpc/sonar/pkg/platform"
	"github.com/nordichpc/sonar/pkg/sysinfodata"
)

// SysinfoProducer assembles one Sysinfo envelope per firing: static CPU/OS
// inventory plus every compiled-in accelerator variant's card list, per
// spec.md §4.3.
type SysinfoProducer struct {
	Platform     platform.Platform
	Accelerators []accelerator.Accelerator
	Meta         envelope.Meta
	Cluster      string

	// Software is a best-effort list of installed HPC stack components
	// (Slurm, MPI, kernel versions); populated by the caller since discovery
	// is environment-specific, never fatal if empty (SPEC_FULL.md §4.10).
	Software []sysinfodata.SoftwareVersion
}

// Produce assembles the sysinfo envelope(s): one data envelope, plus a
// trailing errors envelope if any accelerator variant failed without
// suppressing the others.
func (p *SysinfoProducer) Produce(ctx context.Context) []sysinfodata.Envelope {
	now := p.Platform.Now()

	node, err := p.Platform.Hostname()
	if err != nil {
		return []sysinfodata.Envelope{p.errorEnvelope(now, "", err)}
	}

	inv, memKiB, err := p.Platform.CPUInventory()
	if err != nil {
		return []sysinfodata.Envelope{p.errorEnvelope(now, node, err)}
	}

	var errs []envelope.ErrorRecord

	osName, osRelease, err := p.Platform.OSRelease()
	if err != nil {
		errs = append(errs, p.errRecord(now, node, err))
	}

	cards, cardErrs := p.collectCards()
	for _, cerr := range cardErrs {
		errs = append(errs, p.errRecord(now, node, cerr))
	}

	attrs := sysinfodata.Attributes{
		Time:           envelope.Timestamp(now),
		Node:           envelope.Hostname(node),
		OSName:         osName,
		OSRelease:      osRelease,
		Sockets:        inv.Sockets,
		CoresPerSocket: inv.CoresPerSocket,
		ThreadsPerCore: inv.ThreadsPerCore,
		CPUModel:       inv.Model,
		MemoryKiB:      memKiB,
		Cards:          cards,
		Software:       p.Software,
	}

	out := []sysinfodata.Envelope{envelope.NewData(envelope.DataTypeSysinfo, p.Meta, attrs)}
	if len(errs) > 0 {
		out = append(out, envelope.NewError[sysinfodata.Attributes](p.Meta, errs...))
	}
	return out
}

// collectCards polls every compiled-in accelerator variant in order,
// keeping only those reporting device_count > 0 (spec.md §4.3); a failure
// on any one variant or card produces an error but never suppresses the
// others.
func (p *SysinfoProducer) collectCards() ([]sysinfodata.Card, []error) {
	var cards []sysinfodata.Card
	var errs []error

	for _, accel := range p.Accelerators {
		count, err := accel.DeviceCount()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: device count: %w", accel.Manufacturer(), err))
			continue
		}
		for i := 0; i < count; i++ {
			info, err := accel.Info(i)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: card %d info: %w", accel.Manufacturer(), i, err))
				continue
			}
			cards = append(cards, sysinfodata.Card{
				Index:            info.Index,
				Address:          info.BusAddress,
				UUID:             info.UUID,
				Manufacturer:     accel.Manufacturer(),
				Model:            info.Model,
				Architecture:     info.Architecture,
				Driver:           info.Driver,
				Firmware:         info.Firmware,
				MemoryKiB:        info.TotalMemoryKiB,
				PowerLimitWatts:  info.PowerLimitWatts,
				ClockLimitMHz:    info.ClockLimitMHz,
				MemClockLimitMHz: info.MemClockLimitMHz,
			})
		}
	}
	return cards, errs
}

func (p *SysinfoProducer) errorEnvelope(now time.Time, node string, err error) sysinfodata.Envelope {
	return envelope.NewError[sysinfodata.Attributes](p.Meta, p.errRecord(now, node, err))
}

func (p *SysinfoProducer) errRecord(now time.Time, node string, err error) envelope.ErrorRecord {
	return envelope.ErrorRecord{
		Time:    envelope.Timestamp(now),
		Cluster: p.Cluster,
		Node:    envelope.Hostname(node),
		Detail:  err.Error(),
	}
}
