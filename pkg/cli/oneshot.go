package cli

import (
	"context"
	"net"
	"time"

	"github.com/nordichpc/sonar/pkg/accelerator"
	"github.com/nordichpc/sonar/pkg/config"
	"github.com/nordichpc/sonar/pkg/envelope"
	"github.com/nordichpc/sonar/pkg/platform"
	"github.com/nordichpc/sonar/pkg/producer"
	"github.com/nordichpc/sonar/pkg/resourcemanager/slurm"
	"github.com/nordichpc/sonar/pkg/serializer"
)

// runOneshotSample fires the sample producer once and prints the resulting
// envelope(s) to stdout in format. configPath may be empty, in which case
// every section falls back to its zero value (no filters, no cluster name).
func runOneshotSample(ctx context.Context, configPath, format string) error {
	cfg, plat, accels, meta, err := loadOneshotContext(configPath)
	if err != nil {
		return err
	}
	p := producer.NewSampleProducer(plat, accels, cfg.Sample, meta, cfg.Global.Cluster, producer.NewAccumulator())
	return printEnvelopes(ctx, format, p.Produce(ctx))
}

func runOneshotSysinfo(ctx context.Context, configPath, format string) error {
	cfg, plat, accels, meta, err := loadOneshotContext(configPath)
	if err != nil {
		return err
	}
	p := &producer.SysinfoProducer{
		Platform: plat, Accelerators: accels, Meta: meta, Cluster: cfg.Global.Cluster,
		Software: discoverSoftware(ctx, execSoftwareRun),
	}
	return printEnvelopes(ctx, format, p.Produce(ctx))
}

func runOneshotJobs(ctx context.Context, configPath, format string, window time.Duration) error {
	cfg, plat, _, meta, err := loadOneshotContext(configPath)
	if err != nil {
		return err
	}
	if window <= 0 {
		window = cfg.Slurm.Window
	}
	if window <= 0 {
		window = time.Hour
	}
	p := &producer.JobsProducer{
		Source: slurm.NewSource(), Window: window,
		Meta: meta, Cluster: cfg.Global.Cluster, Clock: plat,
	}
	return printEnvelopes(ctx, format, p.Produce(ctx))
}

func runOneshotCluster(ctx context.Context, configPath, format string) error {
	cfg, plat, _, meta, err := loadOneshotContext(configPath)
	if err != nil {
		return err
	}
	p := &producer.ClusterProducer{
		Nodes:      clusterNodeLister(cfg.Cluster),
		Resolver:   &net.Resolver{},
		Partitions: slurm.NewPartitionSource(),
		Meta:       meta, Cluster: cfg.Global.Cluster, Clock: plat,
	}
	return printEnvelopes(ctx, format, p.Produce(ctx))
}

// loadOneshotContext assembles the platform/accelerator/meta trio every
// one-shot command needs, loading configPath if given or falling back to an
// empty Config so these commands work standalone, without a daemon config
// file, per SPEC_FULL.md §4.10.
func loadOneshotContext(configPath string) (*config.Config, platform.Platform, []accelerator.Accelerator, envelope.Meta, error) {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, nil, nil, envelope.Meta{}, err
		}
		cfg = loaded
	}

	plat, err := newPlatform()
	if err != nil {
		return nil, nil, nil, envelope.Meta{}, err
	}

	return cfg, plat, newAccelerators(), metaFor(cfg.Global.Token), nil
}

// printEnvelopes serializes each produced envelope to stdout in format,
// one document per envelope (a firing may emit a data envelope plus a
// trailing errors envelope).
func printEnvelopes[T any](ctx context.Context, format string, envelopes []envelope.Envelope[T]) error {
	w := serializer.NewStdoutWriter(serializer.Format(format))
	defer w.Close()
	for _, env := range envelopes {
		if err := w.Serialize(ctx, env); err != nil {
			return err
		}
	}
	return nil
}
