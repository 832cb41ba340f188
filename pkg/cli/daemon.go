package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/nordichpc/sonar/pkg/accelerator"
	"github.com/nordichpc/sonar/pkg/clusterdata"
	"github.com/nordichpc/sonar/pkg/config"
	"github.com/nordichpc/sonar/pkg/envelope"
	"github.com/nordichpc/sonar/pkg/jobsdata"
	"github.com/nordichpc/sonar/pkg/k8s/node"
	"github.com/nordichpc/sonar/pkg/logging"
	"github.com/nordichpc/sonar/pkg/metrics"
	"github.com/nordichpc/sonar/pkg/platform"
	"github.com/nordichpc/sonar/pkg/producer"
	"github.com/nordichpc/sonar/pkg/resourcemanager/slurm"
	"github.com/nordichpc/sonar/pkg/sampledata"
	"github.com/nordichpc/sonar/pkg/scheduler"
	"github.com/nordichpc/sonar/pkg/server"
	"github.com/nordichpc/sonar/pkg/sink"
	"github.com/nordichpc/sonar/pkg/sysinfodata"
)

// runDaemon bootstraps every enabled probe against its sink, runs the
// scheduler until ctx is cancelled, and optionally serves /health, /ready,
// and /metrics, matching SPEC_FULL.md §4.9.
func runDaemon(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}

	logging.SetDefaultStructuredLogger("sonar", sonarVersion)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lock *sink.NodeLock
	if cfg.Global.LockDirectory != "" {
		lock, err = sink.AcquireNodeLock(cfg.Global.LockDirectory + "/sonar.lock")
		if err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
		defer lock.Release()
	}

	dest, err := buildSink(cfg, func() { metrics.ObserveSinkBackoffRetry(string(cfg.Sink)) })
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	defer dest.Close()

	plat, err := newPlatform()
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	accels := newAccelerators()
	meta := metaFor(cfg.Global.Token)
	hostname, err := plat.Hostname()
	if err != nil {
		return fmt.Errorf("daemon: read hostname: %w", err)
	}

	probes := buildProbes(cfg, plat, accels, meta, hostname, dest)
	if len(probes) == 0 {
		return fmt.Errorf("daemon: no probe has a positive cadence configured")
	}

	hooks := scheduler.Hooks{
		OnFireStart: func(probe string) {
			slog.Debug("probe firing", "probe", probe)
		},
		OnFireComplete: func(probe string, duration time.Duration, err error) {
			if err != nil {
				slog.Warn("probe firing returned error", "probe", probe, "duration", duration, "error", err)
			}
		},
		OnPanic: func(probe string, recovered any) {
			slog.Error("probe panicked", "probe", probe, "recovered", recovered)
		},
	}
	sched := scheduler.New(probes, scheduler.WithHooks(hooks))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })

	if cfg.Global.MetricsAddress != "" {
		srv, err := buildMetricsServer(cfg.Global.MetricsAddress)
		if err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
		g.Go(func() error { return srv.Run(gctx) })
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		slog.Debug("systemd notify failed (likely not running under systemd)", "error", err)
	}

	if interval, werr := daemon.SdWatchdogEnabled(false); werr == nil && interval > 0 {
		g.Go(func() error { return runWatchdog(gctx, interval) })
	}

	err = g.Wait()
	if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyStopping); notifyErr != nil {
		slog.Debug("systemd stopping notify failed", "error", notifyErr)
	}
	return err
}

// runWatchdog pings systemd's watchdog at half its configured interval
// until ctx is cancelled, so a wedged scheduler gets the unit restarted
// instead of silently hanging forever.
func runWatchdog(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				slog.Debug("systemd watchdog notify failed", "error", err)
			}
		}
	}
}

// buildProbes constructs one scheduler.Probe per section whose cadence is
// configured positive; an absent or zero cadence disables that probe.
func buildProbes(cfg *config.Config, plat platform.Platform, accels []accelerator.Accelerator, meta envelope.Meta, hostname string, dest sink.Sink) []scheduler.Probe {
	var probes []scheduler.Probe

	if cfg.Sample.Cadence > 0 {
		sampleProducer := producer.NewSampleProducer(plat, accels, cfg.Sample, meta, cfg.Global.Cluster, producer.NewAccumulator())
		probes = append(probes, &probe[sampledata.Attributes]{
			name: "sample", cadence: cfg.Sample.Cadence, kind: sink.KindSample,
			node: hostname, cluster: cfg.Global.Cluster, clock: time.Now,
			produce: accumulatorReportingSampleProducer{sampleProducer},
			dest:    dest,
		})
	}

	if cfg.Sysinfo.Cadence > 0 {
		sysinfoProducer := &producer.SysinfoProducer{
			Platform: plat, Accelerators: accels, Meta: meta, Cluster: cfg.Global.Cluster,
			Software: discoverSoftware(context.Background(), execSoftwareRun),
		}
		probes = append(probes, &probe[sysinfodata.Attributes]{
			name: "sysinfo", cadence: cfg.Sysinfo.Cadence, kind: sink.KindSysinfo,
			node: hostname, cluster: cfg.Global.Cluster, clock: time.Now,
			produce: sysinfoProducer, dest: dest,
		})
	}

	if cfg.Slurm.Cadence > 0 {
		jobsProducer := &producer.JobsProducer{
			Source: slurm.NewSource(), Window: cfg.Slurm.Window,
			Meta: meta, Cluster: cfg.Global.Cluster, Clock: plat,
		}
		probes = append(probes, &probe[jobsdata.Attributes]{
			name: "jobs", cadence: cfg.Slurm.Cadence, kind: sink.KindJobs,
			node: hostname, cluster: cfg.Global.Cluster, clock: time.Now,
			produce: jobsProducer, dest: dest,
		})
	}

	if cfg.Cluster.Cadence > 0 {
		clusterProducer := &producer.ClusterProducer{
			Nodes:      clusterNodeLister(cfg.Cluster),
			Resolver:   &net.Resolver{},
			Partitions: slurm.NewPartitionSource(),
			Meta:       meta, Cluster: cfg.Global.Cluster, Clock: plat,
		}
		probes = append(probes, &probe[clusterdata.Attributes]{
			name: "cluster", cadence: cfg.Cluster.Cadence, kind: sink.KindCluster,
			node: hostname, cluster: cfg.Global.Cluster, clock: time.Now,
			produce: clusterProducer, dest: dest,
		})
	}

	return probes
}

// clusterNodeLister selects the configured node-membership source:
// Kubernetes when [cluster] provider=k8s, else the static node list.
func clusterNodeLister(cfg config.ClusterConfig) producer.NodeLister {
	if cfg.Provider == "k8s" {
		return node.NewLister(node.ListOptions{})
	}
	return producer.StaticNodeLister(cfg.Nodes)
}

// accumulatorReportingSampleProducer wraps SampleProducer.Produce to report
// the accumulator's size metric after each firing, since the scheduler's
// Hooks struct has no direct line of sight into a producer's internal state.
type accumulatorReportingSampleProducer struct {
	*producer.SampleProducer
}

func (p accumulatorReportingSampleProducer) Produce(ctx context.Context) []sampledata.Envelope {
	out := p.SampleProducer.Produce(ctx)
	metrics.SetAccumulatorSize(p.SampleProducer.Accumulator.Size())
	return out
}

// buildMetricsServer wraps the optional health/ready/metrics HTTP surface
// around cfg.Global.MetricsAddress ("host:port").
func buildMetricsServer(addr string) (*server.Server, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("metrics-address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("metrics-address %q: invalid port: %w", addr, err)
	}

	srvCfg := server.NewConfig()
	srvCfg.Address = host
	srvCfg.Port = port

	return server.New(server.WithConfig(srvCfg), server.WithName("sonar"), server.WithVersion(sonarVersion)), nil
}
