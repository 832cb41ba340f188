// Package config parses the agent's INI-format configuration file (spec
// §6) into a typed Config, validating every recognized section and key.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/nordichpc/sonar/pkg/sonarerrors"
	"gopkg.in/ini.v1"
)

// Role is the [global] role option: a node agent or a cluster-wide master
// instance (the master role differs only in which probes make sense to run;
// the core engine treats both identically).
type Role string

const (
	RoleNode   Role = "node"
	RoleMaster Role = "master"
)

// SinkKind selects exactly one of the three sink variants.
type SinkKind string

const (
	SinkDirectory SinkKind = "directory"
	SinkStdio     SinkKind = "stdio"
	SinkBroker    SinkKind = "broker"
)

// GlobalConfig is the [global] section.
type GlobalConfig struct {
	Cluster       string
	Role          Role
	LockDirectory string
	MetricsAddress string // ambient extension, see SPEC_FULL.md §4.9
	// Token is an opaque authorization token carried unchanged into every
	// envelope's meta.token field (SPEC_FULL.md §4.10); never validated here.
	Token string
}

// SampleConfig is the [sample] section.
type SampleConfig struct {
	Cadence           time.Duration
	Batchless         bool
	Load              bool
	Rollup            bool
	MinCPUTime        time.Duration
	ExcludeSystemJobs bool
	ExcludedUsers     []string
}

// SysinfoConfig is the [sysinfo] section.
type SysinfoConfig struct {
	Cadence time.Duration
}

// SlurmConfig is the [slurm] section.
type SlurmConfig struct {
	Cadence time.Duration
	Window  time.Duration
}

// ClusterConfig is the [cluster] section.
type ClusterConfig struct {
	Cadence  time.Duration
	Domain   string
	Provider string // "" (static node list) or "k8s", per SPEC_FULL.md §4.9
	// Nodes is the static node membership list used when Provider is "",
	// per SPEC_FULL.md §4.9; ignored when Provider is "k8s".
	Nodes []string
}

// DirectorySinkConfig is the [directory] section.
type DirectorySinkConfig struct {
	Root string
}

// BrokerSinkConfig is the [broker] section.
type BrokerSinkConfig struct {
	Endpoint    string
	SASLUser    string
	SASLPass    string
	CAFile      string
	TopicPrefix string
}

// Config is the fully parsed and validated agent configuration.
type Config struct {
	Global    GlobalConfig
	Sample    SampleConfig
	Sysinfo   SysinfoConfig
	Slurm     SlurmConfig
	Cluster   ClusterConfig
	Sink      SinkKind
	Directory DirectorySinkConfig
	Broker    BrokerSinkConfig
}

// Load reads and validates the INI file at path.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, sonarerrors.Wrap(sonarerrors.ErrCodeConfig, "read config file", err)
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Config, error) {
	cfg := &Config{
		Sample: SampleConfig{Cadence: 10 * time.Second},
	}

	global := f.Section("global")
	cfg.Global.Cluster = global.Key("cluster").String()
	if cfg.Global.Cluster == "" {
		return nil, sonarerrors.New(sonarerrors.ErrCodeConfig, "[global] cluster is required")
	}
	role := Role(strings.ToLower(global.Key("role").MustString(string(RoleNode))))
	if role != RoleNode && role != RoleMaster {
		return nil, sonarerrors.New(sonarerrors.ErrCodeConfig, fmt.Sprintf("[global] role: unknown value %q", role))
	}
	cfg.Global.Role = role
	cfg.Global.LockDirectory = global.Key("lock-directory").String()
	cfg.Global.MetricsAddress = global.Key("metrics-address").String()
	cfg.Global.Token = global.Key("token").String()

	if f.HasSection("sample") {
		s := f.Section("sample")
		if raw := s.Key("cadence").String(); raw != "" {
			d, err := durationKey("sample.cadence", raw)
			if err != nil {
				return nil, err
			}
			cfg.Sample.Cadence = d
		}
		cfg.Sample.Batchless = s.Key("batchless").MustBool(false)
		cfg.Sample.Load = s.Key("load").MustBool(false)
		cfg.Sample.Rollup = s.Key("rollup").MustBool(false)
		cfg.Sample.ExcludeSystemJobs = s.Key("exclude-system-jobs").MustBool(false)
		if raw := s.Key("min-cpu-time").String(); raw != "" {
			d, err := durationKey("sample.min-cpu-time", raw)
			if err != nil {
				return nil, err
			}
			cfg.Sample.MinCPUTime = d
		}
		if raw := s.Key("excluded-users").String(); raw != "" {
			for _, u := range strings.Split(raw, ",") {
				if u = strings.TrimSpace(u); u != "" {
					cfg.Sample.ExcludedUsers = append(cfg.Sample.ExcludedUsers, u)
				}
			}
		}
	}

	if f.HasSection("sysinfo") {
		if raw := f.Section("sysinfo").Key("cadence").String(); raw != "" {
			d, err := durationKey("sysinfo.cadence", raw)
			if err != nil {
				return nil, err
			}
			cfg.Sysinfo.Cadence = d
		}
	}

	if f.HasSection("slurm") {
		s := f.Section("slurm")
		if raw := s.Key("cadence").String(); raw != "" {
			d, err := durationKey("slurm.cadence", raw)
			if err != nil {
				return nil, err
			}
			cfg.Slurm.Cadence = d
		}
		if raw := s.Key("window").String(); raw != "" {
			d, err := durationKey("slurm.window", raw)
			if err != nil {
				return nil, err
			}
			cfg.Slurm.Window = d
		}
	}

	if f.HasSection("cluster") {
		s := f.Section("cluster")
		if raw := s.Key("cadence").String(); raw != "" {
			d, err := durationKey("cluster.cadence", raw)
			if err != nil {
				return nil, err
			}
			cfg.Cluster.Cadence = d
		}
		cfg.Cluster.Domain = s.Key("domain").String()
		cfg.Cluster.Provider = s.Key("provider").String()
		if raw := s.Key("nodes").String(); raw != "" {
			for _, n := range strings.Split(raw, ",") {
				if n = strings.TrimSpace(n); n != "" {
					cfg.Cluster.Nodes = append(cfg.Cluster.Nodes, n)
				}
			}
		}
	}

	if err := parseSink(f, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationKey(name, raw string) (time.Duration, error) {
	d, err := ParseDuration(raw)
	if err != nil {
		return 0, sonarerrors.Wrap(sonarerrors.ErrCodeConfig, fmt.Sprintf("invalid duration for %s", name), err)
	}
	if d <= 0 {
		return 0, sonarerrors.New(sonarerrors.ErrCodeConfig, fmt.Sprintf("%s must be >= 1s, got %s", name, d))
	}
	return d, nil
}

func parseSink(f *ini.File, cfg *Config) error {
	present := make([]SinkKind, 0, 3)
	for _, kind := range []SinkKind{SinkDirectory, SinkStdio, SinkBroker} {
		if f.HasSection(string(kind)) {
			present = append(present, kind)
		}
	}

	switch len(present) {
	case 0:
		return sonarerrors.New(sonarerrors.ErrCodeConfig, "exactly one of [directory], [stdio], [broker] is required")
	case 1:
		// fallthrough to assignment below
	default:
		return sonarerrors.New(sonarerrors.ErrCodeConfig, fmt.Sprintf("exactly one sink section may appear, found %v", present))
	}

	cfg.Sink = present[0]
	switch cfg.Sink {
	case SinkDirectory:
		s := f.Section("directory")
		cfg.Directory.Root = s.Key("root").String()
		if cfg.Directory.Root == "" {
			return sonarerrors.New(sonarerrors.ErrCodeConfig, "[directory] root is required")
		}
	case SinkBroker:
		s := f.Section("broker")
		cfg.Broker.Endpoint = s.Key("endpoint").String()
		if cfg.Broker.Endpoint == "" {
			return sonarerrors.New(sonarerrors.ErrCodeConfig, "[broker] endpoint is required")
		}
		cfg.Broker.SASLUser = s.Key("sasl-user").String()
		cfg.Broker.SASLPass = s.Key("sasl-password").String()
		cfg.Broker.CAFile = s.Key("ca-file").String()
		cfg.Broker.TopicPrefix = s.Key("topic-prefix").String()
	case SinkStdio:
		// no options
	}
	return nil
}
