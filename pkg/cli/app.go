package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// formatFlag is shared by every one-shot and config command.
func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "output format: json, yaml, or table",
		Value: "json",
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "config",
		Usage: "path to the sonar INI configuration file",
	}
}

// NewApp builds the root `sonar` command: `daemon`, one firing per data
// kind (`sample`, `sysinfo`, `jobs`, `cluster`), and `config dump`.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "sonar",
		Usage:   "lightweight HPC cluster telemetry agent",
		Version: sonarVersion,
		Commands: []*cli.Command{
			daemonCommand(),
			sampleCommand(),
			sysinfoCommand(),
			jobsCommand(),
			clusterCommand(),
			configCommand(),
		},
	}
}

func daemonCommand() *cli.Command {
	return &cli.Command{
		Name:      "daemon",
		Usage:     "run every enabled probe on its configured cadence until signalled to stop",
		ArgsUsage: "<config.ini>",
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("daemon: a config file path is required")
			}
			return runDaemon(ctx, path)
		},
	}
}

func sampleCommand() *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "fire the sample probe once and print the resulting envelope(s)",
		Flags: []cli.Flag{configFlag(), formatFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runOneshotSample(ctx, c.String("config"), c.String("format"))
		},
	}
}

func sysinfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "sysinfo",
		Usage: "fire the sysinfo probe once and print the resulting envelope(s)",
		Flags: []cli.Flag{configFlag(), formatFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runOneshotSysinfo(ctx, c.String("config"), c.String("format"))
		},
	}
}

func jobsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "fire the jobs probe once and print the resulting envelope(s)",
		Flags: []cli.Flag{
			configFlag(),
			formatFlag(),
			&cli.DurationFlag{Name: "window", Usage: "lookback window for job activity (overrides [slurm] window)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runOneshotJobs(ctx, c.String("config"), c.String("format"), c.Duration("window"))
		},
	}
}

func clusterCommand() *cli.Command {
	return &cli.Command{
		Name:  "cluster",
		Usage: "fire the cluster probe once and print the resulting envelope(s)",
		Flags: []cli.Flag{configFlag(), formatFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runOneshotCluster(ctx, c.String("config"), c.String("format"))
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect the agent configuration",
		Commands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "print the parsed, secret-redacted configuration",
				ArgsUsage: "<config.ini>",
				Flags:     []cli.Flag{formatFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					path := c.Args().First()
					if path == "" {
						return fmt.Errorf("config dump: a config file path is required")
					}
					return runConfigDump(path, c.String("format"))
				},
			},
		},
	}
}
