// Command sonar is the HPC cluster telemetry agent: a daemon that samples
// per-job process activity, static system inventory, resource-manager job
// records, and cluster node membership on independent cadences, and ships
// each to a configured sink.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nordichpc/sonar/pkg/cli"
)

func main() {
	if err := cli.NewApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sonar:", err)
		os.Exit(1)
	}
}
