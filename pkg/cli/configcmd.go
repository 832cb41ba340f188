package cli

import (
	"fmt"
	"os"

	"github.com/nordichpc/sonar/pkg/config"
)

// runConfigDump loads configPath and prints its secret-redacted effective
// configuration in the given format.
func runConfigDump(configPath, format string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config dump: %w", err)
	}

	var out []byte
	switch format {
	case "yaml":
		out, err = cfg.DumpYAML()
	default:
		out, err = cfg.DumpJSON()
	}
	if err != nil {
		return fmt.Errorf("config dump: %w", err)
	}

	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
