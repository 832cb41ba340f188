// Package cli implements the sonar command-line surface on top of
// github.com/urfave/cli/v3: `sonar daemon <config.ini>` runs the scheduler
// against every enabled probe until signalled to stop; `sonar sample`,
// `sonar sysinfo`, `sonar jobs`, and `sonar cluster` each fire one probe
// immediately and print the resulting envelope(s) to stdout; `sonar config
// dump` prints the parsed, secret-redacted configuration.
package cli
