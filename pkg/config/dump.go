package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

const redacted = "********"

// redactedView is a copy of Config with secrets replaced, used by Dump so
// operators can share a config dump without leaking SASL credentials.
func (c *Config) redactedView() *Config {
	cp := *c
	if cp.Broker.SASLPass != "" {
		cp.Broker.SASLPass = redacted
	}
	return &cp
}

// DumpJSON renders the effective configuration as JSON with secrets
// redacted, for `sonar config dump --format json`.
func (c *Config) DumpJSON() ([]byte, error) {
	return json.MarshalIndent(c.redactedView(), "", "  ")
}

// DumpYAML renders the effective configuration as YAML with secrets
// redacted, for `sonar config dump --format yaml`.
func (c *Config) DumpYAML() ([]byte, error) {
	return yaml.Marshal(c.redactedView())
}
