package config

import "strings"

// Telemetry holds the OTLP exporter settings for vaultd.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

func (t *Telemetry) normalize() {
	if strings.TrimSpace(t.Endpoint) == "" {
		t.Endpoint = "localhost:4318"
	}
}

// Enabled reports whether any exporter is switched on.
func (t Telemetry) Enabled() bool {
	return t.Metrics || t.Traces
}
