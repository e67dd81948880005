package metrics

import "fmt"

// DefaultPrometheusAddr is the listen address of the /metrics endpoint.
const DefaultPrometheusAddr = ":9108"

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool         `json:"prometheus_enabled"`
	PrometheusAddr    string       `json:"prometheus_addr"`
	Influx            InfluxConfig `json:"influx"`
}

// InfluxConfig holds the InfluxDB v2 write parameters.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = DefaultPrometheusAddr
	}
}

// Validate checks the fields required by enabled sinks.
func (c Config) Validate() error {
	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Bucket == "") {
		return fmt.Errorf("influx sink requires url and bucket")
	}
	return nil
}
