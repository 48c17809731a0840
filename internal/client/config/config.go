// Package config loads the terminal client configuration from defaults, an
// optional JSON file, environment variables and command-line flags, in that
// order of precedence.
package config

import "time"

// Config holds runtime settings for the EquipSense CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the API server.
//   - RequestTimeout: per-request budget for API calls.
//   - ReportsDir: directory (under the working directory) where downloaded
//     PDF reports are written.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	ReportsDir         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://localhost:8000"
	c.RequestTimeout = 30 * time.Second
	c.ReportsDir = "reports"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present), environment variables and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
