// Package config handles configuration for the mailer component,
// including defaults, JSON overlay, environment variables, and
// command-line flags.
package config

import "time"

// Config holds runtime settings for the OTP mail service.
//
// Fields:
//   - RunAddr: bind address for the HTTP endpoint.
//   - SMTPHost: SMTP relay host. Empty switches the service to console
//     mode, where messages are logged instead of sent.
//   - SMTPPort: SMTP relay port.
//   - SMTPUser / SMTPPassword: relay credentials; empty user disables auth.
//   - From: sender address on outgoing mail.
//   - SendTimeout: budget for one SMTP delivery.
type Config struct {
	RunAddr      string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	SendTimeout  time.Duration
}

// LoadDefaults populates Config with development defaults: console mode on
// the port the backend expects.
func (c *Config) LoadDefaults() {
	c.RunAddr = ":3001"
	c.SMTPHost = ""
	c.SMTPPort = 587
	c.SMTPUser = ""
	c.SMTPPassword = ""
	c.From = "EquipSense <no-reply@equipsense.local>"
	c.SendTimeout = 10 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, environment variables, and finally
// command-line flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
