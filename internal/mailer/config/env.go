package config

import (
	"os"
	"strconv"
)

// parseEnv overlays Config fields from environment variables. Only variables
// that are set and non-empty override the current values.
//
// Recognized variables:
//
//	RUN_ADDR       HTTP bind address
//	SMTP_HOST      SMTP relay host; empty keeps console mode
//	SMTP_PORT      SMTP relay port
//	SMTP_USER      SMTP credentials
//	SMTP_PASSWORD  SMTP credentials
//	SMTP_FROM      From header for outgoing mail
func parseEnv(config *Config) {
	setIfPresent := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	setIfPresent(&config.RunAddr, "RUN_ADDR")
	setIfPresent(&config.SMTPHost, "SMTP_HOST")
	setIfPresent(&config.SMTPUser, "SMTP_USER")
	setIfPresent(&config.SMTPPassword, "SMTP_PASSWORD")
	setIfPresent(&config.From, "SMTP_FROM")

	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.SMTPPort = port
		}
	}
}
