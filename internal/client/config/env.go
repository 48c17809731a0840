package config

import "os"

// parseEnv overlays Config fields from environment variables. Only variables
// that are set and non-empty override the current values.
//
// Recognized variables:
//
//	SERVER_ENDPOINT_ADDR  base URL of the API server
//	REPORTS_DIR           directory for downloaded reports
func parseEnv(config *Config) {
	setIfPresent := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	setIfPresent(&config.ServerEndpointAddr, "SERVER_ENDPOINT_ADDR")
	setIfPresent(&config.ReportsDir, "REPORTS_DIR")
}
