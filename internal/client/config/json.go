package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/equipsense/equipsense/internal/flagx"
	"github.com/equipsense/equipsense/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the timeout either as a string like
// "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	ReportsDir         string         `json:"reports_dir"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags or the CONFIG environment variable;
// when neither is set nothing is loaded. Only keys present in the file
// override current values. Panics on read or unmarshal errors.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags("CONFIG")

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.ServerEndpointAddr != "" {
		config.ServerEndpointAddr = c.ServerEndpointAddr
	}
	if c.RequestTimeout.Duration > 0 {
		config.RequestTimeout = time.Duration(c.RequestTimeout.Duration)
	}
	if c.ReportsDir != "" {
		config.ReportsDir = c.ReportsDir
	}
}
