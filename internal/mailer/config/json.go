package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/equipsense/equipsense/internal/flagx"
	"github.com/equipsense/equipsense/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling. timex.Duration lets the
// send timeout be written either as "10s" or as integer nanoseconds.
type JsonConfig struct {
	RunAddr      string         `json:"run_addr"`
	SMTPHost     string         `json:"smtp_host"`
	SMTPPort     int            `json:"smtp_port"`
	SMTPUser     string         `json:"smtp_user"`
	SMTPPassword string         `json:"smtp_password"`
	From         string         `json:"from"`
	SendTimeout  timex.Duration `json:"send_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config flags or the
// CONFIG environment variable; when neither is set nothing is loaded. Only
// keys present in the file override current values.
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

	if c.RunAddr != "" {
		config.RunAddr = c.RunAddr
	}
	if c.SMTPHost != "" {
		config.SMTPHost = c.SMTPHost
	}
	if c.SMTPPort > 0 {
		config.SMTPPort = c.SMTPPort
	}
	if c.SMTPUser != "" {
		config.SMTPUser = c.SMTPUser
	}
	if c.SMTPPassword != "" {
		config.SMTPPassword = c.SMTPPassword
	}
	if c.From != "" {
		config.From = c.From
	}
	if c.SendTimeout.Duration > 0 {
		config.SendTimeout = time.Duration(c.SendTimeout.Duration)
	}
}
