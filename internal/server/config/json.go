package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/equipsense/equipsense/internal/flagx"
	"github.com/equipsense/equipsense/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO (Data Transfer Object) used only for
// reading JSON configuration files. After unmarshalling, its fields are
// copied into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	RunAddr                      string         `json:"run_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RememberMeValidityDuration   timex.Duration `json:"remember_me_validity_duration"`
	MailerURL                    string         `json:"mailer_url"`
	DatasetHistoryLimit          int            `json:"dataset_history_limit"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	GoogleClientID               string         `json:"google_client_id"`
	GoogleRedirectURI            string         `json:"google_redirect_uri"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags, then the CONFIG environment
//	variable. If neither is set, no JSON file is loaded.
//
// Only keys present in the file override the current Config values; omitted
// keys keep their defaults. If the file cannot be read or contains invalid
// JSON, the function panics.
//
// The caller is expected to merge these values with environment variables
// and command-line flags as part of the full configuration process.
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
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	}
	if c.RememberMeValidityDuration.Duration > 0 {
		config.RememberMeValidityDuration = time.Duration(c.RememberMeValidityDuration.Duration)
	}
	if c.MailerURL != "" {
		config.MailerURL = c.MailerURL
	}
	if c.DatasetHistoryLimit > 0 {
		config.DatasetHistoryLimit = c.DatasetHistoryLimit
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.GoogleClientID != "" {
		config.GoogleClientID = c.GoogleClientID
	}
	if c.GoogleRedirectURI != "" {
		config.GoogleRedirectURI = c.GoogleRedirectURI
	}
}
