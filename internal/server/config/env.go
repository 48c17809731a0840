package config

import "os"

// parseEnv overlays Config fields from environment variables. Only variables
// that are set and non-empty override the current values.
//
// Recognized variables:
//
//	RUN_ADDR            HTTP bind address
//	DATABASE_DSN        PostgreSQL DSN
//	SECRET_KEY          JWT HMAC secret
//	MAILER_URL          OTP mail service base URL
//	S3_ROOT_USER        S3 credentials
//	S3_ROOT_PASSWORD    S3 credentials
//	S3_BUCKET           S3 bucket for CSV archives
//	S3_REGION           S3 region
//	S3_BASE_ENDPOINT    S3 endpoint; empty keeps archival disabled
//	GOOGLE_CLIENT_ID    Google OAuth client id
//	GOOGLE_REDIRECT_URI Google OAuth redirect URI
func parseEnv(config *Config) {
	setIfPresent := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	setIfPresent(&config.RunAddr, "RUN_ADDR")
	setIfPresent(&config.DatabaseDSN, "DATABASE_DSN")
	setIfPresent(&config.SecretKey, "SECRET_KEY")
	setIfPresent(&config.MailerURL, "MAILER_URL")
	setIfPresent(&config.S3RootUser, "S3_ROOT_USER")
	setIfPresent(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setIfPresent(&config.S3Bucket, "S3_BUCKET")
	setIfPresent(&config.S3Region, "S3_REGION")
	setIfPresent(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setIfPresent(&config.GoogleClientID, "GOOGLE_CLIENT_ID")
	setIfPresent(&config.GoogleRedirectURI, "GOOGLE_REDIRECT_URI")
}
