package models

import "time"

// LoginAttempt is an audit row recorded for every login, successful or not.
// Failed attempts feed the per-IP / per-identifier rate limit.
type LoginAttempt struct {
	ID              int64
	UserNameOrEmail string
	IPAddress       string
	Success         bool
	FailureReason   string
	UserAgent       string
	AttemptedAt     time.Time
}
