// Package models defines server-side data models persisted in the database.
package models

import "time"

// OTP purposes. Login is part of the enum for forward compatibility but no
// login-by-OTP flow exists yet.
const (
	OTPPurposeRegistration      = "registration"
	OTPPurposeLogin             = "login"
	OTPPurposePasswordReset     = "password_reset"
	OTPPurposeEmailVerification = "email_verification"
)

// OTPRecord is a one-time verification code sent by e-mail. Records for a
// pending registration also carry the submitted account details in the
// Temp* fields until the account row is created.
type OTPRecord struct {
	ID            string
	Email         string
	OTPCode       string
	Purpose       string
	IsVerified    bool
	Attempts      int
	MaxAttempts   int
	CreatedAt     time.Time
	ExpiresAt     time.Time
	VerifiedAt    *time.Time
	IPAddress     string
	TempUserName  string
	TempFirstName string
	TempLastName  string
}

func (o *OTPRecord) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Usable reports whether the code may still be verified: not consumed,
// not expired, attempts remaining.
func (o *OTPRecord) Usable(now time.Time) bool {
	return !o.IsVerified && !o.Expired(now) && o.Attempts < o.MaxAttempts
}

// RemainingSeconds reports the whole seconds until expiry, 0 when expired.
func (o *OTPRecord) RemainingSeconds(now time.Time) int {
	if o.Expired(now) {
		return 0
	}
	return int(o.ExpiresAt.Sub(now).Seconds())
}
