// Package mailer implements the OTP mail microservice. It accepts delivery
// requests from the API server over HTTP, renders purpose-specific email
// bodies and hands them to an SMTP relay, or to the log in console mode.
package mailer

import (
	"fmt"
	"regexp"
	"strings"
)

// Purposes a code may be requested for. They select the subject line and
// the validity window quoted in the body.
const (
	purposeRegistration      = "registration"
	purposeLogin             = "login"
	purposePasswordReset     = "password_reset"
	purposeEmailVerification = "email_verification"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	otpPattern   = regexp.MustCompile(`^[0-9]{6}$`)
)

// Request is the delivery payload posted by the API server.
type Request struct {
	Email     string `json:"email"`
	OTP       string `json:"otp"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Purpose   string `json:"purpose"`
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Compose validates the request and renders the email for its purpose.
// An empty purpose means registration; an unknown one is rejected.
func Compose(req *Request) (*Message, error) {
	if !emailPattern.MatchString(req.Email) {
		return nil, fmt.Errorf("invalid email address")
	}
	if !otpPattern.MatchString(req.OTP) {
		return nil, fmt.Errorf("otp must be 6 digits")
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = purposeRegistration
	}

	var subject, action, validity string
	var resetNote bool
	switch purpose {
	case purposeRegistration:
		subject = "Your EquipSense verification code"
		action = "complete your registration"
		validity = "5 minutes"
	case purposeLogin:
		subject = "Your EquipSense login code"
		action = "sign in to your account"
		validity = "5 minutes"
	case purposeEmailVerification:
		subject = "Verify your EquipSense email address"
		action = "verify your email address"
		validity = "5 minutes"
	case purposePasswordReset:
		subject = "Your EquipSense password reset code"
		action = "reset your password"
		validity = "10 minutes"
		resetNote = true
	default:
		return nil, fmt.Errorf("unknown purpose %q", purpose)
	}

	greeting := "Hello"
	if name := strings.TrimSpace(strings.TrimSpace(req.FirstName) + " " + strings.TrimSpace(req.LastName)); name != "" {
		greeting = "Hello " + name
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s,\n\n", greeting)
	fmt.Fprintf(&text, "Use this code to %s:\n\n", action)
	fmt.Fprintf(&text, "    %s\n\n", req.OTP)
	fmt.Fprintf(&text, "The code expires in %s.\n", validity)
	if resetNote {
		text.WriteString("\nIf you did not request a password reset, you can ignore this email.\n")
	}
	text.WriteString("\nEquipSense\n")

	var html strings.Builder
	html.WriteString(`<div style="font-family:Arial,sans-serif;max-width:480px;margin:0 auto">`)
	fmt.Fprintf(&html, "<p>%s,</p>", greeting)
	fmt.Fprintf(&html, "<p>Use this code to %s:</p>", action)
	fmt.Fprintf(&html, `<p style="font-size:28px;letter-spacing:6px;font-weight:bold">%s</p>`, req.OTP)
	fmt.Fprintf(&html, "<p>The code expires in %s.</p>", validity)
	if resetNote {
		html.WriteString("<p>If you did not request a password reset, you can ignore this email.</p>")
	}
	html.WriteString("<p>EquipSense</p></div>")

	return &Message{
		To:      req.Email,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
