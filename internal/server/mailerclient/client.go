// Package mailerclient is the HTTP client for the OTP mail microservice.
// The API server never speaks SMTP itself; codes are posted to the mailer
// over its JSON API and the mailer does the rendering and delivery.
package mailerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/equipsense/equipsense/internal/logging"
)

// sendPath is the delivery endpoint on the mailer service.
const sendPath = "/api/otp/send"

// requestTimeout bounds a single delivery attempt.
const requestTimeout = 10 * time.Second

// Retry shape for transient delivery failures. Vars so tests can tighten
// the schedule.
var (
	sendAttempts   uint = 3
	sendRetryDelay      = 500 * time.Millisecond
)

// sendRequest is the mailer's delivery payload.
type sendRequest struct {
	Email     string `json:"email"`
	OTP       string `json:"otp"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Purpose   string `json:"purpose"`
}

// sendResponse is the mailer's reply envelope.
type sendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client posts one-time codes to the mailer service for email delivery.
// It satisfies the OTP sender seam of the registration and password-reset
// services.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logging.Logger
}

// New returns a client for the mailer service at baseURL.
func New(baseURL string, log logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

// SendOTP delivers a code to the address through the mailer service.
// Transport errors and 5xx responses are retried on a fixed schedule; a
// definite refusal (4xx, or a 200 with success=false) is returned as is.
func (c *Client) SendOTP(ctx context.Context, email string, otpCode string, firstName string, lastName string, purpose string) error {
	body, err := json.Marshal(sendRequest{
		Email:     email,
		OTP:       otpCode,
		FirstName: firstName,
		LastName:  lastName,
		Purpose:   purpose,
	})
	if err != nil {
		return fmt.Errorf("error encoding otp request: %w", err)
	}

	return retry.Do(func() error {
		return c.post(ctx, body)
	},
		retry.Context(ctx),
		retry.Attempts(sendAttempts),
		retry.Delay(sendRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn(ctx, "retrying OTP delivery", "attempt", n+1, "error", err)
		}),
	)
}

// post performs one delivery attempt.
func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("error building otp request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling mailer service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("mailer service returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// The payload will not get better on a retry.
			return retry.Unrecoverable(err)
		}
		return err
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("error decoding mailer response: %w", err)
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "delivery failed"
		}
		return retry.Unrecoverable(fmt.Errorf("mailer service refused delivery: %s", msg))
	}
	return nil
}
