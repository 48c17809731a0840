// Package otps provides the PostgreSQL-backed repository for one-time
// verification codes used by registration and password reset.
package otps

import (
	"context"

	"github.com/equipsense/equipsense/internal/server/models"
)

type Repository interface {
	// Create inserts a new OTP record and fills in the generated fields.
	// Callers invalidate previous codes first (InvalidateAll).
	Create(ctx context.Context, otp *models.OTPRecord) (*models.OTPRecord, error)

	// InvalidateAll marks every code for (email, purpose) as verified so it
	// can no longer be used.
	InvalidateAll(ctx context.Context, email string, purpose string) error

	// Latest returns the most recently created code for (email, purpose)
	// regardless of state, or common.ErrorNotFound.
	Latest(ctx context.Context, email string, purpose string) (*models.OTPRecord, error)

	// LatestUnverified returns the most recently created code still awaiting
	// verification, or common.ErrorNotFound.
	LatestUnverified(ctx context.Context, email string, purpose string) (*models.OTPRecord, error)

	// LatestVerified returns the most recently verified code (by verification
	// time), or common.ErrorNotFound. Codes swept by InvalidateAll carry no
	// verification time and are not returned.
	LatestVerified(ctx context.Context, email string, purpose string) (*models.OTPRecord, error)

	// UpdateAttempts persists the attempt counter after a failed try.
	UpdateAttempts(ctx context.Context, id string, attempts int) error

	// MarkVerified persists the attempt counter and stamps the code verified.
	MarkVerified(ctx context.Context, id string, attempts int) error
}
