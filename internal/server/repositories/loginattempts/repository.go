// Package loginattempts records login audit rows and answers the
// rate-limit and dashboard queries derived from them.
package loginattempts

import (
	"context"
	"time"

	"github.com/equipsense/equipsense/internal/server/models"
)

type Repository interface {
	// Record appends an audit row for a login attempt.
	Record(ctx context.Context, attempt *models.LoginAttempt) error

	// CountRecentFailures counts failed attempts since the cutoff matching
	// either the client IP or the identifier the client tried.
	CountRecentFailures(ctx context.Context, ip string, identifier string, since time.Time) (int, error)

	// CountActiveSessions counts distinct identifiers with a successful
	// login since the cutoff.
	CountActiveSessions(ctx context.Context, since time.Time) (int, error)
}
