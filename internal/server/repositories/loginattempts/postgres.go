package loginattempts

import (
	"context"
	"fmt"
	"time"

	"github.com/equipsense/equipsense/internal/dbx"
	"github.com/equipsense/equipsense/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (username_or_email, ip_address, success, failure_reason, user_agent)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		attempt.UserNameOrEmail, attempt.IPAddress, attempt.Success,
		attempt.FailureReason, attempt.UserAgent)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountRecentFailures(ctx context.Context, ip string, identifier string, since time.Time) (int, error) {
	query := `
		SELECT count(*) FROM login_attempts
		WHERE (ip_address = $1 OR username_or_email = $2)
			AND success = FALSE AND attempted_at >= $3
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, ip, identifier, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) CountActiveSessions(ctx context.Context, since time.Time) (int, error) {
	query := `
		SELECT count(DISTINCT username_or_email) FROM login_attempts
		WHERE success = TRUE AND attempted_at >= $1
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}
