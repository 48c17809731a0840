package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/equipsense/equipsense/internal/common"
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

const otpColumns = `id, email, otp_code, purpose, is_verified, attempts, max_attempts,
	created_at, expires_at, verified_at, ip_address, temp_username, temp_first_name, temp_last_name`

type scanner interface {
	Scan(dest ...any) error
}

func scanOTP(row scanner) (*models.OTPRecord, error) {
	otp := &models.OTPRecord{}
	var verifiedAt sql.NullTime
	err := row.Scan(&otp.ID, &otp.Email, &otp.OTPCode, &otp.Purpose, &otp.IsVerified,
		&otp.Attempts, &otp.MaxAttempts, &otp.CreatedAt, &otp.ExpiresAt, &verifiedAt,
		&otp.IPAddress, &otp.TempUserName, &otp.TempFirstName, &otp.TempLastName)
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		otp.VerifiedAt = &t
	}
	return otp, nil
}

func (r *PostgresRepository) Create(ctx context.Context, otp *models.OTPRecord) (*models.OTPRecord, error) {
	query := `
		INSERT INTO otp_records (email, otp_code, purpose, expires_at, ip_address,
			temp_username, temp_first_name, temp_last_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, attempts, max_attempts, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		otp.Email, otp.OTPCode, otp.Purpose, otp.ExpiresAt, otp.IPAddress,
		otp.TempUserName, otp.TempFirstName, otp.TempLastName).
		Scan(&otp.ID, &otp.Attempts, &otp.MaxAttempts, &otp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return otp, nil
}

func (r *PostgresRepository) InvalidateAll(ctx context.Context, email string, purpose string) error {
	query := `
		UPDATE otp_records SET is_verified = TRUE
		WHERE email = $1 AND purpose = $2 AND is_verified = FALSE
	`
	if _, err := r.db.ExecContext(ctx, query, email, purpose); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) latest(ctx context.Context, condition string, order string, email string, purpose string) (*models.OTPRecord, error) {
	query := `SELECT ` + otpColumns + ` FROM otp_records
		WHERE email = $1 AND purpose = $2` + condition + `
		ORDER BY ` + order + ` DESC LIMIT 1`
	otp, err := scanOTP(r.db.QueryRowContext(ctx, query, email, purpose))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return otp, nil
}

func (r *PostgresRepository) Latest(ctx context.Context, email string, purpose string) (*models.OTPRecord, error) {
	return r.latest(ctx, ``, `created_at`, email, purpose)
}

func (r *PostgresRepository) LatestUnverified(ctx context.Context, email string, purpose string) (*models.OTPRecord, error) {
	return r.latest(ctx, ` AND is_verified = FALSE`, `created_at`, email, purpose)
}

func (r *PostgresRepository) LatestVerified(ctx context.Context, email string, purpose string) (*models.OTPRecord, error) {
	// InvalidateAll flips is_verified without stamping verified_at, and
	// NULLs sort first under ORDER BY ... DESC, so invalidated records
	// must be filtered out here.
	return r.latest(ctx, ` AND is_verified = TRUE AND verified_at IS NOT NULL`, `verified_at`, email, purpose)
}

func (r *PostgresRepository) UpdateAttempts(ctx context.Context, id string, attempts int) error {
	query := `
		UPDATE otp_records SET attempts = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, attempts); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string, attempts int) error {
	query := `
		UPDATE otp_records SET attempts = $2, is_verified = TRUE, verified_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, attempts); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
