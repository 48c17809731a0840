package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

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

// userColumns is the column list every row scan expects, in scanUser order.
const userColumns = `id, username, email, password_hash, first_name, last_name,
	is_active, is_admin, is_email_verified, COALESCE(google_id, ''), profile_picture,
	phone_number, last_login_ip, login_count, last_login_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime
	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.IsActive, &user.IsAdmin,
		&user.IsEmailVerified, &user.GoogleID, &user.ProfilePicture,
		&user.PhoneNumber, &user.LastLoginIP, &user.LoginCount,
		&lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	return user, nil
}

// Create inserts a new user row and fills in the generated fields.
// Racing duplicate usernames/emails surface as common.ErrorDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, first_name, last_name,
			is_active, is_admin, is_email_verified, google_id, profile_picture, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.IsActive, user.IsAdmin, user.IsEmailVerified, user.GoogleID,
		user.ProfilePicture, user.PhoneNumber).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, condition string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + condition
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx, `username = $1`, userName)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *PostgresRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getOne(ctx, `google_id = $1`, googleID)
}

func (r *PostgresRepository) exists(ctx context.Context, condition string, arg any) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE ` + condition + `)`
	var found bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) UserNameExists(ctx context.Context, userName string) (bool, error) {
	return r.exists(ctx, `username = $1`, userName)
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `email = $1`, email)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, userID string, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, passwordHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RecordLogin stores the client IP and bumps the login counter after a
// successful authentication.
func (r *PostgresRepository) RecordLogin(ctx context.Context, userID string, ip string) error {
	query := `
		UPDATE users
		SET last_login_ip = $2, last_login_at = now(), login_count = login_count + 1, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, ip); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// LinkGoogle attaches a Google subject to an existing account and marks the
// email verified (Google already verified ownership).
func (r *PostgresRepository) LinkGoogle(ctx context.Context, userID string, googleID string, profilePicture string) error {
	query := `
		UPDATE users
		SET google_id = $2,
			profile_picture = CASE WHEN $3 <> '' THEN $3 ELSE profile_picture END,
			is_email_verified = TRUE,
			updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, googleID, profilePicture); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, userID string, active bool) error {
	query := `
		UPDATE users SET is_active = $2, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, active); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	query := `
		UPDATE users SET is_admin = $2, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID, isAdmin); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	query := `
		DELETE FROM users
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// List returns users matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`

	var conds []string
	var args []any
	switch filter.Role {
	case "admin":
		conds = append(conds, `is_admin`)
	case "user":
		conds = append(conds, `NOT is_admin`)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(username ILIKE $%d OR email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)`,
			n, n, n, n))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Stats aggregates the dashboard counters in a single pass.
func (r *PostgresRepository) Stats(ctx context.Context, recentSince time.Time) (*Stats, error) {
	query := `
		SELECT
			count(*) FILTER (WHERE NOT is_admin),
			count(*) FILTER (WHERE is_admin),
			count(*) FILTER (WHERE is_email_verified),
			count(*) FILTER (WHERE created_at >= $1)
		FROM users
	`
	stats := &Stats{}
	err := r.db.QueryRowContext(ctx, query, recentSince).
		Scan(&stats.TotalUsers, &stats.TotalAdmins, &stats.VerifiedUsers, &stats.RecentRegistrations)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stats, nil
}
