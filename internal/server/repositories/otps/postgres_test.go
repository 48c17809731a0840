package otps

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var otpCols = []string{
	"id", "email", "otp_code", "purpose", "is_verified", "attempts", "max_attempts",
	"created_at", "expires_at", "verified_at", "ip_address", "temp_username",
	"temp_first_name", "temp_last_name",
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+otp_records\s*\(email,\s*otp_code,\s*purpose,\s*expires_at,.*RETURNING\s+id,\s*attempts,\s*max_attempts,\s*created_at\s*$`

	now := time.Now()
	expires := now.Add(5 * time.Minute)
	rows := sqlmock.NewRows([]string{"id", "attempts", "max_attempts", "created_at"}).
		AddRow("otp-1", 0, 5, now)
	mock.ExpectQuery(q).
		WithArgs("alice@example.com", "042137", models.OTPPurposeRegistration, expires,
			"10.0.0.1", "alice", "Alice", "Smith").
		WillReturnRows(rows)

	otp := &models.OTPRecord{
		Email: "alice@example.com", OTPCode: "042137",
		Purpose: models.OTPPurposeRegistration, ExpiresAt: expires,
		IPAddress: "10.0.0.1", TempUserName: "alice",
		TempFirstName: "Alice", TempLastName: "Smith",
	}
	got, err := repo.Create(context.Background(), otp)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "otp-1" || got.MaxAttempts != 5 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+otp_records\b`

	mock.ExpectQuery(q).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.OTPRecord{})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestInvalidateAll(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+otp_records\s+SET\s+is_verified\s*=\s*TRUE\s+WHERE\s+email\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+AND\s+is_verified\s*=\s*FALSE\s*$`

	mock.ExpectExec(q).
		WithArgs("alice@example.com", models.OTPPurposeRegistration).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.InvalidateAll(context.Background(), "alice@example.com", models.OTPPurposeRegistration)
	if err != nil {
		t.Fatalf("InvalidateAll error: %v", err)
	}
}

func TestLatestUnverified_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*email,\s*otp_code,.*FROM\s+otp_records\s+WHERE\s+email\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+AND\s+is_verified\s*=\s*FALSE\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+1\s*$`

	now := time.Now()
	rows := sqlmock.NewRows(otpCols).
		AddRow("otp-1", "alice@example.com", "042137", "registration", false, 1, 5,
			now, now.Add(5*time.Minute), nil, "10.0.0.1", "alice", "Alice", "Smith")
	mock.ExpectQuery(q).
		WithArgs("alice@example.com", "registration").
		WillReturnRows(rows)

	got, err := repo.LatestUnverified(context.Background(), "alice@example.com", "registration")
	if err != nil {
		t.Fatalf("LatestUnverified error: %v", err)
	}
	if got.OTPCode != "042137" || got.VerifiedAt != nil || got.Attempts != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestLatest_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*email,\s*otp_code,.*FROM\s+otp_records\s+WHERE\s+email\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+1\s*$`

	mock.ExpectQuery(q).
		WithArgs("ghost@example.com", "registration").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Latest(context.Background(), "ghost@example.com", "registration")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestLatestVerified_OrdersByVerifiedAt(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*WHERE\s+email\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+AND\s+is_verified\s*=\s*TRUE\s+AND\s+verified_at\s+IS\s+NOT\s+NULL\s+ORDER\s+BY\s+verified_at\s+DESC\s+LIMIT\s+1\s*$`

	now := time.Now()
	verified := now.Add(-time.Minute)
	rows := sqlmock.NewRows(otpCols).
		AddRow("otp-2", "alice@example.com", "831245", "password_reset", true, 1, 5,
			now.Add(-2*time.Minute), now.Add(8*time.Minute), verified, "", "", "", "")
	mock.ExpectQuery(q).
		WithArgs("alice@example.com", "password_reset").
		WillReturnRows(rows)

	got, err := repo.LatestVerified(context.Background(), "alice@example.com", "password_reset")
	if err != nil {
		t.Fatalf("LatestVerified error: %v", err)
	}
	if got.VerifiedAt == nil || !got.VerifiedAt.Equal(verified) {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestUpdateAttempts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+otp_records\s+SET\s+attempts\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("otp-1", 2).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateAttempts(context.Background(), "otp-1", 2); err != nil {
		t.Fatalf("UpdateAttempts error: %v", err)
	}
}

func TestMarkVerified(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+otp_records\s+SET\s+attempts\s*=\s*\$2,\s*is_verified\s*=\s*TRUE,\s*verified_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("otp-1", 1).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkVerified(context.Background(), "otp-1", 1); err != nil {
		t.Fatalf("MarkVerified error: %v", err)
	}
}

func TestMarkVerified_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+otp_records\s+SET\s+attempts\s*=\s*\$2,\s*is_verified\s*=\s*TRUE`

	mock.ExpectExec(q).WithArgs("otp-1", 1).WillReturnError(errors.New("db err"))

	err := repo.MarkVerified(context.Background(), "otp-1", 1)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
