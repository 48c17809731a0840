package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

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

var userCols = []string{
	"id", "username", "email", "password_hash", "first_name", "last_name",
	"is_active", "is_admin", "is_email_verified", "google_id", "profile_picture",
	"phone_number", "last_login_ip", "login_count", "last_login_at", "created_at", "updated_at",
}

func userRow(t time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow("u-1", "alice", "alice@example.com", "hash", "Alice", "Smith",
			true, false, true, "", "", "", "127.0.0.1", 3, nil, t, t)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*email,\s*password_hash,.*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("u-1", now, now)
	mock.ExpectQuery(q).
		WithArgs("alice", "alice@example.com", "hash", "Alice", "Smith",
			true, false, true, "", "", "").
		WillReturnRows(rows)

	u := &models.User{
		UserName: "alice", Email: "alice@example.com", PasswordHash: "hash",
		FirstName: "Alice", LastName: "Smith", IsActive: true, IsEmailVerified: true,
	}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\b`

	mock.ExpectQuery(q).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", Email: "a@b.c"})
	if !errors.Is(err, common.ErrorDuplicate) {
		t.Fatalf("want common.ErrorDuplicate, got %v", err)
	}
}

func TestGetByUserName_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*username,\s*email,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`

	mock.ExpectQuery(q).WithArgs("alice").WillReturnRows(userRow(time.Now()))

	got, err := repo.GetByUserName(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUserName error: %v", err)
	}
	if got.ID != "u-1" || got.UserName != "alice" || got.LastLoginAt != nil {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*username,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`

	mock.ExpectQuery(q).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*username,\s*email,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectQuery(q).WithArgs("u-1").WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestEmailExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\)\s*$`

	mock.ExpectQuery(q).WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	got, err := repo.EmailExists(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("EmailExists error: %v", err)
	}
	if !got {
		t.Fatalf("expected true")
	}
}

func TestRecordLogin(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+last_login_ip\s*=\s*\$2,\s*last_login_at\s*=\s*now\(\),\s*login_count\s*=\s*login_count\s*\+\s*1.*WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("u-1", "10.0.0.1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RecordLogin(context.Background(), "u-1", "10.0.0.1"); err != nil {
		t.Fatalf("RecordLogin error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetAdmin_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+is_admin\s*=\s*\$2,.*WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("u-1", true).WillReturnError(errors.New("db err"))

	err := repo.SetAdmin(context.Background(), "u-1", true)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "u-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}

func TestList_RoleAndSearch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+NOT\s+is_admin\s+AND\s+\(username\s+ILIKE\s+\$1\s+OR\s+email\s+ILIKE\s+\$1.*ORDER\s+BY\s+created_at\s+DESC\s*$`

	mock.ExpectQuery(q).WithArgs("%ali%").WillReturnRows(userRow(time.Now()))

	got, err := repo.List(context.Background(), ListFilter{Role: "user", Search: "ali"})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 || got[0].UserName != "alice" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestList_NoFilter(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+ORDER\s+BY\s+created_at\s+DESC\s*$`

	mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows(userCols))

	got, err := repo.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestStats(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+count\(\*\)\s+FILTER\s+\(WHERE\s+NOT\s+is_admin\),.*FROM\s+users\s*$`

	rows := sqlmock.NewRows([]string{"users", "admins", "verified", "recent"}).AddRow(10, 2, 7, 3)
	mock.ExpectQuery(q).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

	got, err := repo.Stats(context.Background(), time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if got.TotalUsers != 10 || got.TotalAdmins != 2 || got.VerifiedUsers != 7 || got.RecentRegistrations != 3 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}
