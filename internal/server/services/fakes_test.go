package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/equipsense/equipsense/internal/dbx"
	"github.com/equipsense/equipsense/internal/logging"
	"github.com/equipsense/equipsense/internal/server/config"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/repositories/datasets"
	"github.com/equipsense/equipsense/internal/server/repositories/loginattempts"
	"github.com/equipsense/equipsense/internal/server/repositories/otps"
	"github.com/equipsense/equipsense/internal/server/repositories/refreshtokens"
	"github.com/equipsense/equipsense/internal/server/repositories/users"
)

// Fakes shared by the service tests in this package. Repositories are
// replaced with in-memory stubs driven by out/err fields; the *sql.DB is a
// sqlmock connection so transactional paths can assert Begin/Commit.

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 24 * time.Hour,
		RememberMeValidityDuration:   720 * time.Hour,
		DatasetHistoryLimit:          5,
	}
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeUsersRepo struct {
	createOut   *models.User
	createErr   error
	createdWith *models.User

	byIDOut *models.User
	byIDErr error

	byUserNameOut  *models.User
	byUserNameErr  error
	byUserNameWith string

	byEmailOut  *models.User
	byEmailErr  error
	byEmailWith string

	byGoogleIDOut *models.User
	byGoogleIDErr error

	userNameExistsOut  []bool
	userNameExistsErr  error
	userNameExistsWith []string

	emailExistsOut  bool
	emailExistsErr  error
	emailExistsWith string

	updateHashErr    error
	updateHashUserID string
	updateHashValue  string

	recordLoginErr    error
	recordLoginUserID string
	recordLoginIP     string

	linkGoogleErr     error
	linkGoogleUserID  string
	linkGoogleID      string
	linkGooglePicture string

	setActiveErr    error
	setActiveUserID string
	setActiveValue  bool

	setAdminErr    error
	setAdminUserID string
	setAdminValue  bool

	deleteErr    error
	deleteUserID string

	listOut  []*models.User
	listErr  error
	listWith users.ListFilter

	statsOut   *users.Stats
	statsErr   error
	statsSince time.Time
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.createdWith = user
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	created := *user
	created.ID = "user-created"
	return &created, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return f.byIDOut, f.byIDErr
}

func (f *fakeUsersRepo) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	f.byUserNameWith = userName
	return f.byUserNameOut, f.byUserNameErr
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.byEmailWith = email
	return f.byEmailOut, f.byEmailErr
}

func (f *fakeUsersRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return f.byGoogleIDOut, f.byGoogleIDErr
}

// UserNameExists pops answers from userNameExistsOut so collision loops can
// be scripted; an exhausted script answers false.
func (f *fakeUsersRepo) UserNameExists(ctx context.Context, userName string) (bool, error) {
	f.userNameExistsWith = append(f.userNameExistsWith, userName)
	if f.userNameExistsErr != nil {
		return false, f.userNameExistsErr
	}
	if len(f.userNameExistsOut) == 0 {
		return false, nil
	}
	out := f.userNameExistsOut[0]
	f.userNameExistsOut = f.userNameExistsOut[1:]
	return out, nil
}

func (f *fakeUsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	f.emailExistsWith = email
	return f.emailExistsOut, f.emailExistsErr
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, userID string, passwordHash string) error {
	f.updateHashUserID = userID
	f.updateHashValue = passwordHash
	return f.updateHashErr
}

func (f *fakeUsersRepo) RecordLogin(ctx context.Context, userID string, ip string) error {
	f.recordLoginUserID = userID
	f.recordLoginIP = ip
	return f.recordLoginErr
}

func (f *fakeUsersRepo) LinkGoogle(ctx context.Context, userID string, googleID string, profilePicture string) error {
	f.linkGoogleUserID = userID
	f.linkGoogleID = googleID
	f.linkGooglePicture = profilePicture
	return f.linkGoogleErr
}

func (f *fakeUsersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	f.setActiveUserID = userID
	f.setActiveValue = active
	return f.setActiveErr
}

func (f *fakeUsersRepo) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	f.setAdminUserID = userID
	f.setAdminValue = isAdmin
	return f.setAdminErr
}

func (f *fakeUsersRepo) Delete(ctx context.Context, userID string) error {
	f.deleteUserID = userID
	return f.deleteErr
}

func (f *fakeUsersRepo) List(ctx context.Context, filter users.ListFilter) ([]*models.User, error) {
	f.listWith = filter
	return f.listOut, f.listErr
}

func (f *fakeUsersRepo) Stats(ctx context.Context, recentSince time.Time) (*users.Stats, error) {
	f.statsSince = recentSince
	return f.statsOut, f.statsErr
}

type fakeRefreshTokensRepo struct {
	createErr      error
	createdUserID  string
	createdToken   string
	createValidity time.Duration

	findOut  *models.RefreshToken
	findErr  error
	findWith string

	deleteErr  error
	deleteWith string

	deleteForUserErr  error
	deleteForUserWith string
}

func (f *fakeRefreshTokensRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	f.createdUserID = userID
	f.createdToken = token
	f.createValidity = validity
	return f.createErr
}

func (f *fakeRefreshTokensRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.findWith = token
	return f.findOut, f.findErr
}

func (f *fakeRefreshTokensRepo) Delete(ctx context.Context, token string) error {
	f.deleteWith = token
	return f.deleteErr
}

func (f *fakeRefreshTokensRepo) DeleteForUser(ctx context.Context, userID string) error {
	f.deleteForUserWith = userID
	return f.deleteForUserErr
}

type invalidateCall struct {
	email   string
	purpose string
}

type fakeOTPsRepo struct {
	createOut   *models.OTPRecord
	createErr   error
	createdWith *models.OTPRecord

	invalidateErr   error
	invalidateCalls []invalidateCall

	latestOut *models.OTPRecord
	latestErr error

	latestUnverifiedOut     *models.OTPRecord
	latestUnverifiedErr     error
	latestUnverifiedPurpose string

	latestVerifiedOut     *models.OTPRecord
	latestVerifiedErr     error
	latestVerifiedPurpose string

	updateAttemptsErr   error
	updateAttemptsID    string
	updateAttemptsValue int
	updateAttemptsCalls int

	markVerifiedErr      error
	markVerifiedID       string
	markVerifiedAttempts int
	markVerifiedCalls    int
}

func (f *fakeOTPsRepo) Create(ctx context.Context, otp *models.OTPRecord) (*models.OTPRecord, error) {
	f.createdWith = otp
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	created := *otp
	created.ID = "otp-created"
	created.MaxAttempts = 5
	created.CreatedAt = time.Now()
	return &created, nil
}

func (f *fakeOTPsRepo) InvalidateAll(ctx context.Context, email string, purpose string) error {
	f.invalidateCalls = append(f.invalidateCalls, invalidateCall{email: email, purpose: purpose})
	return f.invalidateErr
}

func (f *fakeOTPsRepo) Latest(ctx context.Context, email string, purpose string) (*models.OTPRecord, error) {
	return f.latestOut, f.latestErr
}

func (f *fakeOTPsRepo) LatestUnverified(ctx context.Context, email string, purpose string) (*models.OTPRecord, error) {
	f.latestUnverifiedPurpose = purpose
	return f.latestUnverifiedOut, f.latestUnverifiedErr
}

func (f *fakeOTPsRepo) LatestVerified(ctx context.Context, email string, purpose string) (*models.OTPRecord, error) {
	f.latestVerifiedPurpose = purpose
	return f.latestVerifiedOut, f.latestVerifiedErr
}

func (f *fakeOTPsRepo) UpdateAttempts(ctx context.Context, id string, attempts int) error {
	f.updateAttemptsCalls++
	f.updateAttemptsID = id
	f.updateAttemptsValue = attempts
	return f.updateAttemptsErr
}

func (f *fakeOTPsRepo) MarkVerified(ctx context.Context, id string, attempts int) error {
	f.markVerifiedCalls++
	f.markVerifiedID = id
	f.markVerifiedAttempts = attempts
	return f.markVerifiedErr
}

type fakeLoginAttemptsRepo struct {
	recordErr error
	recorded  []*models.LoginAttempt

	failureCount int
	failureErr   error

	sessionsOut   int
	sessionsErr   error
	sessionsSince time.Time
}

func (f *fakeLoginAttemptsRepo) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	f.recorded = append(f.recorded, attempt)
	return f.recordErr
}

func (f *fakeLoginAttemptsRepo) CountRecentFailures(ctx context.Context, ip string, identifier string, since time.Time) (int, error) {
	return f.failureCount, f.failureErr
}

func (f *fakeLoginAttemptsRepo) CountActiveSessions(ctx context.Context, since time.Time) (int, error) {
	f.sessionsSince = since
	return f.sessionsOut, f.sessionsErr
}

type fakeDatasetsRepo struct {
	createOut   *models.Dataset
	createErr   error
	createdWith *models.Dataset

	addEquipmentErr   error
	addEquipmentID    string
	addEquipmentItems []models.Equipment

	getForUserOut    *models.Dataset
	getForUserErr    error
	getForUserID     string
	getForUserUserID string

	latestOut *models.Dataset
	latestErr error

	listOut   []*models.Dataset
	listErr   error
	listLimit int

	equipmentOut []models.Equipment
	equipmentErr error

	distributionOut map[string]int
	distributionErr error
	distributionID  string

	setArchiveKeyErr error
	archiveKeyID     string
	archiveKeyValue  string

	pruneOut    []string
	pruneErr    error
	pruneUserID string
	pruneKeep   int
}

func (f *fakeDatasetsRepo) Create(ctx context.Context, dataset *models.Dataset) (*models.Dataset, error) {
	f.createdWith = dataset
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	created := *dataset
	created.ID = "dataset-created"
	created.UploadedAt = time.Now()
	return &created, nil
}

func (f *fakeDatasetsRepo) AddEquipment(ctx context.Context, datasetID string, items []models.Equipment) error {
	f.addEquipmentID = datasetID
	f.addEquipmentItems = items
	return f.addEquipmentErr
}

func (f *fakeDatasetsRepo) GetForUser(ctx context.Context, id string, userID string) (*models.Dataset, error) {
	f.getForUserID = id
	f.getForUserUserID = userID
	return f.getForUserOut, f.getForUserErr
}

func (f *fakeDatasetsRepo) LatestForUser(ctx context.Context, userID string) (*models.Dataset, error) {
	return f.latestOut, f.latestErr
}

func (f *fakeDatasetsRepo) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Dataset, error) {
	f.listLimit = limit
	return f.listOut, f.listErr
}

func (f *fakeDatasetsRepo) ListEquipment(ctx context.Context, datasetID string) ([]models.Equipment, error) {
	return f.equipmentOut, f.equipmentErr
}

func (f *fakeDatasetsRepo) TypeDistribution(ctx context.Context, datasetID string) (map[string]int, error) {
	f.distributionID = datasetID
	return f.distributionOut, f.distributionErr
}

func (f *fakeDatasetsRepo) SetArchiveKey(ctx context.Context, datasetID string, key string) error {
	f.archiveKeyID = datasetID
	f.archiveKeyValue = key
	return f.setArchiveKeyErr
}

func (f *fakeDatasetsRepo) PruneHistory(ctx context.Context, userID string, keep int) ([]string, error) {
	f.pruneUserID = userID
	f.pruneKeep = keep
	return f.pruneOut, f.pruneErr
}

// fakeRepoManager hands out the fakes regardless of the DBTX, so the same
// instances observe calls made through transactions.
type fakeRepoManager struct {
	users    *fakeUsersRepo
	refresh  *fakeRefreshTokensRepo
	otps     *fakeOTPsRepo
	attempts *fakeLoginAttemptsRepo
	datasets *fakeDatasetsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    &fakeUsersRepo{},
		refresh:  &fakeRefreshTokensRepo{},
		otps:     &fakeOTPsRepo{},
		attempts: &fakeLoginAttemptsRepo{},
		datasets: &fakeDatasetsRepo{},
	}
}

func (m *fakeRepoManager) Conn() *sql.DB                            { return nil }
func (m *fakeRepoManager) Close() error                             { return nil }
func (m *fakeRepoManager) RunMigrations(ctx context.Context) error  { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository       { return m.users }
func (m *fakeRepoManager) OTPs(db dbx.DBTX) otps.Repository         { return m.otps }
func (m *fakeRepoManager) Datasets(db dbx.DBTX) datasets.Repository { return m.datasets }

func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return m.refresh
}

func (m *fakeRepoManager) LoginAttempts(db dbx.DBTX) loginattempts.Repository {
	return m.attempts
}

type sentOTP struct {
	email     string
	code      string
	firstName string
	lastName  string
	purpose   string
}

type fakeMailer struct {
	err  error
	sent []sentOTP
}

func (f *fakeMailer) SendOTP(ctx context.Context, email string, otpCode string, firstName string, lastName string, purpose string) error {
	f.sent = append(f.sent, sentOTP{email: email, code: otpCode, firstName: firstName, lastName: lastName, purpose: purpose})
	if f.err != nil {
		return f.err
	}
	return nil
}

type fakeArchiver struct {
	key        string
	archiveErr error
	archived   [][]byte

	url        string
	presignErr error
	presigned  []string

	removeErr error
	removed   []string
}

func (f *fakeArchiver) Archive(ctx context.Context, data []byte) (string, error) {
	f.archived = append(f.archived, data)
	if f.archiveErr != nil {
		return "", f.archiveErr
	}
	return f.key, nil
}

func (f *fakeArchiver) PresignGet(ctx context.Context, key string) (string, error) {
	f.presigned = append(f.presigned, key)
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return f.url, nil
}

func (f *fakeArchiver) Remove(ctx context.Context, key string) error {
	f.removed = append(f.removed, key)
	return f.removeErr
}

func assertMockExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}
