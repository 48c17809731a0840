// Package services contains the application services sitting between the
// HTTP layer and the repositories. Services own business rules and
// transactions; user-facing failures are returned as common.Error values
// carrying the exact response message.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/dbx"
	"github.com/equipsense/equipsense/internal/server/auth"
	"github.com/equipsense/equipsense/internal/server/config"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/repositories/repomanager"
)

// Failed attempts from one IP or against one identifier inside the window
// before further logins are throttled.
const (
	rateLimitMaxFailures = 5
	rateLimitWindow      = 15 * time.Minute
)

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	config                       *config.Config
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	rememberMeValidityDuration   time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		config:                       cfg,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		rememberMeValidityDuration:   cfg.RememberMeValidityDuration,
	}
}

// LoginInput carries the credentials and request metadata of a login call.
type LoginInput struct {
	Identifier string // username, or email when it contains '@'
	Password   string
	RememberMe bool
	IPAddress  string
	UserAgent  string
}

// LoginResult pairs the authenticated account with its issued tokens.
type LoginResult struct {
	User   *models.User
	Tokens *TokenPair
}

// Login authenticates a regular user by username or email. Admin accounts
// are rejected here and must use AdminLogin. Every outcome is recorded as a
// login attempt; failures count towards the rate limit.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ve := &common.ValidationError{}
	if in.Identifier == "" {
		ve.Add("username_or_email", "This field is required.")
	}
	if in.Password == "" {
		ve.Add("password", "This field is required.")
	}
	if !ve.Empty() {
		return nil, ve
	}

	limited, err := s.rateLimited(ctx, in.IPAddress, in.Identifier)
	if err != nil {
		return nil, err
	}
	if limited {
		return nil, common.NewError(common.ErrorTooManyRequests, "Too many failed login attempts. Please try again later.")
	}

	user, err := s.findByIdentifier(ctx, in.Identifier)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if user == nil || !auth.CheckPassword(user.PasswordHash, in.Password) || !user.IsActive {
		if err := s.recordAttempt(ctx, in.Identifier, in.IPAddress, in.UserAgent, false, "Invalid credentials"); err != nil {
			return nil, err
		}
		return nil, common.NewError(common.ErrorUnauthorized, "Invalid username/email or password")
	}

	if user.IsAdmin {
		if err := s.recordAttempt(ctx, in.Identifier, in.IPAddress, in.UserAgent, false, "Admin user attempted user login"); err != nil {
			return nil, err
		}
		return nil, common.NewError(common.ErrorForbidden, "Admin users must login through the Admin Login section")
	}

	if !user.IsEmailVerified {
		if err := s.recordAttempt(ctx, in.Identifier, in.IPAddress, in.UserAgent, false, "Email not verified"); err != nil {
			return nil, err
		}
		return nil, common.NewError(common.ErrorForbidden, "Please verify your email before logging in")
	}

	return s.completeLogin(ctx, user, in)
}

// AdminLogin authenticates an admin account by username. Unlike Login it
// never looks up by email and skips the email-verification check.
func (s *UserService) AdminLogin(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ve := &common.ValidationError{}
	if in.Identifier == "" {
		ve.Add("username", "This field is required.")
	}
	if in.Password == "" {
		ve.Add("password", "This field is required.")
	}
	if !ve.Empty() {
		return nil, ve
	}

	limited, err := s.rateLimited(ctx, in.IPAddress, in.Identifier)
	if err != nil {
		return nil, err
	}
	if limited {
		return nil, common.NewError(common.ErrorTooManyRequests, "Too many failed login attempts. Please try again later.")
	}

	user, err := s.repomanager.Users(s.db).GetByUserName(ctx, in.Identifier)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if user == nil || !auth.CheckPassword(user.PasswordHash, in.Password) || !user.IsActive {
		if err := s.recordAttempt(ctx, in.Identifier, in.IPAddress, in.UserAgent, false, "Invalid credentials"); err != nil {
			return nil, err
		}
		return nil, common.NewError(common.ErrorUnauthorized, "Invalid username or password")
	}

	if !user.IsAdmin {
		if err := s.recordAttempt(ctx, in.Identifier, in.IPAddress, in.UserAgent, false, "Not an admin user"); err != nil {
			return nil, err
		}
		return nil, common.NewError(common.ErrorForbidden, "You do not have admin privileges")
	}

	return s.completeLogin(ctx, user, in)
}

// LegacyLogin is the single-step login kept for the desktop client: username
// only, no rate limit, no verification or role checks.
func (s *UserService) LegacyLogin(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, common.NewError(common.ErrorValidation, "Please provide both username and password")
	}

	user, err := s.repomanager.Users(s.db).GetByUserName(ctx, username)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if user == nil || !auth.CheckPassword(user.PasswordHash, password) || !user.IsActive {
		return nil, common.NewError(common.ErrorUnauthorized, "Invalid credentials")
	}

	tokens, err := s.issueTokens(ctx, s.db, user, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Tokens: tokens}, nil
}

// LegacyRegisterInput is the single-step signup payload of the legacy API.
type LegacyRegisterInput struct {
	UserName        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// LegacyRegister creates an account in one step, without OTP verification.
// The account starts with an unverified email, so it can use the legacy
// login but not the OTP-gated user login.
func (s *UserService) LegacyRegister(ctx context.Context, in LegacyRegisterInput) (*LoginResult, error) {
	ve := &common.ValidationError{}
	if in.UserName == "" {
		ve.Add("username", "This field is required.")
	}
	if in.Email == "" {
		ve.Add("email", "This field is required.")
	}
	switch {
	case in.Password == "":
		ve.Add("password", "This field is required.")
	case utf8.RuneCountInString(in.Password) < 8:
		ve.Add("password", "Ensure this field has at least 8 characters.")
	}
	switch {
	case in.PasswordConfirm == "":
		ve.Add("password_confirm", "This field is required.")
	case utf8.RuneCountInString(in.PasswordConfirm) < 8:
		ve.Add("password_confirm", "Ensure this field has at least 8 characters.")
	}
	if !ve.Empty() {
		return nil, ve
	}
	if in.Password != in.PasswordConfirm {
		return nil, common.NewValidationError("password", "Passwords must match.")
	}

	username := strings.ToLower(in.UserName)
	email := strings.ToLower(in.Email)

	repo := s.repomanager.Users(s.db)

	taken, err := repo.UserNameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, common.NewValidationError("username", "A user with that username already exists.")
	}

	taken, err = repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, common.NewValidationError("email", "Email already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		UserName:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, common.ErrorDuplicate) {
			return nil, common.NewValidationError("username", "A user with that username already exists.")
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	tokens, err := s.issueTokens(ctx, s.db, user, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Tokens: tokens}, nil
}

// RefreshToken rotates a refresh token: the stored token is checked and
// deleted and a fresh pair is issued in one transaction.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.Expired(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading token owner: %w", err)
	}
	if !user.IsActive {
		return nil, common.ErrorUnauthorized
	}

	var tokenPair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		tokenPair, err = s.issueTokens(ctx, tx, user, s.refreshTokenValidityDuration)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Logout revokes the refresh token. A missing token is not an error; the
// endpoint answers 200 regardless.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
}

// Profile returns the account behind userID.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

func (s *UserService) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	if strings.Contains(identifier, "@") {
		return repo.GetByEmail(ctx, identifier)
	}
	return repo.GetByUserName(ctx, identifier)
}

func (s *UserService) rateLimited(ctx context.Context, ip, identifier string) (bool, error) {
	since := time.Now().Add(-rateLimitWindow)
	count, err := s.repomanager.LoginAttempts(s.db).CountRecentFailures(ctx, ip, identifier, since)
	if err != nil {
		return false, fmt.Errorf("error counting login failures: %w", err)
	}
	return count >= rateLimitMaxFailures, nil
}

func (s *UserService) recordAttempt(ctx context.Context, identifier, ip, userAgent string, success bool, failureReason string) error {
	err := s.repomanager.LoginAttempts(s.db).Record(ctx, &models.LoginAttempt{
		UserNameOrEmail: identifier,
		IPAddress:       ip,
		Success:         success,
		FailureReason:   failureReason,
		UserAgent:       userAgent,
	})
	if err != nil {
		return fmt.Errorf("error recording login attempt: %w", err)
	}
	return nil
}

// completeLogin updates the login counters, records the successful attempt
// and issues tokens. The passed user is mutated to reflect the new counters
// so the response shows current values.
func (s *UserService) completeLogin(ctx context.Context, user *models.User, in LoginInput) (*LoginResult, error) {
	if err := s.repomanager.Users(s.db).RecordLogin(ctx, user.ID, in.IPAddress); err != nil {
		return nil, fmt.Errorf("error recording login: %w", err)
	}
	now := time.Now()
	user.LastLoginIP = in.IPAddress
	user.LoginCount++
	user.LastLoginAt = &now

	if err := s.recordAttempt(ctx, in.Identifier, in.IPAddress, in.UserAgent, true, ""); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, s.db, user, s.refreshValidity(in.RememberMe))
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Tokens: tokens}, nil
}

func (s *UserService) refreshValidity(rememberMe bool) time.Duration {
	if rememberMe {
		return s.rememberMeValidityDuration
	}
	return s.refreshTokenValidityDuration
}

func (s *UserService) issueTokens(ctx context.Context, db dbx.DBTX, user *models.User, validity time.Duration) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(user, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refreshToken, validity); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
