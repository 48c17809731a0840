package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/dbx"
	"github.com/equipsense/equipsense/internal/server/auth"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/repositories/otps"
	"github.com/equipsense/equipsense/internal/server/repositories/repomanager"
)

// OTPSender delivers one-time codes by email. The production implementation
// lives in internal/server/mailerclient and calls the mailer service.
type OTPSender interface {
	SendOTP(ctx context.Context, email string, otpCode string, firstName string, lastName string, purpose string) error
}

// Lifetimes of freshly issued codes.
const (
	registrationOTPValidity  = 5 * time.Minute
	passwordResetOTPValidity = 10 * time.Minute
)

// otpResendAfterSeconds is the resend delay advertised to signup clients.
const otpResendAfterSeconds = 30

var (
	userNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// RegistrationService implements the staged signup flow: validate details,
// email a code, verify it, then create the account once a password is set.
// Pending account details travel on the OTP record until the final step.
type RegistrationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      OTPSender
}

func NewRegistrationService(db *sql.DB, m repomanager.RepositoryManager, mailer OTPSender) *RegistrationService {
	return &RegistrationService{db: db, repomanager: m, mailer: mailer}
}

// RegisterDetails carries the account fields collected by the first signup
// step. ValidateDetails returns them normalized: username and email
// lowercased, names trimmed.
type RegisterDetails struct {
	UserName  string
	Email     string
	FirstName string
	LastName  string
}

// ValidateDetails checks the signup details without side effects so the
// client can fail fast before the OTP step. All field problems are
// collected into one ValidationError.
func (s *RegistrationService) ValidateDetails(ctx context.Context, in RegisterDetails) (*RegisterDetails, error) {
	ve := &common.ValidationError{}

	userName := in.UserName
	switch {
	case userName == "":
		ve.Add("username", "This field is required.")
	case utf8.RuneCountInString(userName) < 3:
		ve.Add("username", "Ensure this field has at least 3 characters.")
	case utf8.RuneCountInString(userName) > 150:
		ve.Add("username", "Ensure this field has no more than 150 characters.")
	case !userNamePattern.MatchString(userName):
		ve.Add("username", "Username can only contain letters, numbers, underscores, and hyphens")
	default:
		taken, err := s.repomanager.Users(s.db).UserNameExists(ctx, strings.ToLower(userName))
		if err != nil {
			return nil, err
		}
		if taken {
			ve.Add("username", "Username already taken")
		}
	}

	email := strings.ToLower(in.Email)
	switch {
	case email == "":
		ve.Add("email", "This field is required.")
	case !emailPattern.MatchString(email):
		ve.Add("email", "Enter a valid email address.")
	default:
		exists, err := s.repomanager.Users(s.db).EmailExists(ctx, email)
		if err != nil {
			return nil, err
		}
		if exists {
			ve.Add("email", "Email already registered")
		}
	}

	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		ve.Add("first_name", "First name cannot be empty")
	}
	lastName := strings.TrimSpace(in.LastName)
	if lastName == "" {
		ve.Add("last_name", "Last name cannot be empty")
	}

	if !ve.Empty() {
		return nil, ve
	}

	return &RegisterDetails{
		UserName:  strings.ToLower(userName),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}, nil
}

// SendOTPInput is the request of the signup OTP step. Purpose defaults to
// registration.
type SendOTPInput struct {
	UserName  string
	Email     string
	FirstName string
	LastName  string
	Purpose   string
	IPAddress string
}

// OTPIssue reports a freshly created code back to the client: the masked
// recipient address, seconds until expiry, and the advisory resend delay.
type OTPIssue struct {
	Email          string
	ExpiresIn      int
	CanResendAfter int
}

// SendOTP invalidates any pending codes for the address, stores a new one
// carrying the submitted account details, and emails it. The address must
// not belong to an existing account.
func (s *RegistrationService) SendOTP(ctx context.Context, in SendOTPInput) (*OTPIssue, error) {
	ve := &common.ValidationError{}
	if in.UserName == "" {
		ve.Add("username", "This field is required.")
	}
	email := strings.ToLower(in.Email)
	switch {
	case email == "":
		ve.Add("email", "This field is required.")
	case !emailPattern.MatchString(email):
		ve.Add("email", "Enter a valid email address.")
	}
	if in.FirstName == "" {
		ve.Add("first_name", "This field is required.")
	}
	if in.LastName == "" {
		ve.Add("last_name", "This field is required.")
	}
	purpose, err := normalizeOTPPurpose(in.Purpose)
	if err != nil {
		ve.Add("purpose", err.Error())
	}
	if !ve.Empty() {
		return nil, ve
	}

	exists, err := s.repomanager.Users(s.db).EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.NewError(common.ErrorValidation, "Email already registered")
	}

	otp, err := createOTP(ctx, s.db, s.repomanager, &models.OTPRecord{
		Email:         email,
		Purpose:       purpose,
		ExpiresAt:     time.Now().Add(registrationOTPValidity),
		IPAddress:     in.IPAddress,
		TempUserName:  in.UserName,
		TempFirstName: in.FirstName,
		TempLastName:  in.LastName,
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendOTP(ctx, email, otp.OTPCode, in.FirstName, in.LastName, purpose); err != nil {
		return nil, common.NewError(common.ErrorUnavailable, "Failed to send OTP. Please try again.")
	}

	return &OTPIssue{
		Email:          common.MaskEmail(email),
		ExpiresIn:      otp.RemainingSeconds(time.Now()),
		CanResendAfter: otpResendAfterSeconds,
	}, nil
}

// VerifyOTPInput is the request of the code verification step.
type VerifyOTPInput struct {
	Email   string
	OTPCode string
	Purpose string
}

// VerifyOTP checks the submitted code against the latest pending one for
// the address. Wrong codes burn an attempt; codes that are expired or out
// of attempts are rejected without further counting.
func (s *RegistrationService) VerifyOTP(ctx context.Context, in VerifyOTPInput) error {
	ve := &common.ValidationError{}
	email := strings.ToLower(in.Email)
	switch {
	case email == "":
		ve.Add("email", "This field is required.")
	case !emailPattern.MatchString(email):
		ve.Add("email", "Enter a valid email address.")
	}
	switch {
	case in.OTPCode == "":
		ve.Add("otp_code", "This field is required.")
	case utf8.RuneCountInString(in.OTPCode) < common.OTPLength:
		ve.Add("otp_code", fmt.Sprintf("Ensure this field has at least %d characters.", common.OTPLength))
	case utf8.RuneCountInString(in.OTPCode) > common.OTPLength:
		ve.Add("otp_code", fmt.Sprintf("Ensure this field has no more than %d characters.", common.OTPLength))
	case !allDigits(in.OTPCode):
		ve.Add("otp_code", "OTP must contain only digits")
	}
	purpose, err := normalizeOTPPurpose(in.Purpose)
	if err != nil {
		ve.Add("purpose", err.Error())
	}
	if !ve.Empty() {
		return ve
	}

	otp, err := s.repomanager.OTPs(s.db).LatestUnverified(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorNotFound, "No OTP found. Please request a new one.")
		}
		return err
	}

	return verifyOTPCode(ctx, s.repomanager.OTPs(s.db), otp, in.OTPCode)
}

// CreatePasswordInput is the request of the final signup step.
type CreatePasswordInput struct {
	Email           string
	Password        string
	ConfirmPassword string
}

// CreatePassword completes the signup: it requires a verified registration
// code for the address and creates the account from the details stored on
// it. The new account is active and email-verified.
func (s *RegistrationService) CreatePassword(ctx context.Context, in CreatePasswordInput) (*models.User, error) {
	ve := &common.ValidationError{}
	email := strings.ToLower(in.Email)
	switch {
	case email == "":
		ve.Add("email", "This field is required.")
	case !emailPattern.MatchString(email):
		ve.Add("email", "Enter a valid email address.")
	}
	if in.Password == "" {
		ve.Add("password", "This field is required.")
	} else {
		for _, problem := range auth.ValidatePassword(in.Password) {
			ve.Add("password", problem)
		}
	}
	if in.ConfirmPassword == "" {
		ve.Add("confirm_password", "This field is required.")
	}
	if !ve.Empty() {
		return nil, ve
	}

	if in.Password != in.ConfirmPassword {
		return nil, common.NewValidationError("confirm_password", "Passwords do not match")
	}

	otp, err := s.repomanager.OTPs(s.db).LatestVerified(ctx, email, models.OTPPurposeRegistration)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewValidationError("email", "Email not verified. Please complete OTP verification first")
		}
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:        strings.ToLower(otp.TempUserName),
		Email:           email,
		FirstName:       otp.TempFirstName,
		LastName:        otp.TempLastName,
		PasswordHash:    hash,
		IsActive:        true,
		IsEmailVerified: true,
	})
	if err != nil {
		return nil, common.NewError(common.ErrorInternal, "An error occurred during registration")
	}
	return user, nil
}

// ResendOTP issues a fresh code for an address that already requested one,
// carrying over the account details from the previous request.
func (s *RegistrationService) ResendOTP(ctx context.Context, email string, purpose string, ip string) (*OTPIssue, error) {
	if email == "" {
		return nil, common.NewError(common.ErrorValidation, "Email is required")
	}
	email = strings.ToLower(email)
	if purpose == "" {
		purpose = models.OTPPurposeRegistration
	}

	prev, err := s.repomanager.OTPs(s.db).Latest(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, "No previous OTP request found")
		}
		return nil, err
	}

	otp, err := createOTP(ctx, s.db, s.repomanager, &models.OTPRecord{
		Email:         email,
		Purpose:       purpose,
		ExpiresAt:     time.Now().Add(registrationOTPValidity),
		IPAddress:     ip,
		TempUserName:  prev.TempUserName,
		TempFirstName: prev.TempFirstName,
		TempLastName:  prev.TempLastName,
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendOTP(ctx, email, otp.OTPCode, prev.TempFirstName, prev.TempLastName, purpose); err != nil {
		return nil, common.NewError(common.ErrorUnavailable, "Failed to resend OTP")
	}

	return &OTPIssue{
		Email:          common.MaskEmail(email),
		ExpiresIn:      otp.RemainingSeconds(time.Now()),
		CanResendAfter: otpResendAfterSeconds,
	}, nil
}

// normalizeOTPPurpose applies the registration default and restricts the
// purposes clients may request codes for.
func normalizeOTPPurpose(purpose string) (string, error) {
	if purpose == "" {
		return models.OTPPurposeRegistration, nil
	}
	switch purpose {
	case models.OTPPurposeRegistration, models.OTPPurposeLogin, models.OTPPurposePasswordReset:
		return purpose, nil
	}
	return "", fmt.Errorf("%q is not a valid choice.", purpose)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// createOTP generates a code, invalidates every pending code for the same
// address and purpose, and inserts the new record, all in one transaction.
// The caller sets Email, Purpose, ExpiresAt and any temp fields.
func createOTP(ctx context.Context, db *sql.DB, rm repomanager.RepositoryManager, otp *models.OTPRecord) (*models.OTPRecord, error) {
	code, err := common.MakeRandOTP(common.OTPLength)
	if err != nil {
		return nil, fmt.Errorf("error generating otp: %w", err)
	}
	otp.OTPCode = code

	var created *models.OTPRecord
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := rm.OTPs(tx)
		if err := repo.InvalidateAll(ctx, otp.Email, otp.Purpose); err != nil {
			return err
		}
		created, err = repo.Create(ctx, otp)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating otp: %w", err)
	}
	return created, nil
}

// verifyOTPCode applies the attempt-counting check shared by registration
// and password reset. The incremented counter is persisted only while the
// code is still usable; unusable codes are rejected without a write.
func verifyOTPCode(ctx context.Context, repo otps.Repository, otp *models.OTPRecord, code string) error {
	otp.Attempts++

	if !otp.Usable(time.Now()) {
		return common.NewError(common.ErrorValidation, "OTP expired or maximum attempts reached")
	}

	if otp.OTPCode != code {
		if err := repo.UpdateAttempts(ctx, otp.ID, otp.Attempts); err != nil {
			return fmt.Errorf("error updating otp attempts: %w", err)
		}
		return common.NewError(common.ErrorValidation,
			fmt.Sprintf("Invalid OTP. %d attempts remaining", otp.MaxAttempts-otp.Attempts))
	}

	if err := repo.MarkVerified(ctx, otp.ID, otp.Attempts); err != nil {
		return fmt.Errorf("error marking otp verified: %w", err)
	}
	now := time.Now()
	otp.IsVerified = true
	otp.VerifiedAt = &now
	return nil
}
