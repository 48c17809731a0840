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
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/repositories/repomanager"
)

// passwordResetCooldown is the wait enforced between reset OTP requests
// for the same address.
const passwordResetCooldown = 30 * time.Second

// passwordResetWindow bounds how long after OTP verification the password
// may still be reset.
const passwordResetWindow = 15 * time.Minute

// PasswordResetService implements the forgot-password flow: request a code
// by username or email, verify it, then set a new password. The code must
// have been verified within passwordResetWindow for the final step.
type PasswordResetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      OTPSender
}

func NewPasswordResetService(db *sql.DB, m repomanager.RepositoryManager, mailer OTPSender) *PasswordResetService {
	return &PasswordResetService{db: db, repomanager: m, mailer: mailer}
}

// Request looks the account up by username or email and emails a reset code
// to its registered address. Requests inside the cooldown window are
// rejected with the seconds left to wait.
func (s *PasswordResetService) Request(ctx context.Context, identifier string, ip string) (*OTPIssue, error) {
	if identifier == "" {
		return nil, common.NewValidationError("identifier", "This field is required.")
	}
	identifier = strings.TrimSpace(strings.ToLower(identifier))

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.repomanager.Users(s.db).GetByEmail(ctx, identifier)
	} else {
		user, err = s.repomanager.Users(s.db).GetByUserName(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, "No account found with this username or email")
		}
		return nil, err
	}
	if !user.IsEmailVerified {
		return nil, common.NewValidationError("identifier", "This account's email is not verified. Please contact support.")
	}

	last, err := s.repomanager.OTPs(s.db).Latest(ctx, user.Email, models.OTPPurposePasswordReset)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if last != nil {
		elapsed := time.Since(last.CreatedAt)
		if elapsed < passwordResetCooldown {
			remaining := int(passwordResetCooldown.Seconds()) - int(elapsed.Seconds())
			return nil, common.NewError(common.ErrorTooManyRequests,
				fmt.Sprintf("Please wait %d seconds before requesting another reset", remaining))
		}
	}

	otp, err := createOTP(ctx, s.db, s.repomanager, &models.OTPRecord{
		Email:         user.Email,
		Purpose:       models.OTPPurposePasswordReset,
		ExpiresAt:     time.Now().Add(passwordResetOTPValidity),
		IPAddress:     ip,
		TempUserName:  user.UserName,
		TempFirstName: user.FirstName,
		TempLastName:  user.LastName,
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendOTP(ctx, user.Email, otp.OTPCode, user.FirstName, user.LastName, models.OTPPurposePasswordReset); err != nil {
		return nil, common.NewError(common.ErrorUnavailable, "Failed to send verification email. Please try again.")
	}

	return &OTPIssue{
		Email:          common.MaskEmail(user.Email),
		ExpiresIn:      otp.RemainingSeconds(time.Now()),
		CanResendAfter: otpResendAfterSeconds,
	}, nil
}

// VerifyOTP checks a reset code. Expired or exhausted codes are reported
// with dedicated messages before any attempt is burned.
func (s *PasswordResetService) VerifyOTP(ctx context.Context, email string, code string) error {
	ve := &common.ValidationError{}
	email = strings.ToLower(email)
	switch {
	case email == "":
		ve.Add("email", "This field is required.")
	case !emailPattern.MatchString(email):
		ve.Add("email", "Enter a valid email address.")
	}
	switch {
	case code == "":
		ve.Add("otp_code", "This field is required.")
	case utf8.RuneCountInString(code) < common.OTPLength:
		ve.Add("otp_code", fmt.Sprintf("Ensure this field has at least %d characters.", common.OTPLength))
	case utf8.RuneCountInString(code) > common.OTPLength:
		ve.Add("otp_code", fmt.Sprintf("Ensure this field has no more than %d characters.", common.OTPLength))
	case !allDigits(code):
		ve.Add("otp_code", "OTP must contain only digits")
	}
	if !ve.Empty() {
		return ve
	}

	otp, err := s.repomanager.OTPs(s.db).LatestUnverified(ctx, email, models.OTPPurposePasswordReset)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorNotFound, "No password reset request found. Please request a new one.")
		}
		return err
	}

	if otp.Expired(time.Now()) {
		return common.NewError(common.ErrorValidation, "OTP has expired. Please request a new one.")
	}
	if otp.Attempts >= otp.MaxAttempts {
		return common.NewError(common.ErrorValidation, "Maximum verification attempts exceeded. Please request a new OTP.")
	}

	return verifyOTPCode(ctx, s.repomanager.OTPs(s.db), otp, code)
}

// ResetInput is the request of the final reset step.
type ResetInput struct {
	Email           string
	NewPassword     string
	ConfirmPassword string
}

// Reset sets a new password for the account whose reset code was verified
// within the completion window, invalidates every reset code for the
// address, and revokes the account's refresh tokens so stolen sessions do
// not survive the reset.
func (s *PasswordResetService) Reset(ctx context.Context, in ResetInput) error {
	ve := &common.ValidationError{}
	email := strings.ToLower(in.Email)
	switch {
	case email == "":
		ve.Add("email", "This field is required.")
	case !emailPattern.MatchString(email):
		ve.Add("email", "Enter a valid email address.")
	}
	if in.NewPassword == "" {
		ve.Add("new_password", "This field is required.")
	} else {
		for _, problem := range auth.ValidatePassword(in.NewPassword) {
			ve.Add("new_password", problem)
		}
	}
	if in.ConfirmPassword == "" {
		ve.Add("confirm_password", "This field is required.")
	}
	if !ve.Empty() {
		return ve
	}

	if in.NewPassword != in.ConfirmPassword {
		return common.NewValidationError("confirm_password", "Passwords do not match")
	}

	otp, err := s.repomanager.OTPs(s.db).LatestVerified(ctx, email, models.OTPPurposePasswordReset)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewValidationError("email", "Password reset not verified. Please complete OTP verification first")
		}
		return err
	}
	if otp.VerifiedAt == nil || time.Since(*otp.VerifiedAt) > passwordResetWindow {
		return common.NewValidationError("email", "Password reset session expired. Please request a new reset link")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorNotFound, "User not found")
		}
		return err
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if err := s.repomanager.OTPs(tx).InvalidateAll(ctx, email, models.OTPPurposePasswordReset); err != nil {
			return fmt.Errorf("error invalidating reset codes: %w", err)
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteForUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		return nil
	})
}
