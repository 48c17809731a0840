package httpapi

import (
	"net/http"
	"strings"

	"github.com/equipsense/equipsense/internal/server/services"
)

func (s *Server) handleValidateDetails(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName  string `json:"username"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	details, err := s.services.Registration.ValidateDetails(r.Context(), services.RegisterDetails{
		UserName:  req.UserName,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": "Details validated successfully",
		"data": M{
			"username":   details.UserName,
			"email":      details.Email,
			"first_name": details.FirstName,
			"last_name":  details.LastName,
		},
	})
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName  string `json:"username"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Purpose   string `json:"purpose"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	issue, err := s.services.Registration.SendOTP(r.Context(), services.SendOTPInput{
		UserName:  req.UserName,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Purpose:   req.Purpose,
		IPAddress: clientIP(r),
	})
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success":          true,
		"message":          "OTP sent successfully",
		"email":            issue.Email,
		"expires_in":       issue.ExpiresIn,
		"can_resend_after": issue.CanResendAfter,
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		OTPCode string `json:"otp_code"`
		Purpose string `json:"purpose"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	err := s.services.Registration.VerifyOTP(r.Context(), services.VerifyOTPInput{
		Email:   req.Email,
		OTPCode: req.OTPCode,
		Purpose: req.Purpose,
	})
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": "OTP verified successfully",
		"data": M{
			"email":    strings.ToLower(req.Email),
			"verified": true,
		},
	})
}

func (s *Server) handleCreatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	user, err := s.services.Registration.CreatePassword(r.Context(), services.CreatePasswordInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, M{
		"success": true,
		"message": "Registration completed successfully",
		"data": M{
			"username": user.UserName,
			"email":    user.Email,
		},
	})
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Purpose string `json:"purpose"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	issue, err := s.services.Registration.ResendOTP(r.Context(), req.Email, req.Purpose, clientIP(r))
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": "OTP resent successfully",
		"data": M{
			"email":      issue.Email,
			"expires_in": issue.ExpiresIn,
		},
	})
}

func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	issue, err := s.services.PasswordReset.Request(r.Context(), req.Identifier, clientIP(r))
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success":    true,
		"message":    "Password reset OTP sent to your email",
		"email":      issue.Email,
		"expires_in": issue.ExpiresIn,
	})
}

func (s *Server) handlePasswordResetVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		OTPCode string `json:"otp_code"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	if err := s.services.PasswordReset.VerifyOTP(r.Context(), req.Email, req.OTPCode); err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": "OTP verified successfully. You can now reset your password.",
		"email":   strings.ToLower(req.Email),
	})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	err := s.services.PasswordReset.Reset(r.Context(), services.ResetInput{
		Email:           req.Email,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": "Password reset successfully. You can now login with your new password.",
	})
}
