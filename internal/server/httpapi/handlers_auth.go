package httpapi

import (
	"errors"
	"net/http"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/server/auth"
	"github.com/equipsense/equipsense/internal/server/services"
)

func (s *Server) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"username_or_email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	res, err := s.services.Users.Login(r.Context(), services.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": "Login successful",
		"tokens":  tokensPayload(res.Tokens),
		"user":    userPayload(res.User),
	})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"username_or_email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	res, err := s.services.Users.AdminLogin(r.Context(), services.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": "Admin login successful",
		"tokens":  tokensPayload(res.Tokens),
		"user":    userPayload(res.User),
	})
}

func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	tokens, err := s.services.Users.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": "Token refreshed successfully",
		"tokens":  tokensPayload(tokens),
	})
}

// handleLogout revokes the submitted refresh token. Revocation failures are
// logged but never reported: the client is discarding its tokens anyway.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	if err := s.services.Users.Logout(r.Context(), req.RefreshToken); err != nil {
		s.logger.Warn(r.Context(), "error revoking refresh token on logout", "error", err)
	}

	s.writeJSON(w, http.StatusOK, M{"success": true, "message": "Logged out successfully"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, M{"success": true, "user": userPayload(user)})
}

func (s *Server) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	res, err := s.services.Users.GoogleAuth(r.Context(), req.Token, clientIP(r))
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success":  true,
		"message":  "Google authentication successful",
		"tokens":   tokensPayload(res.Tokens),
		"user":     userPayload(res.User),
		"new_user": res.NewUser,
	})
}

func (s *Server) handleGoogleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"config":  s.services.Users.GoogleConfig(),
	})
}

func (s *Server) handlePasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		s.authError(w, r, common.NewValidationError("password", "This field is required."))
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"data":    auth.PasswordStrength(req.Password),
	})
}

// handleLegacyRegister is the single-step signup kept for older desktop
// builds. Validation failures are returned as a bare field map, the shape
// those clients already parse.
func (s *Server) handleLegacyRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	res, err := s.services.Users.LegacyRegister(r.Context(), services.LegacyRegisterInput{
		UserName:        req.UserName,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		var ve *common.ValidationError
		if errors.As(err, &ve) {
			s.writeJSON(w, http.StatusBadRequest, ve.Fields)
			return
		}
		s.datasetError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, M{
		"message": "User registered successfully",
		"user":    legacyUserPayload(res.User),
		"tokens":  tokensPayload(res.Tokens),
	})
}

func (s *Server) handleLegacyLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName string `json:"username"`
		Password string `json:"password"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	res, err := s.services.Users.LegacyLogin(r.Context(), req.UserName, req.Password)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"message": "Login successful",
		"user":    legacyUserPayload(res.User),
		"tokens":  tokensPayload(res.Tokens),
	})
}
