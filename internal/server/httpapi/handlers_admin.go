package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Admin.Dashboard(r.Context())
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{"success": true, "data": stats})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	search := r.URL.Query().Get("search")

	users, err := s.services.Admin.ListUsers(r.Context(), role, search)
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"data":    users,
		"total":   len(users),
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())

	user, err := s.services.Admin.DeleteUser(r.Context(), actor.ID, chi.URLParam(r, "userID"))
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": fmt.Sprintf("User %s deleted successfully", user.UserName),
	})
}

func (s *Server) handleToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())

	user, err := s.services.Admin.ToggleUserStatus(r.Context(), actor.ID, chi.URLParam(r, "userID"))
	if err != nil {
		s.authError(w, r, err)
		return
	}

	verb := "disabled"
	if user.IsActive {
		verb = "enabled"
	}
	s.writeJSON(w, http.StatusOK, M{
		"success":   true,
		"message":   fmt.Sprintf("User %s %s successfully", user.UserName, verb),
		"is_active": user.IsActive,
	})
}

func (s *Server) handleChangeUserRole(w http.ResponseWriter, r *http.Request) {
	actor := userFromContext(r.Context())
	var req struct {
		Role string `json:"role"`
	}
	if !s.readJSON(w, r, &req) {
		return
	}

	user, err := s.services.Admin.ChangeUserRole(r.Context(), actor.ID, chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		s.authError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, M{
		"success": true,
		"message": fmt.Sprintf("User %s role changed to %s", user.UserName, user.Role()),
		"role":    user.Role(),
	})
}
