package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/repositories/repomanager"
	"github.com/equipsense/equipsense/internal/server/repositories/users"
)

// Windows for the dashboard counters.
const (
	activeSessionWindow      = 24 * time.Hour
	recentRegistrationWindow = 7 * 24 * time.Hour
)

// AdminService implements the user management operations available to
// admin accounts. Role and permission checks on the caller happen in the
// HTTP layer; the self-targeting guards live here.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager) *AdminService {
	return &AdminService{db: db, repomanager: m}
}

// DashboardStats is the admin dashboard snapshot. TotalUsers counts
// non-admin accounts; ActiveSessions counts distinct identifiers that
// logged in successfully during the session window.
type DashboardStats struct {
	TotalUsers          int    `json:"totalUsers"`
	ActiveSessions      int    `json:"activeSessions"`
	SystemStatus        string `json:"systemStatus"`
	TotalAdmins         int    `json:"totalAdmins"`
	VerifiedUsers       int    `json:"verifiedUsers"`
	RecentRegistrations int    `json:"recentRegistrations"`
}

func (s *AdminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := time.Now()

	stats, err := s.repomanager.Users(s.db).Stats(ctx, now.Add(-recentRegistrationWindow))
	if err != nil {
		return nil, err
	}
	sessions, err := s.repomanager.LoginAttempts(s.db).CountActiveSessions(ctx, now.Add(-activeSessionWindow))
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalUsers:          stats.TotalUsers,
		ActiveSessions:      sessions,
		SystemStatus:        "online",
		TotalAdmins:         stats.TotalAdmins,
		VerifiedUsers:       stats.VerifiedUsers,
		RecentRegistrations: stats.RecentRegistrations,
	}, nil
}

// UserSummary is one row of the admin user list.
type UserSummary struct {
	ID         string  `json:"id"`
	UserName   string  `json:"username"`
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Role       string  `json:"role"`
	IsActive   bool    `json:"is_active"`
	IsVerified bool    `json:"is_verified"`
	DateJoined string  `json:"date_joined"`
	LastLogin  *string `json:"last_login"`
	LoginCount int     `json:"login_count"`
}

// ListUsers returns all accounts, optionally narrowed to one role
// ("user" or "admin") and a substring search over username, email and
// names.
func (s *AdminService) ListUsers(ctx context.Context, role string, search string) ([]*UserSummary, error) {
	list, err := s.repomanager.Users(s.db).List(ctx, users.ListFilter{Role: role, Search: search})
	if err != nil {
		return nil, err
	}

	result := make([]*UserSummary, 0, len(list))
	for _, u := range list {
		summary := &UserSummary{
			ID:         u.ID,
			UserName:   u.UserName,
			Email:      u.Email,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Role:       u.Role(),
			IsActive:   u.IsActive,
			IsVerified: u.IsEmailVerified,
			DateJoined: u.CreatedAt.Format(time.RFC3339),
			LoginCount: u.LoginCount,
		}
		if u.LastLoginAt != nil {
			lastLogin := u.LastLoginAt.Format(time.RFC3339)
			summary.LastLogin = &lastLogin
		}
		result = append(result, summary)
	}
	return result, nil
}

// DeleteUser removes a non-admin account. Admins can neither delete
// themselves nor other admins. Returns the deleted account.
func (s *AdminService) DeleteUser(ctx context.Context, actorID string, targetID string) (*models.User, error) {
	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if user.ID == actorID {
		return nil, common.NewError(common.ErrorForbidden, "You cannot delete your own account")
	}
	if user.IsAdmin {
		return nil, common.NewError(common.ErrorForbidden, "Cannot delete admin users")
	}

	if err := s.repomanager.Users(s.db).Delete(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// ToggleUserStatus flips an account between enabled and disabled. Admins
// cannot disable themselves. Returns the account with its new state.
func (s *AdminService) ToggleUserStatus(ctx context.Context, actorID string, targetID string) (*models.User, error) {
	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if user.ID == actorID {
		return nil, common.NewError(common.ErrorForbidden, "You cannot disable your own account")
	}

	if err := s.repomanager.Users(s.db).SetActive(ctx, user.ID, !user.IsActive); err != nil {
		return nil, err
	}
	user.IsActive = !user.IsActive
	return user, nil
}

// ChangeUserRole promotes or demotes an account. Admins cannot change
// their own role. Returns the account with its new role.
func (s *AdminService) ChangeUserRole(ctx context.Context, actorID string, targetID string, role string) (*models.User, error) {
	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if role != "user" && role != "admin" {
		return nil, common.NewError(common.ErrorValidation, `Invalid role. Must be "user" or "admin"`)
	}
	if user.ID == actorID {
		return nil, common.NewError(common.ErrorForbidden, "You cannot change your own role")
	}

	if err := s.repomanager.Users(s.db).SetAdmin(ctx, user.ID, role == "admin"); err != nil {
		return nil, err
	}
	user.IsAdmin = role == "admin"
	return user, nil
}

func (s *AdminService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}
