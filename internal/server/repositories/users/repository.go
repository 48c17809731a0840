// Package users provides the PostgreSQL-backed repository for user accounts.
package users

import (
	"context"
	"time"

	"github.com/equipsense/equipsense/internal/server/models"
)

// ListFilter narrows List results.
type ListFilter struct {
	// Role is "user" or "admin"; empty means all roles.
	Role string
	// Search is a case-insensitive substring matched against username,
	// email, first name and last name.
	Search string
}

// Stats is the aggregate snapshot shown on the admin dashboard.
type Stats struct {
	TotalUsers          int
	TotalAdmins         int
	VerifiedUsers       int
	RecentRegistrations int
}

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UserNameExists(ctx context.Context, userName string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePasswordHash(ctx context.Context, userID string, passwordHash string) error
	RecordLogin(ctx context.Context, userID string, ip string) error
	LinkGoogle(ctx context.Context, userID string, googleID string, profilePicture string) error
	SetActive(ctx context.Context, userID string, active bool) error
	SetAdmin(ctx context.Context, userID string, isAdmin bool) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context, filter ListFilter) ([]*models.User, error)
	Stats(ctx context.Context, recentSince time.Time) (*Stats, error)
}
