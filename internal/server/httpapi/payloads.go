package httpapi

import (
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/services"
)

// userPayload shapes an account the way the auth endpoints expose it.
func userPayload(u *models.User) M {
	return M{
		"id":            u.ID,
		"username":      u.UserName,
		"email":         u.Email,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"is_admin_user": u.IsAdmin,
		"role":          u.Role(),
		"profile": M{
			"is_email_verified": u.IsEmailVerified,
			"is_admin_user":     u.IsAdmin,
			"profile_picture":   u.ProfilePicture,
			"phone_number":      u.PhoneNumber,
			"login_count":       u.LoginCount,
			"created_at":        u.CreatedAt,
			"updated_at":        u.UpdatedAt,
		},
	}
}

// legacyUserPayload is the reduced shape of the single-step register and
// login endpoints.
func legacyUserPayload(u *models.User) M {
	return M{
		"id":         u.ID,
		"username":   u.UserName,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
	}
}

func tokensPayload(t *services.TokenPair) M {
	return M{"refresh": t.RefreshToken, "access": t.AccessToken}
}
