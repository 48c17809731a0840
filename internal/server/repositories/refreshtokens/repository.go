// Package refreshtokens declares the server-side repository contract for
// the opaque refresh tokens backing JWT renewal.
package refreshtokens

import (
	"context"
	"time"

	"github.com/equipsense/equipsense/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	// remember_me logins pass a longer validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a
	// non-existent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteForUser revokes every refresh token issued to userID.
	DeleteForUser(ctx context.Context, userID string) error
}
