package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/server/auth"
	"github.com/equipsense/equipsense/internal/server/models"
)

type ctxKey string

const userKey ctxKey = "user"

// withAuth authenticates the request from the Authorization header and
// loads the account, so handlers always work with a live user row rather
// than stale token claims.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.writeJSON(w, http.StatusUnauthorized, M{"success": false, "message": "Authentication credentials were not provided."})
			return
		}

		claims, err := auth.GetClaims(token, s.jwtSecret)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "Token has expired"
			}
			s.writeJSON(w, http.StatusUnauthorized, M{"success": false, "message": msg})
			return
		}

		user, err := s.services.Users.Profile(r.Context(), claims.UserID)
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, M{"success": false, "message": "User not found"})
			return
		}
		if !user.IsActive {
			s.writeJSON(w, http.StatusForbidden, M{"success": false, "message": "User account is disabled"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// withAdmin allows only admin accounts through. Must run after withAuth.
func (s *Server) withAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			s.writeJSON(w, http.StatusForbidden, M{"success": false, "message": "Admin privileges required to access this endpoint"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userFromContext returns the account stored by withAuth, or nil.
func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// clientIP extracts the caller address for audit records. The RealIP
// middleware has already folded X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
