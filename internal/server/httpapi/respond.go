package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/equipsense/equipsense/internal/common"
)

// M is a free-form JSON response body.
type M map[string]any

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// readJSON decodes the request body into dst. An empty body is accepted so
// missing fields surface as field validation errors, not parse errors.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, M{"success": false, "message": "Invalid request body"})
		return false
	}
	return true
}

// authError writes a service error in the auth envelope. Field validation
// errors keep their per-field messages; everything else maps to a status
// with a single message.
func (s *Server) authError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		s.writeJSON(w, http.StatusBadRequest, M{"success": false, "errors": ve.Fields})
		return
	}

	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, M{"success": false, "message": userMessage(err)})
}

// datasetError writes a service error in the flat envelope the dataset
// endpoints have always used.
func (s *Server) datasetError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, M{"error": userMessage(err)})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorDuplicate):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// userMessage returns the part of err safe to show the caller. Errors
// without a service message fall back to a generic line.
func userMessage(err error) string {
	var ce *common.Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	switch {
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrorUnauthorized):
		return "Token is invalid or expired"
	default:
		return "An error occurred"
	}
}
