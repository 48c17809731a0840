package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/equipsense/equipsense/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Delivery modes reported by the health endpoint.
const (
	ModeSMTP    = "smtp"
	ModeConsole = "console"
)

// Server serves the mailer API.
type Server struct {
	addr   string
	logger logging.Logger
	sender Sender
	mode   string
}

// NewServer returns a Server listening on addr once Run is called.
func NewServer(addr string, l logging.Logger, sender Sender, mode string) *Server {
	return &Server{
		addr:   addr,
		logger: l.With("module", "mailer"),
		sender: sender,
		mode:   mode,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("error starting http listener: %w", err)
	}

	srv := &http.Server{Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "error shutting down http server", "error", err)
		}
	}()

	s.logger.Info(ctx, "starting mailer server", "addr", s.addr, "mode", s.mode)
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error running http server: %w", err)
	}
	return nil
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/api/otp/send", s.handleSend)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleSend renders and delivers one OTP email.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	msg, err := Compose(&req)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	if err := s.sender.Send(r.Context(), msg); err != nil {
		s.logger.Error(r.Context(), "error delivering otp email", "to", msg.To, "error", err)
		s.writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"message": "Failed to deliver OTP email",
		})
		return
	}

	s.logger.Info(r.Context(), "otp email sent", "to", msg.To, "purpose", req.Purpose)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "OTP email sent",
	})
}

// handleHealth reports liveness and the configured delivery mode.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"mode":   s.mode,
	})
}
