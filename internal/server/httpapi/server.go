// Package httpapi exposes the REST API consumed by the web frontend, the
// desktop client and older integrations. Handlers translate between the
// HTTP surface and the service layer; all business rules live below.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/equipsense/equipsense/internal/logging"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// UserAPI is the slice of the user service the transport needs.
type UserAPI interface {
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	AdminLogin(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	LegacyLogin(ctx context.Context, username string, password string) (*services.LoginResult, error)
	LegacyRegister(ctx context.Context, in services.LegacyRegisterInput) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, userID string) (*models.User, error)
	GoogleAuth(ctx context.Context, idToken string, ip string) (*services.GoogleResult, error)
	GoogleConfig() *services.GoogleOAuthConfig
}

// RegistrationAPI drives the OTP signup flow.
type RegistrationAPI interface {
	ValidateDetails(ctx context.Context, in services.RegisterDetails) (*services.RegisterDetails, error)
	SendOTP(ctx context.Context, in services.SendOTPInput) (*services.OTPIssue, error)
	VerifyOTP(ctx context.Context, in services.VerifyOTPInput) error
	CreatePassword(ctx context.Context, in services.CreatePasswordInput) (*models.User, error)
	ResendOTP(ctx context.Context, email string, purpose string, ip string) (*services.OTPIssue, error)
}

// PasswordResetAPI drives the OTP password recovery flow.
type PasswordResetAPI interface {
	Request(ctx context.Context, identifier string, ip string) (*services.OTPIssue, error)
	VerifyOTP(ctx context.Context, email string, code string) error
	Reset(ctx context.Context, in services.ResetInput) error
}

// AdminAPI covers the user management endpoints.
type AdminAPI interface {
	Dashboard(ctx context.Context) (*services.DashboardStats, error)
	ListUsers(ctx context.Context, role string, search string) ([]*services.UserSummary, error)
	DeleteUser(ctx context.Context, actorID string, targetID string) (*models.User, error)
	ToggleUserStatus(ctx context.Context, actorID string, targetID string) (*models.User, error)
	ChangeUserRole(ctx context.Context, actorID string, targetID string, role string) (*models.User, error)
}

// DatasetAPI covers CSV uploads and the analytics built on them.
type DatasetAPI interface {
	Upload(ctx context.Context, userID string, filename string, data []byte) (*services.UploadResult, error)
	Summary(ctx context.Context, userID string, datasetID string) (*services.Summary, error)
	History(ctx context.Context, userID string) ([]*services.HistoryItem, error)
	Detail(ctx context.Context, userID string, datasetID string) (*services.DatasetDetail, error)
	TypeDistribution(ctx context.Context, userID string, datasetID string) (map[string]int, error)
	Report(ctx context.Context, userID string, datasetID string) (*services.ReportData, error)
}

// Services bundles the service layer consumed by the handlers.
type Services struct {
	Users         UserAPI
	Registration  RegistrationAPI
	PasswordReset PasswordResetAPI
	Admin         AdminAPI
	Datasets      DatasetAPI
}

// Server serves the REST API.
type Server struct {
	addr      string
	logger    logging.Logger
	jwtSecret []byte
	services  Services
}

// NewServer returns a Server listening on addr once Run is called.
func NewServer(addr string, l logging.Logger, jwtSecret string, svc Services) *Server {
	return &Server{
		addr:      addr,
		logger:    l.With("module", "httpapi"),
		jwtSecret: []byte(jwtSecret),
		services:  svc,
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

	s.logger.Info(ctx, "starting http server", "addr", s.addr)
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error running http server: %w", err)
	}
	return nil
}

// Handler builds the route tree. Auth endpoints keep their historical
// trailing slashes; dataset endpoints never had them.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Single-step signup and login kept for older desktop builds.
			r.Post("/register", s.handleLegacyRegister)
			r.Post("/login", s.handleLegacyLogin)

			r.Post("/register/validate-details/", s.handleValidateDetails)
			r.Post("/register/send-otp/", s.handleSendOTP)
			r.Post("/register/verify-otp/", s.handleVerifyOTP)
			r.Post("/register/create-password/", s.handleCreatePassword)
			r.Post("/register/resend-otp/", s.handleResendOTP)

			r.Post("/login/user/", s.handleUserLogin)
			r.Post("/login/admin/", s.handleAdminLogin)
			r.Post("/token/refresh/", s.handleTokenRefresh)

			r.Post("/google/auth/", s.handleGoogleAuth)
			r.Get("/google/config/", s.handleGoogleConfig)
			r.Post("/password-strength/", s.handlePasswordStrength)

			r.Post("/password-reset/request/", s.handlePasswordResetRequest)
			r.Post("/password-reset/verify-otp/", s.handlePasswordResetVerify)
			r.Post("/password-reset/reset/", s.handlePasswordReset)

			r.Group(func(r chi.Router) {
				r.Use(s.withAuth)
				r.Post("/logout/", s.handleLogout)
				r.Get("/profile/", s.handleProfile)

				r.Route("/admin", func(r chi.Router) {
					r.Use(s.withAdmin)
					r.Get("/dashboard-stats/", s.handleDashboardStats)
					r.Get("/users/", s.handleListUsers)
					r.Delete("/users/{userID}/delete/", s.handleDeleteUser)
					r.Patch("/users/{userID}/toggle-status/", s.handleToggleUserStatus)
					r.Patch("/users/{userID}/change-role/", s.handleChangeUserRole)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.withAuth)
			r.Post("/upload", s.handleUpload)
			r.Get("/summary", s.handleSummary)
			r.Get("/history", s.handleHistory)
			r.Get("/report", s.handleReport)
			r.Get("/dataset/{datasetID}", s.handleDatasetDetail)
			r.Get("/type-distribution", s.handleTypeDistribution)
		})
	})

	return r
}
