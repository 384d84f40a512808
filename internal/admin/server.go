// server.go — Admin HTTP surface: login, registry CRUD, audit trail, reviews.
package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/suistream/suistream/internal/auth"
	"github.com/suistream/suistream/internal/metrics"
	"github.com/suistream/suistream/internal/middleware"
	"github.com/suistream/suistream/internal/ratelimit"
	"github.com/suistream/suistream/pkg/telemetry"
)

// Server exposes the admin service over HTTP. All routes except login require
// a valid admin session cookie.
type Server struct {
	svc     *Service
	limiter *ratelimit.Limiter
	logger  *slog.Logger

	adminUser     string
	adminPassHash string
	jwtSecret     string
}

// NewServer wires the admin HTTP surface. limiter may be backed by a nil
// store, in which case login attempts are not rate limited.
func NewServer(svc *Service, limiter *ratelimit.Limiter, adminUser, adminPassHash, jwtSecret string, logger *slog.Logger) *Server {
	return &Server{
		svc:           svc,
		limiter:       limiter,
		logger:        logger,
		adminUser:     adminUser,
		adminPassHash: adminPassHash,
		jwtSecret:     jwtSecret,
	}
}

// Routes builds the chi router for the admin surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(telemetry.PanicRecoveryMiddleware())
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders)
	r.Use(metrics.Middleware)

	r.Post("/admin/login", s.handleLogin)
	r.Post("/admin/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(s.jwtSecret))

		r.Get("/admin/registry", s.handleListRegistry)
		r.Post("/admin/registry", s.handleOnboard)
		r.Put("/admin/registry", s.handleUpdate)
		r.Delete("/admin/registry/{wallet}", s.handleRemove)

		r.Get("/admin/audit", s.handleAudit)
		r.Post("/admin/reviews", s.handleSetReviews)
	})

	return r
}
