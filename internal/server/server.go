// Package server wires the application together and runs the HTTP server.
//
// COMPOSITION ROOT:
// New is the one place where concrete types meet:
//
//	sqlite.DB ─┬─ Users() ─→ AuthService ─→ AuthHandler
//	           └─ Jobs()  ─→ OwnershipGuard ─→ JobService ─→ JobHandler
//	TokenService, PasswordService ─→ AuthService ─→ auth.RequireAuth
//
// Every other package only sees interfaces or its direct dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/handler"
	"github.com/sakif/job-tracker/internal/middleware"
	"github.com/sakif/job-tracker/internal/policy"
	sqliteRepo "github.com/sakif/job-tracker/internal/repository/sqlite"
	"github.com/sakif/job-tracker/internal/service"
)

type Config struct {
	Port        int
	DBPath      string
	Environment string
	BodyLimit   int64

	JWTSecret  string
	JWTExpires time.Duration
	BcryptCost int

	RateAPI    int
	RateAuth   int
	RateWindow time.Duration
}

// Server owns the router and the database. The database is closed when
// Start returns, or by Close when the server was never started.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New loads the database image and builds the router. A storage error here
// means the image could not be read; the process should not start.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpires)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	passwords, err := auth.NewPasswordServiceWithCost(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	db, err := sqliteRepo.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, passwords)
	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET    /api/health
//	POST   /api/auth/register
//	POST   /api/auth/login
//	POST   /api/auth/logout          (auth)
//	GET    /api/auth/me              (auth)
//	GET    /api/jobs                 (auth)
//	POST   /api/jobs                 (auth)
//	GET    /api/jobs/{id}            (auth)
//	PUT    /api/jobs/{id}            (auth)
//	PATCH  /api/jobs/{id}/status     (auth)
//	DELETE /api/jobs/{id}            (auth)
//
// MIDDLEWARE ORDER:
// RealIP runs before the rate limiters so they key on the client address,
// not the proxy's. The auth limiter stacks on top of the API limiter.
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	users, jobs := s.db.Users(), s.db.Jobs()
	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	jobService := service.NewJobService(jobs, policy.NewOwnershipGuard(jobs, s.logger), s.logger)

	authHandler := handler.NewAuthHandler(authService, jobService, s.logger)
	jobHandler := handler.NewJobHandler(jobService, s.logger)
	healthHandler := handler.NewHealthHandler(s.config.Environment)
	requireAuth := auth.RequireAuth(authService, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// set before Route so the sub-routers inherit them
	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.config.RateAPI, s.config.RateWindow, middleware.MsgTooManyRequests))
		r.Use(chimiddleware.RequestSize(s.config.BodyLimit))

		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit(s.config.RateAuth, s.config.RateWindow, middleware.MsgTooManyAuthAttempts))

			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.With(requireAuth).Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/", jobHandler.HandleList)
			r.Post("/", jobHandler.HandleCreate)
			r.Get("/{id}", jobHandler.HandleGet)
			r.Put("/{id}", jobHandler.HandleUpdate)
			r.Patch("/{id}/status", jobHandler.HandleUpdateStatus)
			r.Delete("/{id}", jobHandler.HandleDelete)
		})
	})
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Close() error { return s.db.Close() }

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
//
// Every write is flushed before its response is sent, so shutdown has no
// pending data to save.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api/health", s.config.Port)),
			slog.String("database", s.db.Path()),
			slog.String("environment", s.config.Environment),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
