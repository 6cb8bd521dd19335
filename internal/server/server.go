// Package server sets up the HTTP server, router, and all route definitions.
//
// It is the composition root: every dependency is wired in New, so main
// stays small and tests can build a full server around fakes.
//
// DEPENDENCY INJECTION FLOW:
//
//	sqlite.DB ──┬─→ AuthService ───→ AuthHandler
//	            └─→ ResumeService ─┬→ ResumeHandler
//	Renderer → Preprocessor ───────┘   └→ AssessService → AssessHandler
//	ModelClient → Orchestrator ────────────────┘
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

	"github.com/sakif/resumatch/internal/assess"
	"github.com/sakif/resumatch/internal/auth"
	"github.com/sakif/resumatch/internal/cache"
	"github.com/sakif/resumatch/internal/handler"
	"github.com/sakif/resumatch/internal/middleware"
	"github.com/sakif/resumatch/internal/preprocess"
	sqliteRepo "github.com/sakif/resumatch/internal/repository/sqlite"
	"github.com/sakif/resumatch/internal/service"
	"github.com/sakif/resumatch/internal/session"
)

// Config holds server configuration.
type Config struct {
	Port           int
	DBPath         string
	SessionSecret  string
	SessionTTL     time.Duration
	SecureCookie   bool
	Model          string
	ModelTimeout   time.Duration
	JPEGQuality    int
	CacheTTL       time.Duration
	MaxUploadBytes int64
}

// Deps are the collaborators built outside the server because they reach
// external systems.
type Deps struct {
	Renderer preprocess.Renderer
	Models   assess.ModelClient
	// Passwords defaults to auth.NewPasswordService().
	Passwords *auth.PasswordService
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires services, handlers and routes.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Renderer == nil || deps.Models == nil {
		return nil, errors.New("server: renderer and model client are required")
	}
	if deps.Passwords == nil {
		deps.Passwords = auth.NewPasswordService()
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens, deps)
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                 → liveness (pings the DB)
//	POST   /api/signup              → create account
//	POST   /api/login               → log in
//	POST   /api/logout              → log out
//	GET    /api/me                  → session info            [auth]
//	POST   /api/resumes             → upload PDF              [auth]
//	GET    /api/resumes             → list, paged             [auth]
//	POST   /api/resumes/{id}/use    → load an earlier upload  [auth]
//	DELETE /api/resumes/{id}        → delete                  [auth]
//	POST   /api/assess/{mode}       → review | match          [auth]
//
// MIDDLEWARE ORDER MATTERS: RequestID first so the logger can see it,
// Recoverer inside Logger so a panic is still logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	cookie := session.CookieConfig{
		Name:   session.DefaultCookieName,
		Secure: s.config.SecureCookie,
		MaxAge: tokens.TTL(),
	}
	s.router.Use(auth.LoadSession(tokens, cookie))

	// === Services ===
	memo := cache.New(s.config.CacheTTL)
	preprocessor := preprocess.New(deps.Renderer, memo, s.config.JPEGQuality, s.logger)
	orchestrator := assess.New(deps.Models, s.config.Model, s.config.ModelTimeout, s.logger)

	authService := service.NewAuthService(s.db, deps.Passwords, s.logger)
	resumeService := service.NewResumeService(s.db, preprocessor, memo, s.config.MaxUploadBytes, s.logger)
	assessService := service.NewAssessService(resumeService, orchestrator, s.logger)

	// === Handlers ===
	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	authHandler := handler.NewAuthHandler(authService, cookie, s.logger)
	resumeHandler := handler.NewResumeHandler(resumeService, cookie, s.config.MaxUploadBytes, s.logger)
	assessHandler := handler.NewAssessHandler(assessService, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get("/me", authHandler.HandleMe)

			r.Post("/resumes", resumeHandler.HandleUpload)
			r.Get("/resumes", resumeHandler.HandleList)
			r.Post("/resumes/{id}/use", resumeHandler.HandleUse)
			r.Delete("/resumes/{id}", resumeHandler.HandleDelete)

			r.Post("/assess/{mode}", assessHandler.HandleAssess)
		})
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until SIGINT/SIGTERM, then drains in-flight requests
// for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	modelTimeout := s.config.ModelTimeout
	if modelTimeout <= 0 {
		modelTimeout = assess.DefaultTimeout
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// An assessment may legitimately take the full model timeout.
		WriteTimeout: modelTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
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
