// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency — database, Supabase
// client, token service, session service, handlers — is constructed and
// wired here, then injected downward. Nothing else in the codebase creates
// its own collaborators, which is what keeps the layers testable.
//
// DEPENDENCY FLOW:
//
//	Config → sqlite.DB ─────────────┐
//	       → supabase.Client ───────┼→ SessionService → AuthHandler
//	       → auth.TokenService ─────┘                 ↘ auth.RequireAuth
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/afyapp/backend/internal/auth"
	"github.com/afyapp/backend/internal/config"
	"github.com/afyapp/backend/internal/handler"
	"github.com/afyapp/backend/internal/middleware"
	"github.com/afyapp/backend/internal/provider/supabase"
	sqliteRepo "github.com/afyapp/backend/internal/repository/sqlite"
	"github.com/afyapp/backend/internal/service"
)

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB // owned by the server, closed on shutdown
}

// New wires the full dependency graph and registers routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	// One Supabase client for the whole process — its HTTP connection pool
	// is reused across requests rather than reconstructed per call.
	supabaseClient := supabase.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, logger)

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens, supabaseClient)

	return s, nil
}

// setupRoutes configures middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /              → service identity probe
//	GET  /health        → liveness probe
//	POST /auth/signup   → public
//	POST /auth/login    → public
//	POST /auth/refresh  → public (the refresh token IS the credential)
//	POST /auth/logout   → protected
//	GET  /auth/me       → protected
func (s *Server) setupRoutes(tokens *auth.TokenService, supabaseClient *supabase.Client) {
	// Global middleware, in order: request ID for tracing, real client IP
	// from proxy headers, panic recovery, then request logging.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	sessions := service.NewSessionService(s.db, supabaseClient, tokens, s.logger)
	authHandler := handler.NewAuthHandler(sessions, s.logger, s.config.IsDevelopment())
	indexHandler := handler.NewIndexHandler()

	s.router.Get("/", indexHandler.HandleRoot)
	s.router.Get("/health", indexHandler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/refresh", authHandler.HandleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/me", authHandler.HandleMe)
		})
	})

	// Uniform body for unmatched routes
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error":"Not Found","message":"Cannot %s %s","statusCode":404}`,
			r.Method, r.URL.Path)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, close the database (flushes the WAL, releases the lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("mode", s.config.Env),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
