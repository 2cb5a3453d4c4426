// Package server wires the application together: database, services,
// handlers, middleware, and routes. It is the composition root — every
// dependency is constructed and connected here, and nowhere else.
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

	"github.com/sakif/miniblog/internal/auth"
	"github.com/sakif/miniblog/internal/config"
	"github.com/sakif/miniblog/internal/handler"
	"github.com/sakif/miniblog/internal/middleware"
	sqliteRepo "github.com/sakif/miniblog/internal/repository/sqlite"
	"github.com/sakif/miniblog/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → AuthService/PostService → handlers → routes
//
// Each layer receives only what it needs — handlers get services, services
// get repository interfaces, and nothing below the composition root knows
// a concrete type it doesn't have to.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
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

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and all route handlers.
//
// MIDDLEWARE ORDER:
//  1. RealIP — real client address from proxy headers, for the logs
//  2. Recoverer — a panicking handler becomes a 500, not a dead process
//  3. request logging
//  4. identity resolution — after this, every handler can ask the context
//     who is making the request
func (s *Server) setupRoutes() error {
	sessions, err := auth.NewSessionService(s.config.SecretKey)
	if err != nil {
		return fmt.Errorf("creating session service: %w", err)
	}

	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(auth.Resolver(s.db.Users(), sessions, s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	flash := handler.NewFlashStore(s.config.SecretKey, s.logger)
	render, err := handler.NewRenderer(s.config.TemplateDir, flash, s.logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	authService := service.NewAuthService(s.db.Users(), auth.NewPasswordService(), s.logger)
	postService := service.NewPostService(s.db.Posts(), s.logger)

	authHandler := handler.NewAuthHandler(authService, sessions, render, flash, s.logger)
	blogHandler := handler.NewBlogHandler(postService, render, flash, s.config.PostsPerPage, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/register", authHandler.HandleRegisterForm)
		r.Post("/register", authHandler.HandleRegister)
		r.Get("/login", authHandler.HandleLoginForm)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/logout", authHandler.HandleLogout)
	})

	s.router.Get("/", blogHandler.HandleIndex)
	s.router.Get("/create", blogHandler.HandleCreateForm)
	s.router.Post("/create", blogHandler.HandleCreate)
	s.router.Get("/{id}", blogHandler.HandleShow)
	s.router.Get("/{id}/update", blogHandler.HandleUpdateForm)
	s.router.Post("/{id}/update", blogHandler.HandleUpdate)
	s.router.Post("/{id}/delete", blogHandler.HandleDelete)

	// Unmatched routes get the same 404 page as a missing post.
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, "404", http.StatusNotFound, nil)
	})

	return nil
}

// Handler exposes the router; tests mount it on an httptest.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out; tests that
// never call Start use it directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.Addr,
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
			slog.String("addr", s.config.Addr),
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
