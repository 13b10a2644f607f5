package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server wraps the HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a new HTTP server with all dashboard routes registered
func NewServer(h *Handlers, port string, logger *zap.Logger) *Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(h, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("HTTP server configured", zap.String("port", port))

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}
}

// NewRouter builds the chi router for the dashboard API
func NewRouter(h *Handlers, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(loggingMiddleware(logger))

	r.Get("/health", h.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Get("/callback", h.Callback)
		r.Get("/status", h.Status)
		r.Post("/logout", h.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		// The socket endpoint authenticates itself so the session can
		// arrive as a query parameter
		r.Get("/ws/leaderboard", h.LeaderboardSocket)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireUser)

			r.Get("/tournaments", h.ListTournaments)
			r.Get("/tournaments/active", h.ActiveTournament)
			r.Get("/tournaments/{tournamentID}/field", h.TournamentField)
			r.Get("/tournaments/{tournamentID}/leaderboard", h.TournamentLeaderboard)
			r.Get("/standings", h.Standings)

			r.Put("/draft", h.SaveDraft)
			r.Get("/draft", h.LoadDraft)
			r.Delete("/draft", h.ClearDraft)
			r.Get("/draft/status", h.DraftStatus)

			r.Post("/entries", h.SubmitEntry)
			r.Get("/entries", h.GetUserEntry)
			r.Put("/entries", h.UpdateEntry)
			r.Delete("/entries", h.WithdrawEntry)
		})
	})

	return r
}

// Serve starts the HTTP server
func (s *Server) Serve() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}

// loggingMiddleware logs all HTTP requests
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrappedWriter := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrappedWriter, r)

			logger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrappedWriter.statusCode),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
