// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/config"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/di"
	accountshandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts/handlers"
	categorieshandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/categories/handlers"
	currencyhandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency/handlers"
	investmentshandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/investments/handlers"
	projectshandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/projects/handlers"
	recurringhandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/recurring/handlers"
	reportshandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/reports/handlers"
	settingshandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/settings/handlers"
	transactionshandlers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions/handlers"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
)

// requestTimeout bounds every API request except the event streams
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
	streams        *EventsStreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
	}
	s.systemHandlers = NewSystemHandlers(cfg.Container, cfg.Config.DataDir, cfg.Log)
	s.streams = NewEventsStreamHandler(cfg.Container.EventBus, cfg.Log)

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open; API routes are bounded
		// by the timeout middleware instead.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Attaches the user id; handlers reject anonymous requests themselves
	s.router.Use(s.container.Authenticator.Middleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived streams, outside the request timeout
		r.Get("/events/stream", s.streams.ServeSSE)
		r.Get("/events/ws", s.streams.ServeWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			c := s.container

			settingsHandler := settingshandlers.NewHandler(c.SettingsService, c.AccountService, s.log)
			if s.cfg.DevMode {
				settingsHandler.EnableGlobal(c.SettingsRepo)
			}
			settingsHandler.RegisterRoutes(r)
			currencyhandlers.NewHandler(c.CurrencyService, c.SettingsService, s.log).RegisterRoutes(r)
			accountshandlers.NewHandler(c.AccountService, s.log).RegisterRoutes(r)
			categorieshandlers.NewHandler(c.CategoryService, s.log).RegisterRoutes(r)
			transactionshandlers.NewHandler(c.TransactionService, s.log).RegisterRoutes(r)
			investmentshandlers.NewHandler(c.InvestmentService, s.log).RegisterRoutes(r)
			projectshandlers.NewHandler(c.ProjectService, s.log).RegisterRoutes(r)
			recurringhandlers.NewHandler(c.RecurringService, s.log).RegisterRoutes(r)
			reportshandlers.NewHandler(c.ReportService, s.log).RegisterRoutes(r)

			s.systemHandlers.RegisterRoutes(r)

			if s.cfg.DevMode {
				r.Post("/auth/dev-token", s.handleDevToken)
			}
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth reports liveness without touching the databases
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, map[string]string{
		"status":  "healthy",
		"service": "finance",
	})
}

// handleDevToken issues a session token for any user id. Dev mode only.
func (s *Server) handleDevToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, s.log, err)
		return
	}
	if req.UserID == "" {
		respond.Fail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := s.container.Authenticator.SignToken(req.UserID)
	if err != nil {
		respond.Error(w, s.log, err)
		return
	}
	respond.OK(w, map[string]string{"token": token})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
