package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/metrics"
	"github.com/alanyoungcy/marketlinks/internal/server/handler"
	"github.com/alanyoungcy/marketlinks/internal/server/middleware"
	"github.com/alanyoungcy/marketlinks/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// RateLimitPerMinute caps requests per client IP. Zero disables limiting.
	RateLimitPerMinute int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Listings      *handler.ListingHandler
	Onboarding    *handler.OnboardingHandler
	Checkouts     *handler.CheckoutHandler
	Dashboard     *handler.DashboardHandler
	Conversations *handler.ConversationHandler
	Assistant     *handler.AssistantHandler
}

// Server is the HTTP + WebSocket API server for the marketplace.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. limiter may be nil
// when rate limiting is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewHandler(cfg, handlers, wsHub, limiter, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// NewHandler builds the routed and wrapped handler tree.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", metrics.Handler())

	// Catalog.
	mux.HandleFunc("GET /api/listings", handlers.Listings.ListListings)
	mux.HandleFunc("GET /api/listings/{id}", handlers.Listings.GetListing)
	mux.HandleFunc("POST /api/listings", handlers.Listings.CreateListing)
	mux.HandleFunc("GET /api/categories", handlers.Listings.ListCategories)

	// Onboarding wizard and session.
	mux.HandleFunc("GET /api/onboarding", handlers.Onboarding.GetState)
	mux.HandleFunc("GET /api/onboarding/countries", handlers.Onboarding.ListCountries)
	mux.HandleFunc("POST /api/onboarding/role", handlers.Onboarding.SelectRole)
	mux.HandleFunc("POST /api/onboarding/contact", handlers.Onboarding.SubmitContact)
	mux.HandleFunc("POST /api/onboarding/snapshot", handlers.Onboarding.Snapshot)
	mux.HandleFunc("POST /api/onboarding/avatar", handlers.Onboarding.SubmitAvatar)
	mux.HandleFunc("POST /api/onboarding/identity", handlers.Onboarding.SubmitIdentity)
	mux.HandleFunc("POST /api/onboarding/back", handlers.Onboarding.Back)
	mux.HandleFunc("POST /api/onboarding/confirm", handlers.Onboarding.Confirm)
	mux.HandleFunc("POST /api/onboarding/reset", handlers.Onboarding.Reset)
	mux.HandleFunc("GET /api/session", handlers.Onboarding.GetSession)

	// Checkout sequence.
	mux.HandleFunc("POST /api/checkouts", handlers.Checkouts.StartCheckout)
	mux.HandleFunc("GET /api/checkouts/{id}", handlers.Checkouts.GetCheckout)
	mux.HandleFunc("POST /api/checkouts/{id}/proceed", handlers.Checkouts.Proceed)
	mux.HandleFunc("POST /api/checkouts/{id}/pay", handlers.Checkouts.Pay)
	mux.HandleFunc("POST /api/checkouts/{id}/method", handlers.Checkouts.SelectMethod)
	mux.HandleFunc("POST /api/checkouts/{id}/token", handlers.Checkouts.SelectToken)
	mux.HandleFunc("POST /api/checkouts/{id}/confirm", handlers.Checkouts.Confirm)
	mux.HandleFunc("POST /api/checkouts/{id}/commit", handlers.Checkouts.Commit)
	mux.HandleFunc("POST /api/checkouts/{id}/close", handlers.Checkouts.CloseCheckout)

	// Dashboard and tier verification.
	mux.HandleFunc("GET /api/dashboard", handlers.Dashboard.GetDashboard)
	mux.HandleFunc("GET /api/transactions", handlers.Dashboard.ListTransactions)
	mux.HandleFunc("GET /api/verification", handlers.Dashboard.GetVerification)
	mux.HandleFunc("POST /api/verification", handlers.Dashboard.OpenVerification)
	mux.HandleFunc("DELETE /api/verification", handlers.Dashboard.CancelVerification)
	mux.HandleFunc("POST /api/verification/scan", handlers.Dashboard.Scan)

	// Conversations.
	mux.HandleFunc("GET /api/conversations", handlers.Conversations.ListConversations)
	mux.HandleFunc("POST /api/conversations", handlers.Conversations.StartConversation)
	mux.HandleFunc("GET /api/conversations/{id}", handlers.Conversations.GetConversation)
	mux.HandleFunc("POST /api/conversations/{id}/messages", handlers.Conversations.SendMessage)
	mux.HandleFunc("POST /api/conversations/{id}/advice", handlers.Conversations.GetAdvice)

	// Assistant.
	mux.HandleFunc("POST /api/assistant/chat", handlers.Assistant.Chat)
	mux.HandleFunc("POST /api/assistant/describe", handlers.Assistant.Describe)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Innermost first. Metrics and Logging read the matched pattern after the
	// mux has run, so they must wrap it without replacing the request.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health", "/metrics")(h)
	if limiter != nil && cfg.RateLimitPerMinute > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute, logger)(h)
	}
	h = middleware.Metrics(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
