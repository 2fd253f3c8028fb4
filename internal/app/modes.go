package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketlinks/internal/server"
	"github.com/alanyoungcy/marketlinks/internal/server/handler"
	"github.com/alanyoungcy/marketlinks/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// Serve builds the services over deps and runs the HTTP server, the WebSocket
// hub, the simulation loop and the notification relay. Both modes share it;
// they differ only in what Wire put behind the bus and limiter.
func (a *App) Serve(ctx context.Context, deps *Dependencies) error {
	svcs := BuildServices(a.cfg, deps, a.logger)
	startedAt := time.Now().UTC()

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: startedAt,
		ReplayLen: a.cfg.Bus.ReplayLen,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return a.simulate(ctx, deps, svcs)
	})

	if deps.Notifier.Enabled() {
		g.Go(func() error {
			return deps.Notifier.Relay(ctx, deps.SignalBus)
		})
	}

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(svcs.Assistant, a.cfg.Mode, startedAt, a.logger),
		Listings:      handler.NewListingHandler(svcs.Catalog, a.logger),
		Onboarding:    handler.NewOnboardingHandler(svcs.Onboarding, deps.Sessions, a.logger),
		Checkouts:     handler.NewCheckoutHandler(svcs.Checkout, a.logger),
		Dashboard:     handler.NewDashboardHandler(svcs.Dashboard, svcs.Verification, a.logger),
		Conversations: handler.NewConversationHandler(svcs.Conversations, a.logger),
		Assistant:     handler.NewAssistantHandler(svcs.Assistant, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// simulate advances the checkout and verification timers every tick until
// ctx is cancelled.
func (a *App) simulate(ctx context.Context, deps *Dependencies, svcs *Services) error {
	interval := a.cfg.Simulation.TickInterval.Duration
	a.logger.InfoContext(ctx, "simulation loop started",
		slog.Duration("tick_interval", interval),
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := deps.Clock.Now()
			svcs.Checkout.Tick(ctx, now)
			svcs.Verification.Tick(ctx, now)
		}
	}
}
