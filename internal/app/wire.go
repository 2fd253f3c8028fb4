package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	cachemem "github.com/alanyoungcy/marketlinks/internal/cache/memory"
	"github.com/alanyoungcy/marketlinks/internal/cache/redis"
	"github.com/alanyoungcy/marketlinks/internal/capture"
	"github.com/alanyoungcy/marketlinks/internal/clock"
	"github.com/alanyoungcy/marketlinks/internal/config"
	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/labels"
	"github.com/alanyoungcy/marketlinks/internal/notify"
	"github.com/alanyoungcy/marketlinks/internal/platform/gemini"
	"github.com/alanyoungcy/marketlinks/internal/service"
	"github.com/alanyoungcy/marketlinks/internal/store/memory"
)

// Operating modes.
const (
	// ModeStandalone keeps the event bus and rate limiter in process.
	ModeStandalone = "standalone"
	// ModeClustered moves the event bus and rate limiter to Redis so several
	// daemons share one event stream.
	ModeClustered = "clustered"
)

// Dependencies bundles every domain-level dependency the services need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Listings      domain.ListingStore
	Ledger        domain.LedgerStore
	Sessions      domain.SessionStore
	Conversations domain.ConversationStore

	// Event bus and request limiting
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Devices and generation
	Generator domain.Generator
	Device    capture.Device

	Clock  clock.Clock
	Labels *labels.Source

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	clk := clock.Real{}
	now := clk.Now()
	deps := &Dependencies{
		Listings:      memory.NewListingStore(service.SeedListings(now)),
		Ledger:        memory.NewLedgerStore(),
		Sessions:      memory.NewSessionStore(),
		Conversations: memory.NewConversationStore(service.SeedConversations(now)),
		Clock:         clk,
		Labels:        labels.NewSource(nil),
	}

	// --- Event bus ---
	switch strings.ToLower(cfg.Mode) {
	case ModeClustered:
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Namespace:  cfg.Redis.Namespace,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Bus.ReplayLen)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	default:
		deps.SignalBus = cachemem.NewSignalBus(cfg.Bus.ReplayLen)
		deps.RateLimiter = cachemem.NewRateLimiter(clk)
	}

	// --- Generator ---
	gen, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout.Duration)
	switch {
	case errors.Is(err, domain.ErrGeneratorUnavailable):
		logger.InfoContext(ctx, "wire: no gemini api key, assistant uses fixed replies")
		deps.Generator = gemini.Disabled{}
	case err != nil:
		logger.WarnContext(ctx, "wire: gemini client unavailable, assistant uses fixed replies",
			slog.String("error", err.Error()),
		)
		deps.Generator = gemini.Disabled{}
	default:
		closers = append(closers, func() { _ = gen.Close() })
		deps.Generator = gen
	}

	// --- Camera ---
	switch strings.ToLower(cfg.Capture.Device) {
	case "file":
		deps.Device = capture.FileDevice{Path: cfg.Capture.FramePath}
	default:
		deps.Device = capture.Unavailable{}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramBotToken,
			cfg.Notify.TelegramChatID,
			cfg.Notify.Storefront,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL, cfg.Notify.Storefront))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// Services holds the marketplace services built over Dependencies.
type Services struct {
	Events        *service.EventPublisher
	Catalog       *service.CatalogService
	Onboarding    *service.OnboardingService
	Checkout      *service.CheckoutService
	Dashboard     *service.DashboardService
	Verification  *service.VerificationService
	Assistant     *service.AssistantService
	Conversations *service.ConversationService
}

// BuildServices constructs the service layer from deps and the simulation
// settings in cfg.
func BuildServices(cfg *config.Config, deps *Dependencies, logger *slog.Logger) *Services {
	sim := cfg.Simulation
	events := service.NewEventPublisher(deps.SignalBus, logger)
	assistant := service.NewAssistantService(deps.Generator, logger)

	return &Services{
		Events:  events,
		Catalog: service.NewCatalogService(deps.Listings, deps.Sessions, deps.Labels, deps.Clock, events, logger),
		Onboarding: service.NewOnboardingService(deps.Sessions, deps.Device, deps.Labels, deps.Clock, events,
			service.OnboardingConfig{
				DefaultCountry:      cfg.Onboarding.DefaultCountry,
				EmailOwnerHeuristic: cfg.Onboarding.EmailOwnerHeuristic,
			}, logger),
		Checkout: service.NewCheckoutService(deps.Listings, deps.Sessions, deps.Ledger, deps.Labels, deps.Clock, events,
			service.CheckoutTimings{
				EscrowLock:     sim.EscrowLock.Duration,
				CardConfirm:    sim.CardConfirm.Duration,
				CryptoValidate: sim.CryptoValidate.Duration,
				CryptoRelease:  sim.CryptoRelease.Duration,
			}, logger),
		Dashboard: service.NewDashboardService(deps.Listings, deps.Ledger, deps.Sessions, logger),
		Verification: service.NewVerificationService(deps.Sessions, deps.Device, deps.Clock, events,
			service.ScanTimings{
				Step:      sim.ScanStep.Duration,
				Increment: sim.ScanIncrement,
			}, logger),
		Assistant: assistant,
		Conversations: service.NewConversationService(deps.Conversations, deps.Listings, assistant,
			deps.Labels, deps.Clock, events, sim.Handshake.Duration, logger),
	}
}
