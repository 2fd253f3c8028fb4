package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/capture"
	"github.com/alanyoungcy/marketlinks/internal/clock"
	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/metrics"
)

const cameraRequiredNotice = "Camera required for advanced verification."

// ScanTimings drives the progress counter: Increment percent per Step.
type ScanTimings struct {
	Step      time.Duration
	Increment int
}

// VerificationState is a snapshot of the tier upgrade overlay.
type VerificationState struct {
	Open         bool        `json:"open"`
	TargetTier   domain.Tier `json:"target_tier,omitempty"`
	Progress     int         `json:"progress"`
	Scanning     bool        `json:"scanning"`
	CameraActive bool        `json:"camera_active"`
	Notice       string      `json:"notice,omitempty"`
	// CompletedTier is the tier granted by the last finished scan.
	CompletedTier domain.Tier `json:"completed_tier,omitempty"`
}

// VerificationService runs the simulated capture-and-scan upgrade of the
// actor's tier. Tier and ceiling only ever increase.
type VerificationService struct {
	sessions domain.SessionStore
	device   capture.Device
	clock    clock.Clock
	events   *EventPublisher
	timings  ScanTimings
	logger   *slog.Logger

	mu        sync.Mutex
	state     VerificationState
	scanStart time.Time
	stream    capture.Stream
}

// NewVerificationService creates a VerificationService.
func NewVerificationService(
	sessions domain.SessionStore,
	device capture.Device,
	clk clock.Clock,
	events *EventPublisher,
	timings ScanTimings,
	logger *slog.Logger,
) *VerificationService {
	if timings.Step <= 0 {
		timings.Step = 100 * time.Millisecond
	}
	if timings.Increment <= 0 {
		timings.Increment = 5
	}
	return &VerificationService{
		sessions: sessions,
		device:   device,
		clock:    clk,
		events:   events,
		timings:  timings,
		logger:   logger,
	}
}

// Open shows the capture overlay for target. The target must be a higher
// tier than the actor's. A camera failure leaves the overlay usable with a
// notice.
func (s *VerificationService) Open(ctx context.Context, target domain.Tier) (VerificationState, error) {
	actor, err := s.sessions.Get(ctx)
	if err != nil {
		return VerificationState{}, fmt.Errorf("verification_service: open: %w", err)
	}
	if !target.Valid() {
		return VerificationState{}, fmt.Errorf("verification_service: open tier %d: %w", target, domain.ErrInvalidInput)
	}
	if target <= actor.Tier {
		return VerificationState{}, fmt.Errorf("verification_service: open tier %d from tier %d: %w",
			target, actor.Tier, domain.ErrTierNotUpgradable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseCamera(ctx)
	s.state = VerificationState{Open: true, TargetTier: target}
	stream, err := s.device.Acquire(ctx)
	if err != nil {
		s.state.Notice = cameraRequiredNotice
		s.logger.InfoContext(ctx, "verification_service: camera unavailable",
			slog.String("error", err.Error()),
		)
		return s.state, nil
	}
	s.stream = stream
	s.state.CameraActive = true
	return s.state, nil
}

// Scan starts the progress counter.
func (s *VerificationService) Scan(ctx context.Context) (VerificationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Open || s.state.Scanning {
		return s.state, fmt.Errorf("verification_service: scan: %w", domain.ErrInvalidTransition)
	}
	s.state.Scanning = true
	s.state.Progress = 0
	s.scanStart = s.clock.Now()
	s.logger.DebugContext(ctx, "verification_service: scan started",
		slog.Int("target_tier", int(s.state.TargetTier)),
	)
	return s.state, nil
}

// State returns the overlay after applying any due progress.
func (s *VerificationService) State(ctx context.Context) VerificationState {
	s.Tick(ctx, s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel closes the overlay and stops a running scan.
func (s *VerificationService) Cancel(ctx context.Context) VerificationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseCamera(ctx)
	s.state = VerificationState{CompletedTier: s.state.CompletedTier}
	return s.state
}

// Tick advances a running scan to now. Reaching 100 applies the tier.
func (s *VerificationService) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Scanning {
		return
	}
	steps := int(now.Sub(s.scanStart) / s.timings.Step)
	s.state.Progress = min(100, steps*s.timings.Increment)
	if s.state.Progress < 100 {
		return
	}
	if err := s.applyTier(ctx, now); err != nil {
		s.logger.ErrorContext(ctx, "verification_service: apply tier failed",
			slog.String("error", err.Error()),
		)
	}
}

// applyTier raises the actor's tier and ceiling to the target pair without
// ever lowering either.
func (s *VerificationService) applyTier(ctx context.Context, now time.Time) error {
	target := s.state.TargetTier
	actor, err := s.sessions.Update(ctx, func(a *domain.Actor) error {
		if target > a.Tier {
			a.Tier = target
		}
		if ceiling := target.Ceiling(); ceiling.GreaterThan(a.SpendingCeiling) {
			a.SpendingCeiling = ceiling
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.releaseCamera(ctx)
	s.state = VerificationState{Progress: 100, CompletedTier: actor.Tier}

	metrics.TierUpgrades.WithLabelValues(strconv.Itoa(int(actor.Tier))).Inc()
	s.events.Publish(ctx, domain.EventSessionTier, now, actor)
	s.logger.InfoContext(ctx, "verification_service: tier upgraded",
		slog.String("actor_id", actor.ID),
		slog.Int("tier", int(actor.Tier)),
		slog.String("ceiling", actor.SpendingCeiling.String()),
	)
	return nil
}

func (s *VerificationService) releaseCamera(ctx context.Context) {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.logger.WarnContext(ctx, "verification_service: release camera failed",
			slog.String("error", err.Error()),
		)
	}
	s.stream = nil
	s.state.CameraActive = false
}
