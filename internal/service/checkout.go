package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/clock"
	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/labels"
	"github.com/alanyoungcy/marketlinks/internal/metrics"
)

// CheckoutTimings holds the simulated delays of the purchase sequence.
type CheckoutTimings struct {
	EscrowLock     time.Duration
	CardConfirm    time.Duration
	CryptoValidate time.Duration
	CryptoRelease  time.Duration
}

// maxIDAttempts bounds transaction ID regeneration on ledger collisions.
const maxIDAttempts = 8

type checkoutRun struct {
	domain.Checkout
	listing domain.Listing
}

type queuedEvent struct {
	typ  string
	at   time.Time
	data any
}

// CheckoutService sequences purchases from review to success. Timed phases
// carry a deadline and only move when Tick observes it has passed, so tests
// drive the sequence with a manual clock.
type CheckoutService struct {
	listings domain.ListingStore
	sessions domain.SessionStore
	ledger   domain.LedgerStore
	labels   *labels.Source
	clock    clock.Clock
	events   *EventPublisher
	timings  CheckoutTimings
	logger   *slog.Logger

	mu        sync.Mutex
	checkouts map[string]*checkoutRun
	outbox    []queuedEvent

	// pubMu is taken before mu is released so queued events reach the bus
	// in the order they were raised.
	pubMu sync.Mutex
}

// NewCheckoutService creates a CheckoutService with all required dependencies.
func NewCheckoutService(
	listings domain.ListingStore,
	sessions domain.SessionStore,
	ledger domain.LedgerStore,
	src *labels.Source,
	clk clock.Clock,
	events *EventPublisher,
	timings CheckoutTimings,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		listings:  listings,
		sessions:  sessions,
		ledger:    ledger,
		labels:    src,
		clock:     clk,
		events:    events,
		timings:   timings,
		logger:    logger,
		checkouts: make(map[string]*checkoutRun),
	}
}

// Start opens a checkout for a listing in the review state.
func (s *CheckoutService) Start(ctx context.Context, listingID string) (domain.Checkout, error) {
	if _, err := s.sessions.Get(ctx); err != nil {
		return domain.Checkout{}, fmt.Errorf("checkout_service: start: %w", err)
	}
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return domain.Checkout{}, fmt.Errorf("checkout_service: start %s: %w", listingID, err)
	}

	fee := domain.Fee(l.Price)
	run := &checkoutRun{
		Checkout: domain.Checkout{
			ID:           s.labels.ID(),
			ListingID:    l.ID,
			ListingTitle: l.Title,
			Price:        l.Price,
			Fee:          fee,
			Total:        l.Price.Add(fee),
			P2P:          l.IsP2P(),
			State:        domain.CheckoutReview,
			Phases:       []domain.EscrowPhase{},
			StartedAt:    s.clock.Now(),
		},
		listing: l,
	}

	s.mu.Lock()
	s.checkouts[run.ID] = run
	s.mu.Unlock()

	metrics.CheckoutsStarted.WithLabelValues(strconv.FormatBool(run.P2P)).Inc()
	s.logger.InfoContext(ctx, "checkout_service: checkout started",
		slog.String("checkout_id", run.ID),
		slog.String("listing_id", l.ID),
		slog.Bool("p2p", run.P2P),
	)
	return snapshot(run), nil
}

// Get returns the checkout after applying every transition that is due.
func (s *CheckoutService) Get(ctx context.Context, id string) (domain.Checkout, error) {
	s.Tick(ctx, s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.checkouts[id]
	if !ok {
		return domain.Checkout{}, fmt.Errorf("checkout_service: get %s: %w", id, domain.ErrNotFound)
	}
	return snapshot(run), nil
}

// Proceed leaves review. P2P listings enter escrow, others go straight to
// method selection. A price above the actor's ceiling keeps the checkout in
// review with a blocking notice.
func (s *CheckoutService) Proceed(ctx context.Context, id string) (domain.Checkout, error) {
	return s.step(ctx, id, "proceed", func(run *checkoutRun, now time.Time) error {
		if run.State != domain.CheckoutReview {
			return transitionErr(run, "proceed")
		}
		if err := s.checkCeiling(ctx, run); err != nil {
			return err
		}
		run.Notice = ""
		if run.P2P {
			run.State = domain.CheckoutEscrow
			s.enterPhase(run, domain.EscrowPhaseLocking, now)
			run.Deadline = now.Add(s.timings.EscrowLock)
			return nil
		}
		run.State = domain.CheckoutMethodSelect
		return nil
	})
}

// Pay is the manual action offered once escrow reaches the paying phase.
func (s *CheckoutService) Pay(ctx context.Context, id string) (domain.Checkout, error) {
	return s.step(ctx, id, "pay", func(run *checkoutRun, _ time.Time) error {
		if run.State != domain.CheckoutEscrow || run.Phase != domain.EscrowPhasePaying {
			return transitionErr(run, "pay")
		}
		run.State = domain.CheckoutMethodSelect
		return nil
	})
}

// SelectMethod enters the card or crypto payment state. The ceiling is
// checked again; a rejection aborts back to review.
func (s *CheckoutService) SelectMethod(ctx context.Context, id string, method domain.PaymentMethod) (domain.Checkout, error) {
	return s.step(ctx, id, "select method", func(run *checkoutRun, _ time.Time) error {
		if run.State != domain.CheckoutMethodSelect {
			return transitionErr(run, "select method")
		}
		if method != domain.PaymentCard && method != domain.PaymentCrypto {
			return fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, method)
		}
		if err := s.checkCeiling(ctx, run); err != nil {
			abort(run, run.Notice)
			return err
		}
		run.Method = method
		if method == domain.PaymentCard {
			run.State = domain.CheckoutCardPayment
			return nil
		}
		run.State = domain.CheckoutCryptoPayment
		run.Token = domain.SymbolETH
		return nil
	})
}

// SelectToken picks the token used by a crypto payment.
func (s *CheckoutService) SelectToken(ctx context.Context, id, symbol string) (domain.Checkout, error) {
	return s.step(ctx, id, "select token", func(run *checkoutRun, _ time.Time) error {
		if run.State != domain.CheckoutCryptoPayment || run.Processing {
			return transitionErr(run, "select token")
		}
		if !domain.IsCryptoSymbol(symbol) {
			return fmt.Errorf("%w: unsupported token %q", domain.ErrInvalidInput, symbol)
		}
		run.Token = symbol
		return nil
	})
}

// Confirm starts the card payment. The transaction is recorded when the
// confirmation delay has elapsed.
func (s *CheckoutService) Confirm(ctx context.Context, id string) (domain.Checkout, error) {
	return s.step(ctx, id, "confirm", func(run *checkoutRun, now time.Time) error {
		if run.State != domain.CheckoutCardPayment || run.Processing {
			return transitionErr(run, "confirm")
		}
		run.Processing = true
		run.Deadline = now.Add(s.timings.CardConfirm)
		return nil
	})
}

// Commit starts the crypto payment: validating, then releasing, then the
// transaction is recorded.
func (s *CheckoutService) Commit(ctx context.Context, id string) (domain.Checkout, error) {
	return s.step(ctx, id, "commit", func(run *checkoutRun, now time.Time) error {
		if run.State != domain.CheckoutCryptoPayment || run.Processing {
			return transitionErr(run, "commit")
		}
		run.Processing = true
		s.enterPhase(run, domain.EscrowPhaseValidating, now)
		run.Deadline = now.Add(s.timings.CryptoValidate)
		return nil
	})
}

// Close returns to the catalog. Only a checkout waiting in review or one that
// succeeded can be closed; running sequences always complete.
func (s *CheckoutService) Close(ctx context.Context, id string) error {
	s.Tick(ctx, s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.checkouts[id]
	if !ok {
		return fmt.Errorf("checkout_service: close %s: %w", id, domain.ErrNotFound)
	}
	if run.State != domain.CheckoutReview && !run.Done() {
		return fmt.Errorf("checkout_service: close %s: %w", id, transitionErr(run, "close"))
	}
	delete(s.checkouts, id)
	return nil
}

// Tick applies every timed transition due at now. Long gaps are caught up in
// one call, preserving phase order.
func (s *CheckoutService) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.flush(ctx)

	for _, run := range s.checkouts {
		if run.Done() {
			continue
		}
		for !run.Deadline.IsZero() && !now.Before(run.Deadline) {
			if err := s.advance(ctx, run); err != nil {
				s.logger.ErrorContext(ctx, "checkout_service: advance failed",
					slog.String("checkout_id", run.ID),
					slog.String("error", err.Error()),
				)
				break
			}
		}
	}
}

// advance moves run past its current deadline.
func (s *CheckoutService) advance(ctx context.Context, run *checkoutRun) error {
	due := run.Deadline
	switch {
	case run.State == domain.CheckoutEscrow && run.Phase == domain.EscrowPhaseLocking:
		s.enterPhase(run, domain.EscrowPhasePaying, due)
		run.Deadline = time.Time{}
	case run.State == domain.CheckoutCryptoPayment && run.Phase == domain.EscrowPhaseValidating:
		s.enterPhase(run, domain.EscrowPhaseReleasing, due)
		run.Deadline = due.Add(s.timings.CryptoRelease)
	case run.State == domain.CheckoutCryptoPayment && run.Phase == domain.EscrowPhaseReleasing,
		run.State == domain.CheckoutCardPayment:
		return s.complete(ctx, run, due)
	default:
		run.Deadline = time.Time{}
	}
	return nil
}

// complete records the transaction and moves run to success. It is the only
// place the ledger is appended to.
func (s *CheckoutService) complete(ctx context.Context, run *checkoutRun, at time.Time) error {
	id, err := s.uniqueTransactionID(ctx, run.Method)
	if errors.Is(err, domain.ErrAlreadyExists) {
		abort(run, "Your payment could not be recorded. Please start the purchase again.")
		return err
	}
	if err != nil {
		return err
	}
	tx := domain.Transaction{
		ID:           id,
		ListingID:    run.ListingID,
		ListingTitle: run.ListingTitle,
		Amount:       run.Price,
		Fee:          run.Fee,
		CreatedAt:    at,
		Status:       domain.TransactionCompleted,
		Method:       run.Method,
		P2P:          run.P2P,
		EscrowStatus: domain.EscrowNone,
	}
	if run.Method == domain.PaymentCrypto {
		tx.CryptoSymbol = run.Token
		tx.TxHash = s.labels.TxHash()
		tx.EscrowStatus = domain.EscrowReleased
	}
	if err := s.ledger.Append(ctx, tx); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	if c := run.listing.Crypto; c != nil {
		_, err := s.sessions.Update(ctx, func(a *domain.Actor) error {
			if a.Balances == nil {
				a.Balances = map[string]decimal.Decimal{}
			}
			a.Balances[c.Symbol] = a.Balances[c.Symbol].Add(c.Amount)
			return nil
		})
		if err != nil {
			s.logger.WarnContext(ctx, "checkout_service: credit balance failed",
				slog.String("checkout_id", run.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	run.State = domain.CheckoutSuccess
	run.Processing = false
	run.Deadline = time.Time{}
	run.TransactionID = tx.ID

	metrics.CheckoutsCompleted.WithLabelValues(string(tx.Method)).Inc()
	s.queue(domain.EventTransactionCompleted, at, tx)
	s.logger.InfoContext(ctx, "checkout_service: transaction completed",
		slog.String("checkout_id", run.ID),
		slog.String("transaction_id", tx.ID),
		slog.String("method", string(tx.Method)),
		slog.String("amount", tx.Amount.String()),
	)
	return nil
}

func (s *CheckoutService) uniqueTransactionID(ctx context.Context, method domain.PaymentMethod) (string, error) {
	for range maxIDAttempts {
		id := s.labels.TransactionID(method)
		exists, err := s.ledger.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check transaction id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("transaction id: %w after %d attempts", domain.ErrAlreadyExists, maxIDAttempts)
}

func (s *CheckoutService) checkCeiling(ctx context.Context, run *checkoutRun) error {
	actor, err := s.sessions.Get(ctx)
	if err != nil {
		return err
	}
	if run.Price.GreaterThan(actor.SpendingCeiling) {
		run.Notice = fmt.Sprintf("Transaction exceeds your Tier %d limit of $%s. Please upgrade your verification in the Dashboard.",
			actor.Tier, actor.SpendingCeiling.StringFixed(0))
		metrics.CheckoutsRejected.Inc()
		s.logger.InfoContext(ctx, "checkout_service: spending limit exceeded",
			slog.String("checkout_id", run.ID),
			slog.String("price", run.Price.String()),
			slog.String("ceiling", actor.SpendingCeiling.String()),
		)
		return fmt.Errorf("%w: price %s above ceiling %s", domain.ErrSpendingLimit, run.Price, actor.SpendingCeiling)
	}
	return nil
}

func (s *CheckoutService) enterPhase(run *checkoutRun, phase domain.EscrowPhase, at time.Time) {
	run.Phase = phase
	run.Phases = append(run.Phases, phase)
	s.queue(domain.EventCheckoutPhase, at, map[string]string{
		"checkout_id": run.ID,
		"listing_id":  run.ListingID,
		"phase":       string(phase),
	})
}

// queue holds an event until the lock is released. Callers hold s.mu.
func (s *CheckoutService) queue(typ string, at time.Time, data any) {
	s.outbox = append(s.outbox, queuedEvent{typ: typ, at: at, data: data})
}

// flush releases s.mu and publishes the events queued while it was held.
func (s *CheckoutService) flush(ctx context.Context) {
	out := s.outbox
	s.outbox = nil
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	for _, ev := range out {
		s.events.Publish(ctx, ev.typ, ev.at, ev.data)
	}
}

// abort returns run to review with a blocking notice and clears its escrow
// history.
func abort(run *checkoutRun, notice string) {
	run.State = domain.CheckoutReview
	run.Phase = domain.EscrowPhaseNone
	run.Phases = []domain.EscrowPhase{}
	run.Method = ""
	run.Token = ""
	run.Processing = false
	run.Deadline = time.Time{}
	run.Notice = notice
}

// step ticks, runs fn on the checkout under the lock and returns the
// resulting snapshot, also on error so callers can show the notice.
func (s *CheckoutService) step(ctx context.Context, id, op string, fn func(*checkoutRun, time.Time) error) (domain.Checkout, error) {
	now := s.clock.Now()
	s.Tick(ctx, now)

	s.mu.Lock()
	defer s.flush(ctx)
	run, ok := s.checkouts[id]
	if !ok {
		return domain.Checkout{}, fmt.Errorf("checkout_service: %s %s: %w", op, id, domain.ErrNotFound)
	}
	if err := fn(run, now); err != nil {
		return snapshot(run), fmt.Errorf("checkout_service: %s %s: %w", op, id, err)
	}
	return snapshot(run), nil
}

func transitionErr(run *checkoutRun, op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", domain.ErrInvalidTransition, op, run.State)
}

func snapshot(run *checkoutRun) domain.Checkout {
	out := run.Checkout
	out.Phases = make([]domain.EscrowPhase, len(run.Phases))
	copy(out.Phases, run.Phases)
	return out
}
