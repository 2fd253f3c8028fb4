package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// DashboardSummary aggregates the ledger and the actor's listings.
type DashboardSummary struct {
	TransactionCount int             `json:"transaction_count"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	TotalFees        decimal.Decimal `json:"total_fees"`
	ListingCount     int             `json:"listing_count"`
}

// Dashboard is the read-only account overview.
type Dashboard struct {
	Actor           domain.Actor               `json:"actor"`
	Listings        []domain.Listing           `json:"listings"`
	Transactions    []domain.Transaction       `json:"transactions"`
	Balances        map[string]decimal.Decimal `json:"balances"`
	Summary         DashboardSummary           `json:"summary"`
	BillingLinkable bool                       `json:"billing_linkable"`
}

// DashboardService builds account overviews.
type DashboardService struct {
	listings domain.ListingStore
	ledger   domain.LedgerStore
	sessions domain.SessionStore
	logger   *slog.Logger
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(
	listings domain.ListingStore,
	ledger domain.LedgerStore,
	sessions domain.SessionStore,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		listings: listings,
		ledger:   ledger,
		sessions: sessions,
		logger:   logger,
	}
}

// Overview returns the actor's listings, the ledger and the wallet balances.
func (s *DashboardService) Overview(ctx context.Context) (Dashboard, error) {
	actor, err := s.sessions.Get(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard_service: overview: %w", err)
	}
	all, err := s.listings.List(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard_service: list listings: %w", err)
	}
	txs, err := s.Transactions(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	own := make([]domain.Listing, 0)
	for _, l := range all {
		if l.Seller == actor.Name {
			own = append(own, l)
		}
	}

	summary := DashboardSummary{
		TransactionCount: len(txs),
		TotalSpent:       decimal.Zero,
		TotalFees:        decimal.Zero,
		ListingCount:     len(own),
	}
	for _, tx := range txs {
		summary.TotalSpent = summary.TotalSpent.Add(tx.Total())
		summary.TotalFees = summary.TotalFees.Add(tx.Fee)
	}

	return Dashboard{
		Actor:           actor,
		Listings:        own,
		Transactions:    txs,
		Balances:        actor.Balances,
		Summary:         summary,
		BillingLinkable: actor.IsOwner(),
	}, nil
}

// Transactions returns the ledger, newest first.
func (s *DashboardService) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard_service: list transactions: %w", err)
	}
	return txs, nil
}
