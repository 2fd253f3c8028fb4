package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/clock"
	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/labels"
)

// ListingDraft is the sell form input. In crypto mode (category "Crypto
// Assets") Title and Image are derived from the token amount.
type ListingDraft struct {
	Title        string
	Price        decimal.Decimal
	Category     string
	Description  string
	Image        string
	CryptoSymbol string
	CryptoAmount decimal.Decimal
}

// CatalogService serves the listing catalog and the sell form.
type CatalogService struct {
	listings domain.ListingStore
	sessions domain.SessionStore
	labels   *labels.Source
	clock    clock.Clock
	events   *EventPublisher
	logger   *slog.Logger
}

// NewCatalogService creates a CatalogService with all required dependencies.
func NewCatalogService(
	listings domain.ListingStore,
	sessions domain.SessionStore,
	src *labels.Source,
	clk clock.Clock,
	events *EventPublisher,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		listings: listings,
		sessions: sessions,
		labels:   src,
		clock:    clk,
		events:   events,
		logger:   logger,
	}
}

// Filter returns the listings matching every predicate of f, in catalog
// order.
func (s *CatalogService) Filter(ctx context.Context, f domain.ListingFilter) ([]domain.Listing, error) {
	all, err := s.listings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: list: %w", err)
	}
	out := make([]domain.Listing, 0, len(all))
	for _, l := range all {
		if f.Matches(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// Get returns a single listing.
func (s *CatalogService) Get(ctx context.Context, id string) (domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("catalog_service: get %s: %w", id, err)
	}
	return l, nil
}

// Categories returns "All" followed by each distinct category in catalog
// order.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	all, err := s.listings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog_service: list: %w", err)
	}
	seen := map[string]bool{domain.CategoryAll: true}
	out := []string{domain.CategoryAll}
	for _, l := range all {
		if !seen[l.Category] {
			seen[l.Category] = true
			out = append(out, l.Category)
		}
	}
	return out, nil
}

// Add prepends a complete listing to the catalog. Missing ID and creation
// time are filled in.
func (s *CatalogService) Add(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	if l.ID == "" {
		l.ID = s.labels.ID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.clock.Now()
	}
	if err := s.listings.Prepend(ctx, l); err != nil {
		return domain.Listing{}, fmt.Errorf("catalog_service: add: %w", err)
	}
	s.events.Publish(ctx, domain.EventListingCreated, l.CreatedAt, l)
	s.logger.InfoContext(ctx, "catalog_service: listing added",
		slog.String("listing_id", l.ID),
		slog.String("category", l.Category),
	)
	return l, nil
}

// CreateListing validates a sell form draft and publishes it under the
// session actor's name.
func (s *CatalogService) CreateListing(ctx context.Context, d ListingDraft) (domain.Listing, error) {
	actor, err := s.sessions.Get(ctx)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("catalog_service: create listing: %w", err)
	}

	l, err := s.buildListing(d)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("catalog_service: create listing: %w", err)
	}
	l.Seller = actor.Name
	l.SellerAvatar = actor.Avatar
	l.SellerVerified = actor.Verified
	return s.Add(ctx, l)
}

func (s *CatalogService) buildListing(d ListingDraft) (domain.Listing, error) {
	var problems []string
	if !isKnownCategory(d.Category) {
		problems = append(problems, fmt.Sprintf("unknown category %q", d.Category))
	}
	if !d.Price.IsPositive() {
		problems = append(problems, "price must be positive")
	}

	l := domain.Listing{
		Price:       d.Price,
		Category:    d.Category,
		Description: strings.TrimSpace(d.Description),
		Rating:      5.0,
	}

	if d.Category == domain.CategoryCryptoAssets {
		symbol := d.CryptoSymbol
		if symbol == "" {
			symbol = domain.SymbolETH
		}
		if !domain.IsCryptoSymbol(symbol) {
			problems = append(problems, fmt.Sprintf("unsupported symbol %q", symbol))
		}
		if !d.CryptoAmount.IsPositive() {
			problems = append(problems, "crypto amount must be positive")
		}
		l.Title = d.CryptoAmount.String() + " " + symbol + " P2P"
		l.Image = cryptoListingImage
		l.Crypto = &domain.CryptoAsset{Amount: d.CryptoAmount, Symbol: symbol}
	} else {
		l.Title = strings.TrimSpace(d.Title)
		if l.Title == "" {
			problems = append(problems, "title is required")
		}
		l.Image = d.Image
	}

	if len(problems) > 0 {
		return domain.Listing{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	if l.Image == "" {
		l.ID = s.labels.ID()
		l.Image = "https://picsum.photos/seed/" + l.ID + "/400/300"
	}
	return l, nil
}

func isKnownCategory(c string) bool {
	for _, known := range domain.ListingCategories {
		if c == known {
			return true
		}
	}
	return false
}
