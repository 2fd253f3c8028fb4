package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/service"
)

// CatalogService defines the methods that the listing handler requires from
// the service layer.
type CatalogService interface {
	Filter(ctx context.Context, f domain.ListingFilter) ([]domain.Listing, error)
	Get(ctx context.Context, id string) (domain.Listing, error)
	Categories(ctx context.Context) ([]string, error)
	CreateListing(ctx context.Context, d service.ListingDraft) (domain.Listing, error)
}

// ListingHandler serves the catalog and the sell form.
type ListingHandler struct {
	catalog CatalogService
	logger  *slog.Logger
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(catalog CatalogService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{catalog: catalog, logger: logger}
}

type listListingsResponse struct {
	Listings []domain.Listing `json:"listings"`
	Count    int              `json:"count"`
}

// ListListings filters the catalog.
// GET /api/listings?q=camera&category=Electronics&min_price=10&max_price=200&min_rating=4
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minPrice, err := queryDecimal(r, "min_price")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxPrice, err := queryDecimal(r, "max_price")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minRating, err := queryFloat(r, "min_rating")
	if err != nil {
		writeError(w, http.StatusBadRequest, "min_rating: "+err.Error())
		return
	}

	listings, err := h.catalog.Filter(r.Context(), domain.ListingFilter{
		Query:     q.Get("q"),
		Category:  q.Get("category"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		MinRating: minRating,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "list listings", err)
		return
	}
	if listings == nil {
		listings = []domain.Listing{}
	}
	writeJSON(w, http.StatusOK, listListingsResponse{Listings: listings, Count: len(listings)})
}

// GetListing returns a single listing.
// GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.catalog.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get listing", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ListCategories returns the category menu with "All" first.
// GET /api/categories
func (h *ListingHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": cats,
		"sell_menu":  domain.ListingCategories,
	})
}

type createListingRequest struct {
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Image        string          `json:"image"`
	CryptoSymbol string          `json:"crypto_symbol"`
	CryptoAmount decimal.Decimal `json:"crypto_amount"`
}

// CreateListing publishes a sell form under the session actor.
// POST /api/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := h.catalog.CreateListing(r.Context(), service.ListingDraft{
		Title:        req.Title,
		Price:        req.Price,
		Category:     req.Category,
		Description:  req.Description,
		Image:        req.Image,
		CryptoSymbol: req.CryptoSymbol,
		CryptoAmount: req.CryptoAmount,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "create listing", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}
