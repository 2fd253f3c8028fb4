package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAll is the pseudo-category that disables category filtering.
const CategoryAll = "All"

// CategoryCryptoAssets marks listings traded peer-to-peer through escrow.
const CategoryCryptoAssets = "Crypto Assets"

// ListingCategories is the fixed category menu offered by the sell form.
var ListingCategories = []string{
	"Electronics",
	"Furniture",
	"Clothing",
	"Home Decor",
	CategoryCryptoAssets,
	"Services",
}

// CryptoAsset describes the token amount sold by a crypto listing.
type CryptoAsset struct {
	Amount decimal.Decimal `json:"amount"`
	Symbol string          `json:"symbol"` // "BTC", "ETH", "USDT"
}

// Listing is a product offered in the catalog.
type Listing struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Price          decimal.Decimal `json:"price"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Image          string          `json:"image"`
	Seller         string          `json:"seller"`
	SellerAvatar   string          `json:"seller_avatar,omitempty"`
	Rating         float64         `json:"rating"`
	SellerVerified bool            `json:"seller_verified"`
	Crypto         *CryptoAsset    `json:"crypto,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsP2P reports whether the listing goes through the escrow flow.
func (l Listing) IsP2P() bool {
	return l.Crypto != nil || l.Category == CategoryCryptoAssets
}

// ListingFilter holds the conjunctive catalog predicates. Zero values disable
// a predicate.
type ListingFilter struct {
	Query     string
	Category  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating float64
}

// Matches reports whether l satisfies every predicate of f.
func (f ListingFilter) Matches(l Listing) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(l.Title), q) &&
			!strings.Contains(strings.ToLower(l.Description), q) {
			return false
		}
	}
	if f.Category != "" && f.Category != CategoryAll && l.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && l.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && l.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return l.Rating >= f.MinRating
}
