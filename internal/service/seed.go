package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// cryptoListingImage is the stock picture used for crypto listings.
const cryptoListingImage = "https://images.unsplash.com/photo-1518546305927-5a555bb7020d?auto=format&fit=crop&q=80&w=400"

// SeedListings returns the catalog every session starts with.
func SeedListings(now time.Time) []domain.Listing {
	return []domain.Listing{
		{
			ID:             "1",
			Title:          "Vintage Film Camera",
			Price:          decimal.NewFromInt(120),
			Category:       "Electronics",
			Description:    "A classic 35mm film camera in pristine condition. Perfect for enthusiasts.",
			Image:          "https://images.unsplash.com/photo-1516035069371-29a1b244cc32?auto=format&fit=crop&q=80&w=400",
			Seller:         "Alex Rivera",
			Rating:         4.8,
			SellerVerified: true,
			CreatedAt:      now,
		},
		{
			ID:             "crypto-1",
			Title:          "0.05 BTC Asset Bundle",
			Price:          decimal.NewFromInt(3200),
			Category:       domain.CategoryCryptoAssets,
			Description:    "Selling 0.05 BTC directly via P2P. Funds held in secure escrow. Instant release upon payment confirmation.",
			Image:          cryptoListingImage,
			Seller:         "CryptoWhale_99",
			Rating:         5.0,
			SellerVerified: true,
			Crypto: &domain.CryptoAsset{
				Amount: decimal.RequireFromString("0.05"),
				Symbol: domain.SymbolBTC,
			},
			CreatedAt: now,
		},
		{
			ID:             "2",
			Title:          "Artisan Ceramic Vase",
			Price:          decimal.NewFromInt(45),
			Category:       "Home Decor",
			Description:    "Hand-thrown stoneware vase with a unique cobalt glaze.",
			Image:          "https://images.unsplash.com/photo-1578749556568-bc2c40e68b61?auto=format&fit=crop&q=80&w=400",
			Seller:         "Elena Potter",
			Rating:         4.9,
			SellerVerified: true,
			CreatedAt:      now,
		},
	}
}

// SeedConversations returns the demo thread about the film camera.
func SeedConversations(now time.Time) []domain.Conversation {
	return []domain.Conversation{
		{
			ID:                "chat-1",
			CounterpartName:   "Alex Rivera",
			CounterpartAvatar: "https://i.pravatar.cc/150?u=alex",
			LastMessage:       "Is the camera still available?",
			ListingID:         "1",
			Messages: []domain.Message{
				{ID: "m1", Sender: domain.SenderCounterpart, Text: "Hi! Yes, it is.", SentAt: now},
				{ID: "m2", Sender: domain.SenderBuyer, Text: "Is the camera still available?", SentAt: now},
			},
		},
	}
}
