package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role distinguishes marketplace owners from regular participants.
type Role string

const (
	RoleStandard Role = "standard"
	RoleOwner    Role = "owner"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleOwner
}

// Tier is the verification level of an actor.
type Tier int

const (
	TierBasic    Tier = 1
	TierDocument Tier = 2
	TierLive     Tier = 3
)

// Ceiling returns the per-transaction spending ceiling granted by the tier.
func (t Tier) Ceiling() decimal.Decimal {
	switch t {
	case TierDocument:
		return decimal.NewFromInt(5_000)
	case TierLive:
		return decimal.NewFromInt(1_000_000)
	default:
		return decimal.NewFromInt(500)
	}
}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	return t >= TierBasic && t <= TierLive
}

// Supported crypto symbols. ETH is the default payment token.
const (
	SymbolBTC  = "BTC"
	SymbolETH  = "ETH"
	SymbolUSDT = "USDT"
)

// CryptoSymbols lists the supported symbols in display order.
var CryptoSymbols = []string{SymbolBTC, SymbolETH, SymbolUSDT}

// IsCryptoSymbol reports whether s is a supported symbol.
func IsCryptoSymbol(s string) bool {
	for _, sym := range CryptoSymbols {
		if sym == s {
			return true
		}
	}
	return false
}

// PlaceholderAvatar is used when no profile image was captured.
const PlaceholderAvatar = "https://i.pravatar.cc/150?u=newuser"

// Actor is the single participant of a session.
type Actor struct {
	ID              string                     `json:"id"`
	Name            string                     `json:"name"`
	Email           string                     `json:"email"`
	Phone           string                     `json:"phone"`
	Country         string                     `json:"country"`
	DateOfBirth     string                     `json:"date_of_birth"`
	IDType          string                     `json:"id_type"`
	IDNumber        string                     `json:"id_number"`
	Avatar          string                     `json:"avatar"`
	Role            Role                       `json:"role"`
	Verified        bool                       `json:"verified"`
	Tier            Tier                       `json:"tier"`
	SpendingCeiling decimal.Decimal            `json:"spending_ceiling"`
	WalletAddress   string                     `json:"wallet_address"`
	Balances        map[string]decimal.Decimal `json:"balances"`
	JoinedAt        time.Time                  `json:"joined_at"`
}

// IsOwner reports whether the actor has the owner role.
func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

// Clone returns a deep copy so callers cannot mutate stored balances.
func (a Actor) Clone() Actor {
	out := a
	out.Balances = make(map[string]decimal.Decimal, len(a.Balances))
	for k, v := range a.Balances {
		out.Balances[k] = v
	}
	return out
}

// Country describes the identity documents accepted for a country of
// residence.
type Country struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	IDTypes        []string `json:"id_types"`
	RegulatoryBody string   `json:"regulatory_body"`
	LegalNotice    string   `json:"legal_notice"`
}

// AcceptsIDType reports whether idType is on the country's menu.
func (c Country) AcceptsIDType(idType string) bool {
	for _, t := range c.IDTypes {
		if t == idType {
			return true
		}
	}
	return false
}
