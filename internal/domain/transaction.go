package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects the payment path of a checkout.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentCrypto PaymentMethod = "crypto"
)

// TransactionStatus tracks completion of a purchase record.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
)

// EscrowStatus is a decorative label; no funds are ever held.
type EscrowStatus string

const (
	EscrowNone     EscrowStatus = "none"
	EscrowLocked   EscrowStatus = "locked"
	EscrowPaid     EscrowStatus = "paid"
	EscrowVerified EscrowStatus = "verified"
	EscrowReleased EscrowStatus = "released"
)

// FeeRate is the platform fee charged on top of the listing price.
var FeeRate = decimal.RequireFromString("0.025")

// Fee returns the platform fee for price, rounded to cents.
func Fee(price decimal.Decimal) decimal.Decimal {
	return price.Mul(FeeRate).Round(2)
}

// Transaction is an immutable purchase record in the ledger.
type Transaction struct {
	ID           string            `json:"id"`
	ListingID    string            `json:"listing_id"`
	ListingTitle string            `json:"listing_title"`
	Amount       decimal.Decimal   `json:"amount"`
	Fee          decimal.Decimal   `json:"fee"`
	CreatedAt    time.Time         `json:"created_at"`
	Status       TransactionStatus `json:"status"`
	Method       PaymentMethod     `json:"method"`
	CryptoSymbol string            `json:"crypto_symbol,omitempty"`
	TxHash       string            `json:"tx_hash,omitempty"`
	P2P          bool              `json:"p2p"`
	EscrowStatus EscrowStatus      `json:"escrow_status"`
}

// Total is the amount paid including the fee.
func (t Transaction) Total() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

// Validate rejects records the ledger must never hold: an empty ID or a
// status outside the known sets.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: transaction id is empty", ErrInvalidInput)
	}
	switch t.Status {
	case TransactionPending, TransactionCompleted:
	default:
		return fmt.Errorf("%w: transaction status %q", ErrInvalidInput, t.Status)
	}
	switch t.EscrowStatus {
	case EscrowNone, EscrowLocked, EscrowPaid, EscrowVerified, EscrowReleased:
	default:
		return fmt.Errorf("%w: escrow status %q", ErrInvalidInput, t.EscrowStatus)
	}
	return nil
}
