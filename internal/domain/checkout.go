package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutState is a step of the purchase sequence.
type CheckoutState string

const (
	CheckoutReview        CheckoutState = "review"
	CheckoutEscrow        CheckoutState = "escrow"
	CheckoutMethodSelect  CheckoutState = "method_select"
	CheckoutCardPayment   CheckoutState = "card_payment"
	CheckoutCryptoPayment CheckoutState = "crypto_payment"
	CheckoutSuccess       CheckoutState = "success"
)

// EscrowPhase is the decorative escrow sub-state shown during P2P checkouts.
type EscrowPhase string

const (
	EscrowPhaseNone       EscrowPhase = ""
	EscrowPhaseLocking    EscrowPhase = "locking"
	EscrowPhasePaying     EscrowPhase = "paying"
	EscrowPhaseValidating EscrowPhase = "validating"
	EscrowPhaseReleasing  EscrowPhase = "releasing"
)

// Checkout is a snapshot of one purchase in progress. Deadline is zero when
// the sequence waits for the buyer.
type Checkout struct {
	ID            string          `json:"id"`
	ListingID     string          `json:"listing_id"`
	ListingTitle  string          `json:"listing_title"`
	Price         decimal.Decimal `json:"price"`
	Fee           decimal.Decimal `json:"fee"`
	Total         decimal.Decimal `json:"total"`
	P2P           bool            `json:"p2p"`
	State         CheckoutState   `json:"state"`
	Phase         EscrowPhase     `json:"escrow_phase,omitempty"`
	Phases        []EscrowPhase   `json:"phases"`
	Method        PaymentMethod   `json:"method,omitempty"`
	Token         string          `json:"token,omitempty"`
	Processing    bool            `json:"processing"`
	Notice        string          `json:"notice,omitempty"`
	Deadline      time.Time       `json:"deadline,omitzero"`
	TransactionID string          `json:"transaction_id,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
}

// Done reports whether the checkout reached its terminal state.
func (c Checkout) Done() bool {
	return c.State == CheckoutSuccess
}
