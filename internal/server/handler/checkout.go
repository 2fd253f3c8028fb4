package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// CheckoutService defines the purchase sequence operations.
type CheckoutService interface {
	Start(ctx context.Context, listingID string) (domain.Checkout, error)
	Get(ctx context.Context, id string) (domain.Checkout, error)
	Proceed(ctx context.Context, id string) (domain.Checkout, error)
	Pay(ctx context.Context, id string) (domain.Checkout, error)
	SelectMethod(ctx context.Context, id string, method domain.PaymentMethod) (domain.Checkout, error)
	SelectToken(ctx context.Context, id, symbol string) (domain.Checkout, error)
	Confirm(ctx context.Context, id string) (domain.Checkout, error)
	Commit(ctx context.Context, id string) (domain.Checkout, error)
	Close(ctx context.Context, id string) error
}

// CheckoutHandler serves the checkout sequence.
type CheckoutHandler struct {
	checkouts CheckoutService
	logger    *slog.Logger
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(checkouts CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkouts: checkouts, logger: logger}
}

// StartCheckout opens a checkout in review.
// POST /api/checkouts {"listing_id":"1"}
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListingID string `json:"listing_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ListingID == "" {
		writeError(w, http.StatusBadRequest, "listing_id is required")
		return
	}
	c, err := h.checkouts.Start(r.Context(), req.ListingID)
	if err != nil {
		writeServiceError(w, r, h.logger, "start checkout", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetCheckout returns the checkout with due phases applied.
// GET /api/checkouts/{id}
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "get checkout")(h.checkouts.Get(r.Context(), pathParam(r, "id")))
}

// Proceed leaves review.
// POST /api/checkouts/{id}/proceed
func (h *CheckoutHandler) Proceed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "proceed")(h.checkouts.Proceed(r.Context(), pathParam(r, "id")))
}

// Pay moves a paying escrow to method selection.
// POST /api/checkouts/{id}/pay
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "pay")(h.checkouts.Pay(r.Context(), pathParam(r, "id")))
}

// SelectMethod chooses card or crypto.
// POST /api/checkouts/{id}/method {"method":"card"}
func (h *CheckoutHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method domain.PaymentMethod `json:"method"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, "select method")(h.checkouts.SelectMethod(r.Context(), pathParam(r, "id"), req.Method))
}

// SelectToken chooses the crypto token.
// POST /api/checkouts/{id}/token {"symbol":"BTC"}
func (h *CheckoutHandler) SelectToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, "select token")(h.checkouts.SelectToken(r.Context(), pathParam(r, "id"), req.Symbol))
}

// Confirm starts a card payment.
// POST /api/checkouts/{id}/confirm
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "confirm")(h.checkouts.Confirm(r.Context(), pathParam(r, "id")))
}

// Commit starts a crypto payment.
// POST /api/checkouts/{id}/commit
func (h *CheckoutHandler) Commit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "commit")(h.checkouts.Commit(r.Context(), pathParam(r, "id")))
}

// CloseCheckout returns to the catalog.
// POST /api/checkouts/{id}/close
func (h *CheckoutHandler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.checkouts.Close(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "close checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "closed",
		"checkout_id": id,
	})
}

// respond writes the checkout, or the error together with the checkout so a
// spending-limit notice reaches the client.
func (h *CheckoutHandler) respond(w http.ResponseWriter, r *http.Request, op string) func(domain.Checkout, error) {
	return func(c domain.Checkout, err error) {
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError || c.ID == "" {
				writeServiceError(w, r, h.logger, op, err)
				return
			}
			writeJSON(w, status, map[string]any{"error": err.Error(), "checkout": c})
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}
