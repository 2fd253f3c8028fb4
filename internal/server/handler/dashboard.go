package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/service"
)

// DashboardService builds the account overview.
type DashboardService interface {
	Overview(ctx context.Context) (service.Dashboard, error)
	Transactions(ctx context.Context) ([]domain.Transaction, error)
}

// VerificationService drives the tier upgrade overlay.
type VerificationService interface {
	Open(ctx context.Context, target domain.Tier) (service.VerificationState, error)
	Scan(ctx context.Context) (service.VerificationState, error)
	State(ctx context.Context) service.VerificationState
	Cancel(ctx context.Context) service.VerificationState
}

// DashboardHandler serves the dashboard and tier verification.
type DashboardHandler struct {
	dashboard    DashboardService
	verification VerificationService
	logger       *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(dashboard DashboardService, verification VerificationService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, verification: verification, logger: logger}
}

// GetDashboard returns the account overview.
// GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Overview(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListTransactions returns the ledger, newest first.
// GET /api/transactions
func (h *DashboardHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.dashboard.Transactions(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list transactions", err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// GetVerification returns the overlay state.
// GET /api/verification
func (h *DashboardHandler) GetVerification(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.verification.State(r.Context()))
}

// OpenVerification opens the overlay for a target tier.
// POST /api/verification {"tier":2}
func (h *DashboardHandler) OpenVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier domain.Tier `json:"tier"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := h.verification.Open(r.Context(), req.Tier)
	if err != nil {
		writeServiceError(w, r, h.logger, "open verification", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Scan starts the progress counter.
// POST /api/verification/scan
func (h *DashboardHandler) Scan(w http.ResponseWriter, r *http.Request) {
	st, err := h.verification.Scan(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "scan", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CancelVerification closes the overlay.
// DELETE /api/verification
func (h *DashboardHandler) CancelVerification(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.verification.Cancel(r.Context()))
}
