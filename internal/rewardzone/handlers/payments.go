package handlers

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/rewardzone/rewardzone/internal/rewardzone/middleware"
)

// InitiateDeposit creates a pending deposit and returns its reference
func (h *Handler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	reference, err := h.Svc.InitiateDeposit(r.Context(), p.UserID, req.Amount, req.Method)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"reference": reference,
		"status":    "pending",
	})
}

// PaymentCallback handles the payment provider confirmation. The provider
// retries on timeout, so duplicate confirmations must succeed without
// crediting twice.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64           `json:"user_id"`
		Amount    decimal.Decimal `json:"amount"`
		Reference string          `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if req.Reference == "" {
		http.Error(w, "Reference is required", http.StatusBadRequest)
		return
	}

	if err := h.Svc.ProcessSuccessfulPayment(r.Context(), req.UserID, req.Amount, req.Reference); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
