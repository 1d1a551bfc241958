package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/rewardzone/rewardzone/internal/rewardzone/middleware"
)

type withdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
}

// RequestWithdrawal places a withdrawal request and holds the amount
func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	id, err := h.Svc.RequestWithdrawal(r.Context(), p.UserID, req.Amount, req.Method, req.AccountNumber, req.AccountName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"withdrawal_id": id,
		"status":        "pending",
	})
}

// GetWithdrawals lists the caller's withdrawal requests
func (h *Handler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	withdrawals, err := h.Svc.Withdrawals(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(withdrawals) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, withdrawals)
}

// GetPendingWithdrawals lists all pending withdrawal requests for review
func (h *Handler) GetPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.Svc.PendingWithdrawals(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(withdrawals) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, withdrawals)
}

// ApproveWithdrawal marks a pending withdrawal as paid out
func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	withdrawalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid withdrawal id", http.StatusBadRequest)
		return
	}

	if err := h.Svc.ApproveWithdrawal(r.Context(), withdrawalID, p.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// RejectWithdrawal declines a pending withdrawal and refunds the hold
func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	withdrawalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid withdrawal id", http.StatusBadRequest)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := h.Svc.RejectWithdrawal(r.Context(), withdrawalID, p.UserID, req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
