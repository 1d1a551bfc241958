package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rewardzone/rewardzone/internal/rewardzone/middleware"
)

// GetMissions lists the active mission catalog with the caller's progress
func (h *Handler) GetMissions(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	missions, err := h.Svc.Missions(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(missions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, missions)
}

// CompleteMission attempts to complete a mission for the caller
func (h *Handler) CompleteMission(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	missionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid mission id", http.StatusBadRequest)
		return
	}

	reward, err := h.Svc.CompleteMission(r.Context(), p.UserID, missionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reward)
}

// GetSpinStatus reports spin eligibility for the caller
func (h *Handler) GetSpinStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := h.Svc.CanSpin(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Spin draws a spin wheel reward for the caller
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	outcome, err := h.Svc.Spin(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// GetSpinHistory returns recent spins and aggregate stats for the caller
func (h *Handler) GetSpinHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	history, stats, err := h.Svc.SpinHistory(r.Context(), p.UserID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"stats":   stats,
	})
}
