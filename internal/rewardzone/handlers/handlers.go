package handlers

import (
	"errors"
	"log"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/rewardzone/rewardzone/internal/rewardzone/service"
)

// Handler handles all HTTP requests
type Handler struct {
	Store     repository.Store
	Svc       *service.Service
	JWTSecret string
}

// NewHandler creates a new handler
func NewHandler(store repository.Store, svc *service.Service, jwtSecret string) *Handler {
	return &Handler{
		Store:     store,
		Svc:       svc,
		JWTSecret: jwtSecret,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode failed: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindEligibility, service.KindConflict:
		status = http.StatusConflict
	case service.KindInsufficientBalance:
		status = http.StatusPaymentRequired
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindPersistence:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, errorResponse{Error: svcErr.Message})
}
