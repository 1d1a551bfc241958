package handlers

import (
	"errors"
	"log"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rewardzone/rewardzone/internal/rewardzone/middleware"
	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/rewardzone/rewardzone/internal/rewardzone/utils"
	"golang.org/x/crypto/bcrypt"
)

const passwordMinLength = 8

// RegisterUser handles user registration
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		FullName     string `json:"full_name"`
		Phone        string `json:"phone"`
		ReferralCode string `json:"referral_code"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Username, email and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < passwordMinLength {
		http.Error(w, "Password too short", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Resolve the inviter before creating the account
	var referredBy *int64
	if req.ReferralCode != "" {
		referrer, err := h.Store.GetUserByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}
		if referrer == nil {
			http.Error(w, "Unknown referral code", http.StatusBadRequest)
			return
		}
		referredBy = &referrer.ID
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	// The referral code is unique; retry a few times in case the generated
	// code collides.
	var userID int64
	for attempt := 0; attempt < 3; attempt++ {
		code, err := utils.GenerateReferralCode()
		if err != nil {
			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}

		userID, err = h.Store.CreateUser(ctx, &models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hashedPassword),
			FullName:     req.FullName,
			Phone:        req.Phone,
			ReferralCode: code,
			ReferredBy:   referredBy,
		})
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicate) {
			// Username or email taken, unless the code collided.
			if existing, lookupErr := h.Store.GetUserByLogin(ctx, req.Username); lookupErr == nil && existing != nil {
				http.Error(w, "Username or email already exists", http.StatusConflict)
				return
			}
			if existing, lookupErr := h.Store.GetUserByLogin(ctx, req.Email); lookupErr == nil && existing != nil {
				http.Error(w, "Username or email already exists", http.StatusConflict)
				return
			}
			continue
		}
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if userID == 0 {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	token, err := middleware.GenerateToken(userID, false, h.JWTSecret)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	middleware.SetAuthCookie(w, token)
	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"token":   token,
	})
}

// LoginUser handles user login
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user, err := h.Store.GetUserByLogin(ctx, req.Login)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	// Streak update and daily login mission should not block the login.
	if err := h.Svc.RecordLogin(ctx, user.ID); err != nil {
		log.Printf("record login for user %d: %v", user.ID, err)
	}

	token, err := middleware.GenerateToken(user.ID, user.IsAdmin, h.JWTSecret)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	middleware.SetAuthCookie(w, token)
	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": user.ID,
		"token":   token,
	})
}

// GetStats returns the caller's wallet and progression snapshot
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Svc.UserStats(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetNotifications returns the caller's recent notifications
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	notifications, err := h.Svc.Notifications(r.Context(), p.UserID, 20)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(notifications) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// GetTransactions returns the caller's journal rows
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	txns, err := h.Svc.Transactions(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(txns) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}
