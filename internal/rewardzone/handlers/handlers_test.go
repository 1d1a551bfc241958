package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rewardzone/rewardzone/internal/rewardzone/middleware"
	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/rewardzone/rewardzone/internal/rewardzone/service"
)

const testSecret = "test-secret"

type testEnv struct {
	store  *repository.MemoryStore
	svc    *service.Service
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	svc := service.NewService(store, service.Config{
		MinWithdrawal:             decimal.NewFromInt(670),
		SpinCooldownHours:         24,
		PackPrice:                 decimal.NewFromInt(350),
		OwnerCommission:           decimal.NewFromInt(200),
		ActiveInviterCommission:   decimal.NewFromInt(150),
		InactiveInviterCommission: decimal.NewFromInt(30),
	}, &service.StoreNotifier{Store: store})
	h := NewHandler(store, svc, testSecret)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.RegisterUser)
		r.Post("/user/login", h.LoginUser)
		r.Post("/payments/callback", h.PaymentCallback)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(&middleware.JWTConfig{SecretKey: testSecret, Store: store}))

			r.Get("/user/stats", h.GetStats)
			r.Get("/user/notifications", h.GetNotifications)
			r.Get("/user/transactions", h.GetTransactions)
			r.Get("/missions", h.GetMissions)
			r.Post("/missions/{id}/complete", h.CompleteMission)
			r.Get("/spin", h.GetSpinStatus)
			r.Post("/spin", h.Spin)
			r.Get("/spin/history", h.GetSpinHistory)
			r.Post("/withdrawals", h.RequestWithdrawal)
			r.Get("/withdrawals", h.GetWithdrawals)
			r.Post("/payments/deposit", h.InitiateDeposit)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/admin/withdrawals", h.GetPendingWithdrawals)
				r.Post("/admin/withdrawals/{id}/approve", h.ApproveWithdrawal)
				r.Post("/admin/withdrawals/{id}/reject", h.RejectWithdrawal)
			})
		})
	})

	return &testEnv{store: store, svc: svc, router: r}
}

func (e *testEnv) createUser(t *testing.T, u *models.User) (int64, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u.PasswordHash = string(hash)

	id, err := e.store.CreateUser(context.Background(), u)
	require.NoError(t, err)

	token, err := middleware.GenerateToken(id, u.IsAdmin, testSecret)
	require.NoError(t, err)
	return id, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var reg struct {
		UserID int64  `json:"user_id"`
		Token  string `json:"token"`
	}
	decode(t, rec, &reg)
	require.NotZero(t, reg.UserID)
	require.NotEmpty(t, reg.Token)

	// Duplicate username.
	rec = env.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Login by email works too.
	rec = env.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"login":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"login":    "alice",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterWithReferralCode(t *testing.T) {
	env := newTestEnv(t)
	referrerID, _ := env.createUser(t, &models.User{
		Username: "ref", Email: "ref@example.com", ReferralCode: "REF00001",
	})

	rec := env.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username":      "alice",
		"email":         "alice@example.com",
		"password":      "password123",
		"referral_code": "REF00001",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var reg struct {
		UserID int64 `json:"user_id"`
	}
	decode(t, rec, &reg)

	user, err := env.store.GetUserByID(context.Background(), reg.UserID)
	require.NoError(t, err)
	require.NotNil(t, user.ReferredBy)
	require.Equal(t, referrerID, *user.ReferredBy)

	rec = env.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username":      "bob",
		"email":         "bob@example.com",
		"password":      "password123",
		"referral_code": "NOSUCH01",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})
	require.NoError(t, env.store.SeedMissions(context.Background(), []models.Mission{{
		Title: "Watch a video", Reward: decimal.NewFromInt(10), XP: 15,
		MissionType: models.MissionOneTime, UserType: models.AudienceAll,
		ActionType: "watch_video", IsActive: true,
	}}))

	rec := env.do(t, http.MethodGet, "/api/missions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var missions []models.MissionStatus
	decode(t, rec, &missions)
	require.Len(t, missions, 1)

	rec = env.do(t, http.MethodPost, "/api/missions/1/complete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second completion of a one-time mission conflicts.
	rec = env.do(t, http.MethodPost, "/api/missions/1/complete", token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/missions/999/complete", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/missions/abc/complete", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpinEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	rec := env.do(t, http.MethodGet, "/api/spin", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status service.SpinStatus
	decode(t, rec, &status)
	require.True(t, status.CanSpin)

	rec = env.do(t, http.MethodPost, "/api/spin", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome service.SpinOutcome
	decode(t, rec, &outcome)
	require.True(t, outcome.Reward.IsPositive())

	rec = env.do(t, http.MethodPost, "/api/spin", token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/spin/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWithdrawalEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
		Balance: decimal.NewFromInt(1000), TotalEarned: decimal.NewFromInt(1000),
	})
	_, adminToken := env.createUser(t, &models.User{
		Username: "admin", Email: "admin@example.com", ReferralCode: "ADMIN001", IsAdmin: true,
	})

	// Below the minimum.
	rec := env.do(t, http.MethodPost, "/api/withdrawals", token, map[string]interface{}{
		"amount": "100", "method": "bank", "account_number": "12345678", "account_name": "Alice",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Beyond the balance.
	rec = env.do(t, http.MethodPost, "/api/withdrawals", token, map[string]interface{}{
		"amount": "2000", "method": "bank", "account_number": "12345678", "account_name": "Alice",
	})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/withdrawals", token, map[string]interface{}{
		"amount": "700", "method": "bank", "account_number": "12345678", "account_name": "Alice",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Regular users cannot reach the admin queue.
	rec = env.do(t, http.MethodGet, "/api/admin/withdrawals", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/withdrawals", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pending []models.Withdrawal
	decode(t, rec, &pending)
	require.Len(t, pending, 1)

	rec = env.do(t, http.MethodPost, "/api/admin/withdrawals/1/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Already processed.
	rec = env.do(t, http.MethodPost, "/api/admin/withdrawals/1/reject", adminToken, map[string]string{
		"reason": "too late",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/withdrawals", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var mine []models.Withdrawal
	decode(t, rec, &mine)
	require.Len(t, mine, 1)
	require.Equal(t, models.StatusCompleted, mine[0].Status)
}

func TestPaymentEndpoints(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.createUser(t, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	rec := env.do(t, http.MethodPost, "/api/payments/deposit", token, map[string]string{
		"method": "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var dep struct {
		Reference string `json:"reference"`
	}
	decode(t, rec, &dep)
	require.NotEmpty(t, dep.Reference)

	rec = env.do(t, http.MethodPost, "/api/payments/callback", "", map[string]interface{}{
		"user_id": userID, "amount": "350", "reference": dep.Reference,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := env.store.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, user.IsActive)

	// The gateway retry is harmless.
	rec = env.do(t, http.MethodPost, "/api/payments/callback", "", map[string]interface{}{
		"user_id": userID, "amount": "350", "reference": dep.Reference,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/payments/callback", "", map[string]interface{}{
		"user_id": userID, "amount": "350", "reference": "RZUNKNOWN",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsAndReadSurfaces(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	rec := env.do(t, http.MethodGet, "/api/user/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	decode(t, rec, &user)
	require.Equal(t, "alice", user.Username)

	// Empty collections respond 204.
	rec = env.do(t, http.MethodGet, "/api/user/transactions", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/user/notifications", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// No token.
	rec = env.do(t, http.MethodGet, "/api/user/stats", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
