package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
)

const testSecret = "test-secret"

func authSetup(t *testing.T) (*JWTConfig, int64) {
	t.Helper()
	store := repository.NewMemoryStore()
	userID, err := store.CreateUser(context.Background(), &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})
	require.NoError(t, err)
	return &JWTConfig{SecretKey: testSecret, Store: store}, userID
}

func principalEcho(t *testing.T, got *Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		require.True(t, ok)
		*got = p
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareBearerToken(t *testing.T) {
	cfg, userID := authSetup(t)

	token, err := GenerateToken(userID, false, testSecret)
	require.NoError(t, err)

	var got Principal
	handler := AuthMiddleware(cfg)(principalEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/user/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, got.UserID)
	require.False(t, got.IsAdmin)
}

func TestAuthMiddlewareCookie(t *testing.T) {
	cfg, userID := authSetup(t)

	token, err := GenerateToken(userID, false, testSecret)
	require.NoError(t, err)

	var got Principal
	handler := AuthMiddleware(cfg)(principalEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/user/stats", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, got.UserID)
}

func TestAuthMiddlewareRejections(t *testing.T) {
	cfg, userID := authSetup(t)

	handler := AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	// No token at all.
	req := httptest.NewRequest(http.MethodGet, "/api/user/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Token signed with the wrong key.
	token, err := GenerateToken(userID, false, "other-secret")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/user/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token for a user that no longer exists.
	token, err = GenerateToken(userID+100, false, testSecret)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/user/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAdminFromUserRow(t *testing.T) {
	store := repository.NewMemoryStore()
	userID, err := store.CreateUser(context.Background(), &models.User{
		Username: "admin", Email: "admin@example.com", ReferralCode: "ADMIN001", IsAdmin: true,
	})
	require.NoError(t, err)
	cfg := &JWTConfig{SecretKey: testSecret, Store: store}

	// The token claims no admin role; the user row wins.
	token, err := GenerateToken(userID, false, testSecret)
	require.NoError(t, err)

	var got Principal
	handler := AuthMiddleware(cfg)(principalEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, got.IsAdmin)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Non-admin principal.
	ctx := context.WithValue(context.Background(), principalKey, Principal{UserID: 1})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Admin principal.
	ctx = context.WithValue(context.Background(), principalKey, Principal{UserID: 1, IsAdmin: true})
	req = httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// No principal at all.
	req = httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals", nil)
	rec = httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
