package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
)

type contextKey string

const (
	// principalKey is the key for the authenticated principal in the
	// request context
	principalKey contextKey = "principal"
	// Authentication-related constants
	jwtExpirationTime = 24 * time.Hour
	authCookieName    = "auth_token"
	bearerSchema      = "Bearer "
)

// Principal is the request-scoped identity passed into every core call:
// the authenticated user id plus their admin role. The core never reads
// ambient global state.
type Principal struct {
	UserID  int64
	IsAdmin bool
}

// JWTConfig contains configuration for JWT authentication
type JWTConfig struct {
	SecretKey string
	Store     repository.Store
}

// JWTClaims represents JWT claims
type JWTClaims struct {
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token for a user
func GenerateToken(userID int64, isAdmin bool, secretKey string) (string, error) {
	claims := JWTClaims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtExpirationTime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// AuthMiddleware creates middleware that checks if the user is authenticated
func AuthMiddleware(jwtConfig *JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtConfig.SecretKey), nil
			})

			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*JWTClaims)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Verify that user exists in database
			ctx := r.Context()
			user, err := jwtConfig.Store.GetUserByID(ctx, claims.UserID)
			if err != nil || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// The admin flag comes from the user row, not the token, so a
			// demoted admin loses access as soon as the row changes.
			ctx = context.WithValue(ctx, principalKey, Principal{
				UserID:  user.ID,
				IsAdmin: user.IsAdmin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose principal lacks the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !p.IsAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken extracts JWT token from Authorization header or cookie
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, bearerSchema) {
		return strings.TrimPrefix(authHeader, bearerSchema)
	}

	cookie, err := r.Cookie(authCookieName)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// SetAuthCookie sets authentication cookie
func SetAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(jwtExpirationTime.Seconds()),
	})
}

// GetPrincipal extracts the authenticated principal from the request context
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
