package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhallard/storefront-cart/pkg/logger"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// Identity resolves the caller's user ID and stores it on the request
// context. Identity is established at the edge: a Bearer token is verified
// against jwtSecret and its subject claim is the user; with an empty
// jwtSecret the gateway is trusted and X-User-ID is taken as-is. Requests
// without a resolvable identity pass through with no user ID set and are
// rejected by the handlers.
func Identity(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := resolveUserID(r, jwtSecret)
			if userID != "" {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				ctx = logger.WithUserID(ctx, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveUserID(r *http.Request, jwtSecret string) string {
	if jwtSecret != "" {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return ""
		}
		return subjectFromToken(token, jwtSecret)
	}
	return r.Header.Get("X-User-ID")
}

func subjectFromToken(tokenString, secret string) string {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return ""
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// ContentTypeJSON rejects mutation requests whose body is not declared as
// JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
