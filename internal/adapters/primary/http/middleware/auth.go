package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/autoassistgroup/helpdesk-backend/internal/auth"
)

// contextKey keeps this package's context values from colliding with
// other packages'.
type contextKey string

// UserClaimsKey is where JWTMiddleware stores the validated claims.
const UserClaimsKey contextKey = "userClaims"

// JWTMiddleware rejects requests without a valid Bearer token and puts
// the token's claims in the request context for handlers.
func JWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "Authorization header format must be Bearer {token}")
				return
			}

			claims, err := tm.ValidateToken(token)
			if err != nil {
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the authenticated user's claims from the context.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.Claims)
	return claims, ok
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"UNAUTHORIZED"}`))
}
