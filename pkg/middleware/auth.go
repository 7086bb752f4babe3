package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/venue-bookings/pkg/auth"
	"github.com/diagnosis/venue-bookings/pkg/logger"
	"github.com/diagnosis/venue-bookings/pkg/response"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// RequireJWT rejects requests without a valid bearer access token and stores
// the claims on the request context.
func RequireJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			claims, err := auth.Parse(strings.TrimPrefix(authz, "Bearer "), secret)
			if err != nil || claims.Type != auth.TokenAccess {
				response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims returns the authenticated claims, or nil outside RequireJWT.
func Claims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// WithClaims is used by tests that bypass token parsing.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
