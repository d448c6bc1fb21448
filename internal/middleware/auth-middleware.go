package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bidwise/bidcore/internal/auction"
	"github.com/bidwise/bidcore/internal/handlers"
	"github.com/bidwise/bidcore/pkg/config"
	"github.com/bidwise/bidcore/pkg/jwt"
)

func AuthMiddleware(m jwt.JWTManager) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")

			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handlers.RespondErrorJSON(w, r, http.StatusUnauthorized, handlers.ErrMissingToken.Error(), "Missing token in the Authorization header", nil)
				return
			}
			accessTokenString := parts[1]

			claims, err := m.ValidateAccessToken(accessTokenString)
			if err != nil {
				handlers.RespondErrorJSON(w, r, http.StatusUnauthorized, handlers.ErrToken.Error(), "Token is either revoked or invalid.", nil)
				return
			}

			ctx := context.WithValue(r.Context(), config.UserClaimKey, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability gates a route on the caller's role. Runs after
// AuthMiddleware, which puts the claims in the request context.
func RequireCapability(cap auction.Capability) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := handlers.GetUserClaims(r.Context())
			if claims == nil {
				handlers.RespondErrorJSON(w, r, http.StatusUnauthorized, handlers.ErrAuthFailed.Error(), "user claims not found in context", nil)
				return
			}

			if !auction.Role(claims.Role).Can(cap) {
				handlers.RespondErrorJSON(w, r, http.StatusForbidden, handlers.ErrForbidden.Error(), "Your role does not permit this action", nil)
				return
			}

			h.ServeHTTP(w, r)
		})
	}
}
