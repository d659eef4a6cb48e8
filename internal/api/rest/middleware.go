package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kevin07696/paygo-service/internal/auth"
	"github.com/kevin07696/paygo-service/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator checks access tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.JWTClaims, error)
}

// authenticate validates the bearer token and stores the caller in the
// request context
func authenticate(tokens TokenValidator, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respondError(w, r, logger, domain.ErrAuthMissing)
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				respondError(w, r, logger, domain.NewDomainError(domain.ErrorCodeAuthInvalid, "authorization header must be 'Bearer <token>'"))
				return
			}

			claims, err := tokens.ValidateAccessToken(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("Rejected access token", zap.Error(err))
				respondError(w, r, logger, err)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.PrincipalFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRoles wraps a handler so only callers holding one of roles reach it
func requireRoles(logger *zap.Logger, h http.HandlerFunc, roles ...domain.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.RequireRole(r.Context(), roles...); err != nil {
			respondError(w, r, logger, err)
			return
		}
		h(w, r)
	}
}

// isStaff reports whether the caller may see every user's data
func isStaff(r *http.Request) bool {
	p := auth.GetPrincipal(r.Context())
	return p != nil && p.HasRole(domain.UserRoleAdmin, domain.UserRoleOperator)
}

// callerID returns the authenticated user's id. Routes using it sit behind
// authenticate.
func callerID(r *http.Request) string {
	if p := auth.GetPrincipal(r.Context()); p != nil {
		return p.UserID
	}
	return ""
}
