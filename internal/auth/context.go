package auth

import (
	"context"

	"github.com/kevin07696/paygo-service/internal/domain"
)

// Context keys for authentication data
type contextKey string

const (
	principalKey contextKey = "principal"
	requestIDKey contextKey = "request_id"
	clientIPKey  contextKey = "client_ip"
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID  string
	Email   string
	Role    domain.UserRole
	TokenID string
}

// PrincipalFromClaims builds a principal from validated token claims
func PrincipalFromClaims(c *JWTClaims) *Principal {
	return &Principal{
		UserID:  c.Subject,
		Email:   c.Email,
		Role:    c.Role,
		TokenID: c.ID,
	}
}

// HasRole reports whether the principal holds one of roles
func (p *Principal) HasRole(roles ...domain.UserRole) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// WithPrincipal adds the authenticated caller to the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the authenticated caller, or nil
func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// RequirePrincipal returns the caller or domain.ErrAuthMissing
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p := GetPrincipal(ctx)
	if p == nil || p.UserID == "" {
		return nil, domain.ErrAuthMissing
	}
	return p, nil
}

// RequireRole returns the caller when it holds one of roles
func RequireRole(ctx context.Context, roles ...domain.UserRole) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.HasRole(roles...) {
		return nil, domain.ErrAuthAccessDenied
	}
	return p, nil
}

// WithRequestID stores the request id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID safely extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

// WithClientIP stores the caller's address
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP safely extracts the client IP from the context
func GetClientIP(ctx context.Context) string {
	clientIP, _ := ctx.Value(clientIPKey).(string)
	return clientIP
}
