package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/zoobzio/clockz"
)

// Default token lifetimes
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// JWTClaims represents the claims carried by our tokens
type JWTClaims struct {
	jwt.RegisteredClaims
	Email     string          `json:"email,omitempty"`
	Role      domain.UserRole `json:"role"`
	TokenType TokenType       `json:"type"`
}

// TokenPair is what a successful login or refresh returns
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// JWTManager issues and validates HS256 tokens
type JWTManager struct {
	clock      clockz.Clock
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTManager creates a new JWT manager. Zero TTLs select the defaults.
func NewJWTManager(secret []byte, issuer string, accessTTL, refreshTTL time.Duration, clock clockz.Clock) (*JWTManager, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("jwt secret must be at least 16 bytes")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	return &JWTManager{
		clock:      clock,
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssuePair generates an access and a refresh token for u
func (jm *JWTManager) IssuePair(u *domain.User) (*TokenPair, error) {
	access, err := jm.sign(u, TokenTypeAccess, jm.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := jm.sign(u, TokenTypeRefresh, jm.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(jm.accessTTL.Seconds()),
	}, nil
}

func (jm *JWTManager) sign(u *domain.User, typ TokenType, ttl time.Duration) (string, error) {
	now := jm.clock.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jm.issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Email:     u.Email,
		Role:      u.Role,
		TokenType: typ,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jm.secret)
}

// ValidateAccessToken validates an access token
func (jm *JWTManager) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	return jm.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token
func (jm *JWTManager) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return jm.validate(tokenString, TokenTypeRefresh)
}

func (jm *JWTManager) validate(tokenString string, want TokenType) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jm.issuer),
		jwt.WithTimeFunc(jm.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.WrapError(domain.ErrorCodeAuthInvalid, "token has expired", err)
		}
		return nil, domain.WrapError(domain.ErrorCodeAuthInvalid, "invalid token", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, domain.ErrAuthInvalid
	}
	if claims.TokenType != want {
		return nil, domain.NewDomainError(domain.ErrorCodeAuthInvalid, fmt.Sprintf("expected %s token", want))
	}
	return claims, nil
}
