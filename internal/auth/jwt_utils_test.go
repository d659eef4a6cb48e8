package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef-test")

func testUser() *domain.User {
	return &domain.User{ID: "user-1", Email: "ivan@example.com", Role: domain.UserRoleOperator}
}

func TestNewJWTManager_RejectsShortSecret(t *testing.T) {
	_, err := NewJWTManager([]byte("short"), "paygo", 0, 0, nil)
	assert.Error(t, err)
}

func TestIssueAndValidate(t *testing.T) {
	jm, err := NewJWTManager(testSecret, "paygo", 0, 0, nil)
	require.NoError(t, err)

	pair, err := jm.IssuePair(testUser())
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int64(DefaultAccessTTL.Seconds()), pair.ExpiresIn)

	claims, err := jm.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.UserRoleOperator, claims.Role)
	assert.Equal(t, "ivan@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(DefaultAccessTTL), claims.ExpiresAt.Time, 5*time.Second)

	refresh, err := jm.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultRefreshTTL), refresh.ExpiresAt.Time, 5*time.Second)
}

func TestValidate_RejectsWrongTokenType(t *testing.T) {
	jm, err := NewJWTManager(testSecret, "paygo", 0, 0, nil)
	require.NoError(t, err)
	pair, err := jm.IssuePair(testUser())
	require.NoError(t, err)

	_, err = jm.ValidateAccessToken(pair.RefreshToken)
	assert.True(t, errors.Is(err, domain.ErrAuthInvalid))

	_, err = jm.ValidateRefreshToken(pair.AccessToken)
	assert.True(t, errors.Is(err, domain.ErrAuthInvalid))
}

func TestValidate_Failures(t *testing.T) {
	jm, err := NewJWTManager(testSecret, "paygo", time.Nanosecond, 0, nil)
	require.NoError(t, err)
	other, err := NewJWTManager([]byte("another-secret-of-16"), "paygo", 0, 0, nil)
	require.NoError(t, err)
	otherIssuer, err := NewJWTManager(testSecret, "someone-else", 0, 0, nil)
	require.NoError(t, err)

	expired, err := jm.IssuePair(testUser())
	require.NoError(t, err)
	foreign, err := other.IssuePair(testUser())
	require.NoError(t, err)
	wrongIssuer, err := otherIssuer.IssuePair(testUser())
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "paygo"},
		TokenType:        TokenTypeAccess,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired.AccessToken},
		{name: "wrong_secret", token: foreign.AccessToken},
		{name: "wrong_issuer", token: wrongIssuer.AccessToken},
		{name: "alg_none", token: none},
		{name: "garbage", token: "not.a.token"},
		{name: "empty", token: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jm.ValidateAccessToken(tt.token)
			require.Error(t, err)
			assert.True(t, domain.IsAuthError(err))
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
	assert.False(t, CheckPassword("not-a-hash", "secret123"))
}

func TestRequireRole(t *testing.T) {
	ctx := context.Background()
	_, err := RequireRole(ctx, domain.UserRoleAdmin)
	assert.True(t, errors.Is(err, domain.ErrAuthMissing))

	ctx = WithPrincipal(ctx, &Principal{UserID: "u1", Role: domain.UserRoleOperator})
	_, err = RequireRole(ctx, domain.UserRoleAdmin)
	assert.True(t, errors.Is(err, domain.ErrAuthAccessDenied))

	p, err := RequireRole(ctx, domain.UserRoleAdmin, domain.UserRoleOperator)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
}
