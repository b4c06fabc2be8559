package security

import (
	"testing"
	"time"

	"secbank-cbs/internal/config"
	"secbank-cbs/internal/model"
	"secbank-cbs/pkg/clock"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestTokenService(clk clock.Clock) *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:     "test-secret",
		AccessTTL:  24 * time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}, clk, nil)
}

func testPrincipal() *Principal {
	branch := uint(1)
	return NewPrincipal(&model.User{
		ID: 7, Username: "teller1", Email: "teller1@bank.test", BranchID: &branch, Status: model.UserStatusActive,
	})
}

func TestAccessTokenLifetime(t *testing.T) {
	clk := clock.NewFixed(testNow)
	svc := newTestTokenService(clk)

	token, err := svc.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	assert.True(t, svc.Validate(token))
	assert.False(t, svc.IsRefreshToken(token))

	id, err := svc.SubjectUserID(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	clk.Set(testNow.Add(24*time.Hour - time.Second))
	assert.True(t, svc.Validate(token))

	clk.Set(testNow.Add(24*time.Hour + time.Second))
	assert.False(t, svc.Validate(token))
	_, err = svc.SubjectUserID(token)
	assert.Error(t, err)
}

func TestRefreshTokenLifetime(t *testing.T) {
	clk := clock.NewFixed(testNow)
	svc := newTestTokenService(clk)

	token, err := svc.IssueRefreshToken(testPrincipal())
	require.NoError(t, err)

	assert.True(t, svc.Validate(token))
	assert.True(t, svc.IsRefreshToken(token))

	clk.Advance(7*24*time.Hour - time.Second)
	assert.True(t, svc.IsRefreshToken(token))

	clk.Advance(2 * time.Second)
	assert.False(t, svc.Validate(token))
	assert.False(t, svc.IsRefreshToken(token))
}

func TestAccessTokenClaims(t *testing.T) {
	svc := newTestTokenService(clock.NewFixed(testNow))
	token, err := svc.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	claims, err := svc.parse(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "teller1", claims.Username)
	assert.Equal(t, "teller1@bank.test", claims.Email)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, uint(1), *claims.BranchID)
	assert.Empty(t, claims.Type)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, testNow, claims.IssuedAt.Time.UTC())
	assert.Equal(t, testNow.Add(24*time.Hour), claims.ExpiresAt.Time.UTC())

	other, err := svc.IssueAccessToken(testPrincipal())
	require.NoError(t, err)
	otherClaims, err := svc.parse(other)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, otherClaims.ID)
}

func TestValidateRejects(t *testing.T) {
	svc := newTestTokenService(clock.NewFixed(testNow))
	foreign := NewTokenService(config.JWTConfig{Secret: "other", AccessTTL: time.Hour}, clock.NewFixed(testNow), nil)
	foreignToken, err := foreign.IssueAccessToken(testPrincipal())
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"malformed":    "not.a.jwt",
		"garbage":      "abc",
		"wrong secret": foreignToken,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"alg none":     unsigned,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, svc.Validate(token))
				assert.False(t, svc.IsRefreshToken(token))
			})
		})
	}
}

func TestAccessTTLSeconds(t *testing.T) {
	svc := newTestTokenService(clock.System{})
	assert.Equal(t, int64(86400), svc.AccessTTLSeconds())
}
