package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpay/backend/services/auth-service/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", 30*time.Minute)
	assert.Equal(t, 30*time.Minute, svc.TTL())

	token, err := svc.GenerateToken(7, models.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, "7", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenRejections(t *testing.T) {
	svc := NewTokenService("secret", 0)
	assert.Equal(t, time.Hour, svc.TTL())

	_, err := svc.GenerateToken(0, models.RoleDriver)
	assert.Error(t, err)
	_, err = svc.GenerateToken(1, "")
	assert.Error(t, err)

	other := NewTokenService("other", time.Hour)
	token, err := other.GenerateToken(1, models.RoleDriver)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)

	token, err = svc.GenerateToken(1, models.RoleDriver)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRequiresIssuer(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 3,
		"role":    models.RoleAdmin,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)
}
