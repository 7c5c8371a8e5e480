package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewAuthServiceFromKeys(key, &key.PublicKey, 15*time.Minute, 24*time.Hour)
}

func TestNewAuthServiceFromPEM(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	svc, err := NewAuthService(privPEM, pubPEM, time.Minute, time.Hour)
	require.NoError(t, err)
	pair, err := svc.GenerateTokenPair(3)
	require.NoError(t, err)
	claims, err := svc.ValidateTyped(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)

	_, err = NewAuthService(nil, pubPEM, time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestTokenPairTypes(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.GenerateTokenPair(42)
	require.NoError(t, err)

	refresh, err := svc.ValidateTyped(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.NotEmpty(t, refresh.ID)
	assert.Equal(t, "42", refresh.Subject)

	_, err = svc.ValidateTyped(pair.RefreshToken, TokenTypeAccess)
	assert.True(t, errors.Is(err, ErrWrongTokenType))
}

func TestExpiredTokenIsDistinguishable(t *testing.T) {
	svc := newTestService(t)
	issued := time.Now().Add(-time.Hour)
	svc.WithClock(func() time.Time { return issued })
	token, err := svc.GenerateAccessToken(7)
	require.NoError(t, err)

	svc.WithClock(time.Now)
	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, ErrTokenExpired))

	_, err = svc.ValidateToken(token + "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTokenExpired))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("other", hash))

	_, err = HashPassword("abc")
	assert.ErrorIs(t, err, ErrPasswordLength)
	_, err = HashPassword(strings.Repeat("x", MaxPasswordLength+1))
	assert.ErrorIs(t, err, ErrPasswordLength)
}

func TestRefreshBlacklist(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := newTestService(t)
	pair, err := svc.GenerateTokenPair(1)
	require.NoError(t, err)
	claims, err := svc.ValidateTyped(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)

	bl := NewRefreshBlacklist(client)
	ctx := context.Background()
	revoked, err := bl.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, claims, time.Hour))
	revoked, err = bl.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Greater(t, mr.TTL(refreshTokenBlacklistKeyPrefix+claims.ID), 23*time.Hour)

	assert.Error(t, bl.Revoke(ctx, &TokenClaims{}, time.Hour))
}
