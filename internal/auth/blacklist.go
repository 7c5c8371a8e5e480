package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"

// RefreshBlacklist 在 Redis 中记录已吊销的刷新令牌 jti，过期时间与令牌一致。
type RefreshBlacklist struct {
	redis redis.UniversalClient
}

// NewRefreshBlacklist 构造黑名单。
func NewRefreshBlacklist(client redis.UniversalClient) *RefreshBlacklist {
	return &RefreshBlacklist{redis: client}
}

// Revoke 吊销刷新令牌。
func (b *RefreshBlacklist) Revoke(ctx context.Context, claims *TokenClaims, fallbackTTL time.Duration) error {
	if claims == nil || claims.ID == "" {
		return errors.New("refresh token missing jti")
	}
	ttl := fallbackTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := b.redis.Set(ctx, refreshTokenBlacklistKeyPrefix+claims.ID, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// IsRevoked 查询 jti 是否已被吊销。
func (b *RefreshBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := b.redis.Get(ctx, refreshTokenBlacklistKeyPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("lookup refresh blacklist: %w", err)
	}
}
