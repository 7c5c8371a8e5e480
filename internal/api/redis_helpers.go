package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// incrWithTTL 计数 +1，首次写入时设置过期。
func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// loginLimiter 按 IP+邮箱 每小时限流，连续失败达到阈值后锁定账号一段时间。
type loginLimiter struct {
	redis         redis.UniversalClient
	perHour       int
	lockThreshold int
	lockTTL       time.Duration
	now           func() time.Time
}

func (l *loginLimiter) rateKey(ip, email string) string {
	return "rate:login:" + ip + ":" + email + ":" + l.now().UTC().Format("2006010215")
}

// allow 返回 false 表示本小时请求次数已超限。Redis 故障时放行。
func (l *loginLimiter) allow(ctx context.Context, ip, email string) bool {
	count, err := incrWithTTL(ctx, l.redis, l.rateKey(ip, email), time.Hour)
	if err != nil {
		return true
	}
	return count <= int64(l.perHour)
}

func (l *loginLimiter) locked(ctx context.Context, email string) bool {
	ttl, err := l.redis.TTL(ctx, "lock:login:"+email).Result()
	return err == nil && ttl > 0
}

func (l *loginLimiter) recordFailure(ctx context.Context, email string) error {
	count, err := incrWithTTL(ctx, l.redis, "lock:login:fail:"+email, l.lockTTL)
	if err != nil {
		return err
	}
	if l.lockThreshold > 0 && count >= int64(l.lockThreshold) {
		return l.redis.Set(ctx, "lock:login:"+email, "1", l.lockTTL).Err()
	}
	return nil
}

func (l *loginLimiter) reset(ctx context.Context, email string) {
	_ = l.redis.Del(ctx, "lock:login:fail:"+email).Err()
}
