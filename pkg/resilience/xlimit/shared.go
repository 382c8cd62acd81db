package xlimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// SharedKeyPrefix 是共享节流器在 Redis 中的键前缀。
const SharedKeyPrefix = "xlimit:throttle:"

// minRetryAfter 防止 Redis 返回非正等待时间时空转。
const minRetryAfter = 10 * time.Millisecond

// SharedLimiter 基于 Redis 的分布式节流器（GCRA），
// 使用同一 API 密钥的多个进程共享每小时的请求速率。
type SharedLimiter struct {
	limiter *redis_rate.Limiter
	key     string
	limit   redis_rate.Limit
}

// NewSharedLimiter 创建共享节流器。key 通常为 API 密钥 ID，
// rdb 由调用方管理生命周期。
func NewSharedLimiter(rdb redis.UniversalClient, key string, perHour, burst int) (*SharedLimiter, error) {
	if rdb == nil {
		return nil, fmt.Errorf("%w: nil redis client", ErrInvalidRate)
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidRate)
	}
	if perHour <= 0 {
		return nil, fmt.Errorf("%w: per hour must be positive, got %d", ErrInvalidRate, perHour)
	}
	if burst < 1 {
		burst = 1
	}
	return &SharedLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		key:     SharedKeyPrefix + key,
		limit:   redis_rate.Limit{Rate: perHour, Burst: burst, Period: time.Hour},
	}, nil
}

// Key 返回 Redis 中的完整键名。
func (s *SharedLimiter) Key() string {
	return s.key
}

// Wait 阻塞直到获得一个令牌。Redis 错误直接返回，不降级为放行。
func (s *SharedLimiter) Wait(ctx context.Context) error {
	for {
		res, err := s.limiter.Allow(ctx, s.key, s.limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("xlimit: shared limiter: %w", err)
		}
		if res.Allowed > 0 {
			return nil
		}

		wait := max(res.RetryAfter, minRetryAfter)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining 查询当前可立即使用的令牌数，不消耗配额。
func (s *SharedLimiter) Remaining(ctx context.Context) (int, error) {
	res, err := s.limiter.AllowN(ctx, s.key, s.limit, 0)
	if err != nil {
		return 0, fmt.Errorf("xlimit: shared limiter: %w", err)
	}
	return res.Remaining, nil
}

// Reset 清除共享状态。
func (s *SharedLimiter) Reset(ctx context.Context) error {
	return s.limiter.Reset(ctx, s.key)
}

var _ Waiter = (*SharedLimiter)(nil)
