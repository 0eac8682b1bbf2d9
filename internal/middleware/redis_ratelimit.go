package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultRedisKeyPrefix はレート制限カウンターのキー接頭辞。
const defaultRedisKeyPrefix = "portfolio:ratelimit:"

// RedisLimiter はRedisの固定ウィンドウカウンターでレート制限を行う。
// 複数インスタンスでカウンターを共有する構成で使用する。
// Redisが応答しない場合はリクエストを許可する（fail-open）。
type RedisLimiter struct {
	client  redis.Cmdable
	prefix  string
	limit   int
	window  time.Duration
	timeout time.Duration
}

// NewRedisLimiter は1分あたりperMinute件を上限とするRedisLimiterを生成する。
func NewRedisLimiter(client redis.Cmdable, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		client:  client,
		prefix:  defaultRedisKeyPrefix,
		limit:   perMinute,
		window:  time.Minute,
		timeout: 250 * time.Millisecond,
	}
}

// Allow はキーのウィンドウ内カウンターを加算し、上限以下なら許可する。
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if rl.limit <= 0 {
		return true, 0
	}

	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	counter, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.logRedisError("incr", err)
		return true, 0
	}
	// ウィンドウの最初のリクエストで有効期限を設定する
	if counter == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			rl.logRedisError("expire", err)
		}
	}
	if int(counter) <= rl.limit {
		return true, 0
	}

	ttl, err := rl.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return false, rl.window
	}
	if ttl < 0 {
		// 有効期限の設定に失敗したキーが残り続けないよう再設定する
		if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			rl.logRedisError("expire", err)
		}
		ttl = rl.window
	}
	return false, ttl
}

func (rl *RedisLimiter) logRedisError(op string, err error) {
	slog.Error("redis rate limiter error",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

var _ Limiter = (*RedisLimiter)(nil)
