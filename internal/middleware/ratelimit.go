package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/portfolio/internal/model"
	"golang.org/x/time/rate"
)

// Limiter はキー単位のリクエスト許可判定のインターフェース。
// インメモリ実装とRedis実装がある。
type Limiter interface {
	// Allow はリクエストを許可するかどうかと、拒否した場合の再試行までの推定時間を返す。
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

// RateLimiterConfig はインメモリのトークンバケットの設定を保持する。
type RateLimiterConfig struct {
	Rate            rate.Limit    // 補充レート（req/sec）
	Burst           int           // バーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// PerMinuteConfig は1分あたりのリクエスト数からトークンバケットの設定を生成する。
// バーストサイズは1分間の上限と同じにする。
func PerMinuteConfig(perMinute int) RateLimiterConfig {
	if perMinute < 1 {
		perMinute = 1
	}
	return RateLimiterConfig{
		Rate:            rate.Limit(float64(perMinute) / 60.0),
		Burst:           perMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// keyLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter はプロセス内のトークンバケットでキーごとのレート制限を行う。
// 単一インスタンス構成で使用する。
type MemoryLimiter struct {
	config RateLimiterConfig

	mu       sync.RWMutex
	limiters map[string]*keyLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter は新しいMemoryLimiterを生成する。
// CleanupIntervalが正の場合、バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewMemoryLimiter(config RateLimiterConfig) *MemoryLimiter {
	ml := &MemoryLimiter{
		config:   config,
		limiters: make(map[string]*keyLimiter),
		stopCh:   make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go ml.cleanupLoop()
	}

	return ml
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼んでもよい。
func (ml *MemoryLimiter) Stop() {
	ml.stopOnce.Do(func() { close(ml.stopCh) })
}

// Allow はキーのトークンバケットからトークンを1つ消費する。
func (ml *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	if ml.getOrCreate(key).Allow() {
		return true, 0
	}
	return false, time.Duration(float64(time.Second) / float64(ml.config.Rate))
}

// Len は現在管理されているエントリ数を返す。テスト用。
func (ml *MemoryLimiter) Len() int {
	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return len(ml.limiters)
}

// getOrCreate はキーのリミッターを取得または作成する。
func (ml *MemoryLimiter) getOrCreate(key string) *rate.Limiter {
	ml.mu.RLock()
	kl, exists := ml.limiters[key]
	ml.mu.RUnlock()

	if exists {
		ml.mu.Lock()
		kl.lastAccess = time.Now()
		ml.mu.Unlock()
		return kl.limiter
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	// ダブルチェック
	if kl, exists := ml.limiters[key]; exists {
		kl.lastAccess = time.Now()
		return kl.limiter
	}

	limiter := rate.NewLimiter(ml.config.Rate, ml.config.Burst)
	ml.limiters[key] = &keyLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (ml *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(ml.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ml.cleanup(time.Now())
		case <-ml.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻からCleanupIntervalの2倍を超えたエントリを削除する。
func (ml *MemoryLimiter) cleanup(now time.Time) {
	ttl := ml.config.CleanupInterval * 2

	ml.mu.Lock()
	defer ml.mu.Unlock()
	for key, kl := range ml.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(ml.limiters, key)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)

// RateLimiter はAPI全般と書き込み系の2種類のレート制限ミドルウェアを提供する。
// 認証済みリクエストはユーザーID、匿名リクエストはクライアントIPをキーにする。
type RateLimiter struct {
	general Limiter
	write   Limiter
}

// NewRateLimiter は新しいRateLimiterを生成する。
func NewRateLimiter(general, write Limiter) *RateLimiter {
	return &RateLimiter{
		general: general,
		write:   write,
	}
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// ユーザーIDで判定するため、セッションミドルウェアの後に配置する。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, "general", false)
}

// WriteMiddleware は状態変更メソッドのみを対象にしたレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) WriteMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.write, "write", true)
}

func (rl *RateLimiter) middleware(limiter Limiter, limitType string, writesOnly bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if writesOnly && isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := rateLimitKey(r)
			allowed, retryAfter := limiter.Allow(r.Context(), limitType+":"+key)
			if !allowed {
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("limit_type", limitType),
				)
				writeRateLimitResponse(w, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitKey はレート制限のキーを返す。
// 認証済みなら "user:<id>"、匿名なら "ip:<addr>"。
func rateLimitKey(r *http.Request) string {
	if userID, err := UserIDFromContext(r.Context()); err == nil {
		return "user:" + userID
	}
	return "ip:" + clientIP(r)
}

// clientIP はRemoteAddrからポートを除いたアドレスを返す。
// 転送ヘッダーはNewTrustedProxyMiddlewareが信頼済みプロキシ経由の場合にのみ反映する。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーには再試行までの推定秒数（最低1秒）を設定する。
func writeRateLimitResponse(w http.ResponseWriter, retryAfter time.Duration) {
	retryAfterSec := int(math.Ceil(retryAfter.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitExceededError())
}
