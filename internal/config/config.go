package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSecretKey は開発用のSECRET_KEY。DEBUG=false の場合は使用できない。
const DefaultSecretKey = "insecure-dev-only-7f3c1e9a5b2d4e6f8a0c"

// dotenvFile は起動時に読み込む.envファイルのパス。
var dotenvFile = ".env"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Mode
	Debug     bool
	SecretKey string

	// Database
	DatabaseURL string

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Email
	EmailHost     string
	EmailPort     int
	EmailHostUser string
	EmailPassword string

	// Media / Static
	MediaRoot         string
	StaticRoot        string
	MaxImageSize      int64
	ImageFetchTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitWrite   int
	RedisURL         string

	// Server
	ServerPort   string
	BaseURL      string
	AllowedHosts []string

	// X-Forwarded-For等を信頼するリバースプロキシのアドレス範囲。空なら転送ヘッダーを無視する。
	TrustedProxies []netip.Prefix

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// MailConfigured はメール送信に必要な設定が揃っているかを返す。
func (c *Config) MailConfigured() bool {
	return c.EmailHost != "" && c.EmailPort > 0 && c.EmailHostUser != ""
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数が優先される。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(dotenvFile); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Debug = getEnvBool("DEBUG", true)
	cfg.SecretKey = getEnvString("SECRET_KEY", DefaultSecretKey)
	if !cfg.Debug && cfg.SecretKey == DefaultSecretKey {
		return nil, fmt.Errorf("SECRET_KEY must be set when DEBUG is false")
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", 24*time.Hour)
	cfg.EmailHost = getEnvString("EMAIL_HOST", "")
	cfg.EmailPort = getEnvInt("EMAIL_PORT", 0)
	cfg.EmailHostUser = getEnvString("EMAIL_HOST_USER", "")
	cfg.EmailPassword = getEnvString("EMAIL_HOST_PASSWORD", "")
	cfg.MediaRoot = getEnvString("MEDIA_ROOT", "media")
	cfg.StaticRoot = getEnvString("STATIC_ROOT", "static")
	cfg.MaxImageSize = getEnvInt64("MAX_IMAGE_SIZE", 5242880)
	cfg.ImageFetchTimeout = getEnvDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.AllowedHosts = getEnvList("ALLOWED_HOSTS", []string{"localhost"})
	trusted, err := parseTrustedProxies(getEnvList("TRUSTED_PROXIES", nil))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = trusted
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// parseTrustedProxies はCIDRまたは単一アドレスの一覧をプレフィックスに変換する。
func parseTrustedProxies(items []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range items {
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", item, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", item, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// loadDotEnv は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの値を空白を除去したスライスとして返す。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultVal
	}
	return items
}
