package middleware

import (
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/hitoshi/portfolio/internal/model"
)

// NewAllowedHostsMiddleware はHostヘッダーが許可リストに含まれないリクエストを400で拒否するミドルウェアを返す。
// "*" は全ホストを許可し、"." で始まるエントリはそのドメインとサブドメインに一致する。
// 許可リストが空の場合は検証しない。
// exemptPathsに一致するパスはコンテナ内のヘルスチェック等のためホストを問わず通す。
func NewAllowedHostsMiddleware(allowed []string, exemptPaths ...string) func(next http.Handler) http.Handler {
	patterns := make([]string, 0, len(allowed))
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			patterns = append(patterns, a)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(patterns) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(exemptPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if !hostAllowed(requestHost(r), patterns) {
				WriteErrorResponse(w, http.StatusBadRequest, model.NewDisallowedHostError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestHost はリクエストのHostからポートを除いた小文字のホスト名を返す。
func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	return strings.ToLower(host)
}

func hostAllowed(host string, patterns []string) bool {
	if host == "" {
		return false
	}
	for _, p := range patterns {
		switch {
		case p == "*":
			return true
		case strings.HasPrefix(p, "."):
			if host == p[1:] || strings.HasSuffix(host, p) {
				return true
			}
		case host == p:
			return true
		}
	}
	return false
}
