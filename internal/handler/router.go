package handler

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/portfolio/internal/mail"
	"github.com/hitoshi/portfolio/internal/metrics"
	"github.com/hitoshi/portfolio/internal/middleware"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// StaticURLPrefix は静的ファイルを公開するURLの接頭辞。
const StaticURLPrefix = "/static/"

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsGatherer   prometheus.Gatherer
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	AllowedHosts      []string
	TrustedProxies    []netip.Prefix
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	HSTS              bool

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 技術タグ
	TechnologyService TechnologyServiceInterface

	// プロジェクト
	ProjectService ProjectServiceInterface
	ProjectConfig  ProjectHandlerConfig

	// ユーザー
	UserService UserServiceInterface

	// お問い合わせ
	Mailer mail.MailerService

	// ファイル配信
	MediaRoot  string
	StaticRoot string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	TrustedProxy → Recovery → Logging → AllowedHosts → SecurityHeaders → CORS →
//	OptionalSession → RateLimit(General, Write) → CSRF
//
// /health と /metrics はコンテナ内部からlocalhost宛てに呼ばれるため、AllowedHostsより前で応答する。
// 認証が必要なルートはさらにSessionMiddlewareで未認証リクエストを401にする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewTrustedProxyMiddleware(deps.TrustedProxies))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewAllowedHostsMiddleware(deps.AllowedHosts, healthPath, metricsPath))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError())
	})

	// --- 運用系エンドポイント（ホスト検証・レート制限の対象外） ---
	r.Get(healthPath, NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle(metricsPath, metrics.SetupMetricsRoute(deps.MetricsGatherer))
	}
	if deps.MediaRoot != "" {
		r.Get(MediaURLPrefix+"*", fileServer(MediaURLPrefix, deps.MediaRoot))
	}
	if deps.StaticRoot != "" {
		r.Get(StaticURLPrefix+"*", fileServer(StaticURLPrefix, deps.StaticRoot))
	}

	mountAPIRoutes(r, deps)

	return r
}

// mountAPIRoutes はセッション・レート制限・CSRFを適用したAPIルートを登録する。
func mountAPIRoutes(r chi.Router, deps *RouterDeps) {
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	techHandler := NewTechnologyHandler(deps.TechnologyService)
	projectHandler := NewProjectHandler(deps.ProjectService, deps.ProjectConfig)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)
	contactHandler := NewContactHandler(deps.Mailer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.WriteMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// --- 認証不要のルート ---
		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/api/technologies", techHandler.List)
		r.Get("/api/technologies/{id}", techHandler.Get)
		r.Get("/api/projects", projectHandler.List)
		r.Get("/api/projects/{id}", projectHandler.Get)
		r.Get("/api/users/{id}/projects", projectHandler.ListByUser)
		r.Post("/api/contact", contactHandler.Send)

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))

			r.Post("/api/technologies", techHandler.Create)
			r.Put("/api/technologies/{id}", techHandler.Update)
			r.Delete("/api/technologies/{id}", techHandler.Delete)

			r.Post("/api/projects", projectHandler.Create)
			r.Put("/api/projects/{id}", projectHandler.Update)
			r.Delete("/api/projects/{id}", projectHandler.Delete)
			r.Put("/api/projects/{id}/technologies", projectHandler.SetTechnologies)
			r.Put("/api/projects/{id}/image", projectHandler.UploadImage)
			r.Post("/api/projects/{id}/image/import", projectHandler.ImportImage)
			r.Delete("/api/projects/{id}/image", projectHandler.ClearImage)

			r.Delete("/api/users/me", userHandler.Withdraw)
		})
	})
}

// fileServer はrootディレクトリ配下のファイルを読み取り専用で配信するハンドラーを返す。
// ディレクトリの一覧は返さない。
func fileServer(prefix, root string) http.HandlerFunc {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(root)))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError())
			return
		}
		fs.ServeHTTP(w, r)
	}
}
