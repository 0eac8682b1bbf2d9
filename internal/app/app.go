package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/portfolio/internal/auth"
	"github.com/hitoshi/portfolio/internal/config"
	"github.com/hitoshi/portfolio/internal/database"
	"github.com/hitoshi/portfolio/internal/handler"
	"github.com/hitoshi/portfolio/internal/logger"
	"github.com/hitoshi/portfolio/internal/mail"
	"github.com/hitoshi/portfolio/internal/media"
	"github.com/hitoshi/portfolio/internal/metrics"
	"github.com/hitoshi/portfolio/internal/middleware"
	"github.com/hitoshi/portfolio/internal/project"
	"github.com/hitoshi/portfolio/internal/repository"
	"github.com/hitoshi/portfolio/internal/security"
	"github.com/hitoshi/portfolio/internal/technology"
	"github.com/hitoshi/portfolio/internal/user"
	"github.com/hitoshi/portfolio/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	// dbConnectTimeout は起動時のDB疎通確認のタイムアウト。
	dbConnectTimeout = 10 * time.Second
	// shutdownTimeout はグレースフルシャットダウンの猶予時間。
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer, cmd Command) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.WithCommand(string(cmd)))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. DEBUGに応じてログレベルを切り替える
	logger.SetupDefault(w, logger.WithDebug(cfg.Debug), logger.WithCommand(string(cmd)))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w, cmd)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("debug", cfg.Debug),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCreateSuperuser:
		return runCreateSuperuser(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開いて疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(context.Background(), cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// newImageStorage は画像ストレージを構築する。URL取り込みはSSRF対策済みクライアントを使う。
func newImageStorage(cfg *config.Config) *media.Storage {
	ssrfGuard := security.NewSSRFGuard()
	return media.NewStorage(
		cfg.MediaRoot,
		cfg.MaxImageSize,
		ssrfGuard,
		ssrfGuard.NewSafeClient(cfg.ImageFetchTimeout),
	)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	techRepo := repository.NewPostgresTechnologyRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 4. ストレージとセキュリティ
	storage := newImageStorage(cfg)
	sanitizer := security.NewDescriptionSanitizer()

	// 5. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, collector, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})
	techService := technology.NewService(techRepo, collector)
	projectService := project.NewService(projectRepo, techRepo, storage, sanitizer, collector)
	userService := user.NewService(userRepo, sessionRepo, projectRepo, storage)
	mailer := mail.NewMailer(mail.Config{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailHostUser,
		Password: cfg.EmailPassword,
	})
	if !mailer.Configured() {
		slog.Warn("email is not configured; contact form is disabled")
	}

	// 6. レート制限
	rateLimiter, closeLimiter, err := newRateLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsGatherer:   registry,
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		AllowedHosts:      cfg.AllowedHosts,
		TrustedProxies:    cfg.TrustedProxies,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			Secret:       []byte(cfg.SecretKey),
		},
		HSTS: cfg.CookieSecure,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		TechnologyService: techService,

		ProjectService: handler.NewProjectServiceAdapter(projectService),
		ProjectConfig:  handler.ProjectHandlerConfig{MaxImageSize: cfg.MaxImageSize},

		UserService: handler.NewUserServiceAdapter(userService),
		Mailer:      mailer,

		MediaRoot:  cfg.MediaRoot,
		StaticRoot: cfg.StaticRoot,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newRateLimiter はレート制限を構築する。
// REDIS_URLが設定されていればRedisを共有ストアとし、なければプロセス内のトークンバケットを使う。
// 返り値の関数で保持しているリソースを解放する。
func newRateLimiter(cfg *config.Config) (*middleware.RateLimiter, func(), error) {
	if cfg.RedisURL == "" {
		general := middleware.NewMemoryLimiter(middleware.PerMinuteConfig(cfg.RateLimitGeneral))
		write := middleware.NewMemoryLimiter(middleware.PerMinuteConfig(cfg.RateLimitWrite))
		closeFn := func() {
			general.Stop()
			write.Stop()
		}
		return middleware.NewRateLimiter(general, write), closeFn, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("rate limiter backed by redis", slog.String("addr", opts.Addr))

	limiter := middleware.NewRateLimiter(
		middleware.NewRedisLimiter(client, cfg.RateLimitGeneral),
		middleware.NewRedisLimiter(client, cfg.RateLimitWrite),
	)
	return limiter, func() { client.Close() }, nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションと未参照画像のクリーンアップを起動直後と以後一定間隔で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. リポジトリとストレージの初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)
	storage := newImageStorage(cfg)

	// 3. ジョブの初期化
	workerLogger := slog.Default()
	jobs := []cleanup.Job{
		cleanup.NewSessionCleanupJob(sessionRepo, workerLogger, nil),
		cleanup.NewOrphanImageJob(projectRepo, storage, workerLogger, nil),
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("worker starting",
		slog.Duration("interval", cfg.SessionCleanupInterval),
		slog.Int("jobs", len(jobs)),
	)

	// ctxがキャンセルされるまでブロックする
	cleanup.RunPeriodically(ctx, cfg.SessionCleanupInterval, workerLogger, jobs...)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	status, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(status.Version)),
	)
	return nil
}

// superuserInputFromEnv は管理ユーザー作成用の入力値を環境変数から読み込む。
func superuserInputFromEnv() (auth.RegisterInput, error) {
	in := auth.RegisterInput{
		Username: os.Getenv("SUPERUSER_USERNAME"),
		Email:    os.Getenv("SUPERUSER_EMAIL"),
		Password: os.Getenv("SUPERUSER_PASSWORD"),
	}
	if in.Username == "" || in.Password == "" {
		return in, errors.New("SUPERUSER_USERNAME and SUPERUSER_PASSWORD are required")
	}
	return in, nil
}

// runCreateSuperuser は環境変数の内容でアカウントを登録する。
func runCreateSuperuser(cfg *config.Config) error {
	in, err := superuserInputFromEnv()
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	authService := auth.NewService(
		repository.NewPostgresUserRepo(db),
		repository.NewPostgresSessionRepo(db),
		nil,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	u, err := authService.Register(context.Background(), in)
	if err != nil {
		return fmt.Errorf("failed to create superuser: %w", err)
	}

	slog.Info("superuser created",
		slog.String("user_id", u.ID),
		slog.String("username", u.Username),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	u.RawQuery = ""
	return u.String()
}
