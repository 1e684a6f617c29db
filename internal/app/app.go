// Package app はアプリケーションの起動・初期化・依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/menoplan/internal/auth"
	"github.com/hitoshi/menoplan/internal/clients/openai"
	"github.com/hitoshi/menoplan/internal/config"
	"github.com/hitoshi/menoplan/internal/database"
	"github.com/hitoshi/menoplan/internal/entitlement"
	"github.com/hitoshi/menoplan/internal/handler"
	"github.com/hitoshi/menoplan/internal/insight"
	"github.com/hitoshi/menoplan/internal/logger"
	"github.com/hitoshi/menoplan/internal/metrics"
	"github.com/hitoshi/menoplan/internal/middleware"
	"github.com/hitoshi/menoplan/internal/quota"
	"github.com/hitoshi/menoplan/internal/repository"
	"github.com/hitoshi/menoplan/internal/subscription"
	"github.com/hitoshi/menoplan/internal/trends"
	"github.com/hitoshi/menoplan/internal/user"
	"github.com/hitoshi/menoplan/internal/worker/cleanup"
	"github.com/hitoshi/menoplan/internal/worker/digest"

	"github.com/prometheus/client_golang/prometheus"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandToken:
		return runToken(w, cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// newQuotaStore はAIクォータカウンタのストアを構築する。
// REDIS_ADDRが設定されている場合はRedis、未設定の場合はインメモリストアを使用する。
// 戻り値のクローザはシャットダウン時に呼び出すこと。
func newQuotaStore(cfg *config.Config) (quota.Store, func(), error) {
	if cfg.RedisAddr != "" {
		store, err := quota.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis quota store enabled", slog.String("addr", cfg.RedisAddr))
		return store, func() { store.Close() }, nil
	}

	slog.Warn("REDIS_ADDR is not set, using in-memory quota store (single node only)")
	store := quota.NewMemoryStore()
	return store, store.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)
	entRepo := repository.NewPostgresEntitlementRepo(db)
	scoreRepo := repository.NewPostgresDailyScoreRepo(db)
	symptomRepo := repository.NewPostgresSymptomLogRepo(db)
	bleedingRepo := repository.NewPostgresBleedingLogRepo(db)
	insightRepo := repository.NewPostgresInsightRepo(db)

	// 3. クォータストアとメトリクスの初期化
	quotaStore, closeQuota, err := newQuotaStore(cfg)
	if err != nil {
		return err
	}
	defer closeQuota()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(
		userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		slog.Default(),
	)

	entitlementService := entitlement.NewService(userRepo, subRepo, entRepo)

	generator := openai.NewClient(openai.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	}, slog.Default())

	insightService := insight.NewService(
		userRepo, insightRepo, scoreRepo,
		quotaStore, generator, collector,
		cfg.QuotaLimit, cfg.DailyInsightTTL,
		slog.Default(),
	)

	trendsService := trends.NewService(
		entitlementService,
		userRepo, scoreRepo, symptomRepo, bleedingRepo,
	)

	subscriptionService := subscription.NewService(userRepo, subRepo)
	userService := user.NewService(userRepo, sessionRepo, slog.Default())

	// 5. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Verifier:          authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HealthChecker:     db,
		HTTPMetrics:       collector,
		MetricsHandler:    metrics.SetupMetricsRoute(registry),

		AuthService:         authService,
		EntitlementService:  entitlementService,
		InsightService:      insightService,
		TrendsService:       trendsService,
		ScoreRepo:           scoreRepo,
		SubscriptionService: subscriptionService,
		UserService:         userService,
		ConsentUpdater:      userService,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
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

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、週次ダイジェストスケジューラとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)
	entRepo := repository.NewPostgresEntitlementRepo(db)
	scoreRepo := repository.NewPostgresDailyScoreRepo(db)
	insightRepo := repository.NewPostgresInsightRepo(db)

	// 3. クォータストアとメトリクスの初期化
	// サーバーと同じストアを共有することで、ダイジェスト生成もクォータの対象になる
	quotaStore, closeQuota, err := newQuotaStore(cfg)
	if err != nil {
		return err
	}
	defer closeQuota()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. インサイト生成パイプラインの初期化
	entitlementService := entitlement.NewService(userRepo, subRepo, entRepo)

	generator := openai.NewClient(openai.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	}, slog.Default())

	insightService := insight.NewService(
		userRepo, insightRepo, scoreRepo,
		quotaStore, generator, collector,
		cfg.QuotaLimit, cfg.DailyInsightTTL,
		slog.Default(),
	)

	// 5. スケジューラの初期化
	scheduler := digest.NewScheduler(
		userRepo, entitlementService, insightService, collector,
		slog.Default(), cfg.DigestMaxConcurrent,
	)

	// 6. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, insightRepo, slog.Default())
	cleanupJob.RetentionDays = cfg.InsightRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("digest_interval", cfg.DigestInterval),
		slog.Int("max_concurrent", cfg.DigestMaxConcurrent),
	)

	// クリーンアップジョブをバックグラウンドで定期実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// ダイジェストスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.DigestInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runToken は指定ユーザーのアクセストークンを発行し、標準出力に書き出す。
// 運用時のトークン発行フロー用サブコマンド。
// 使用法: menoplan token <user-id>
func runToken(w io.Writer, cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("usage: token <user-id>")
	}
	userID := args[0]

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	authService := auth.NewService(
		userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		slog.Default(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, session, err := authService.IssueToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("access token issued",
		slog.String("user_id", userID),
		slog.Time("expires_at", session.ExpiresAt),
	)

	// トークン本体はログではなく出力先にのみ書き出す
	fmt.Fprintln(w, token)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
