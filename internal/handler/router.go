package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/menoplan/internal/middleware"
	"github.com/hitoshi/menoplan/internal/repository"
)

// HealthChecker はヘルスチェックに必要なインターフェース。sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Verifier          middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HealthChecker     HealthChecker

	// メトリクス（任意。nilの場合は記録・公開ともに無効）
	HTTPMetrics    middleware.HTTPStatusRecorder
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface

	// 機能アクセス権
	EntitlementService EntitlementServiceInterface

	// AIインサイト
	InsightService InsightServiceInterface

	// トレンド集計
	TrendsService TrendsServiceInterface

	// 日次記録（読み取り専用）
	ScoreRepo repository.DailyScoreRepository

	// 購読
	SubscriptionService SubscriptionServiceInterface

	// ユーザー・設定
	UserService    UserServiceInterface
	ConsentUpdater ConsentUpdaterInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Auth → RateLimit
//
// /health と /auth/* は認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	entitlementHandler := NewEntitlementHandler(deps.EntitlementService)
	insightHandler := NewInsightHandler(deps.InsightService)
	trendsHandler := NewTrendsHandler(deps.TrendsService)
	diaryHandler := NewDiaryHandler(deps.ScoreRepo)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService)
	settingsHandler := NewSettingsHandler(deps.ConsentUpdater)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（トークンの検証・破棄）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", authHandler.Me)
		r.Post("/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Verifier))
		r.Use(deps.RateLimiter.Middleware())

		// 機能アクセス権
		r.Get("/api/entitlements", entitlementHandler.GetEntitlements)

		// AIインサイト
		r.Post("/api/insights/{type}", insightHandler.GenerateInsight)

		// トレンド集計
		r.Route("/api/trends", func(r chi.Router) {
			r.Get("/", trendsHandler.GetTrends)
			r.Get("/patterns", trendsHandler.GetPatterns)
		})

		// 日次記録
		r.Get("/api/diary/days", diaryHandler.ListDays)

		// 購読状態
		r.Get("/api/subscription", subHandler.GetSubscription)

		// 設定
		r.Put("/api/settings/ai-consent", settingsHandler.UpdateAIConsent)

		// ユーザー管理
		r.Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
