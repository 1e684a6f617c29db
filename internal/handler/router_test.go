package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hitoshi/menoplan/internal/middleware"
	"github.com/hitoshi/menoplan/internal/model"
)

// mockTokenVerifier はmiddleware.TokenVerifierのモック実装。
type mockTokenVerifier struct {
	verifyTokenFn func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockTokenVerifier) VerifyToken(ctx context.Context, token string) (*model.User, error) {
	if m.verifyTokenFn != nil {
		return m.verifyTokenFn(ctx, token)
	}
	return nil, model.NewStaleAuthError()
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingErr
}

// newTestRouter はテスト用のルーターと依存モックを構成する。
func newTestRouter(t *testing.T, verifier middleware.TokenVerifier, health *mockHealthChecker) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Verifier:          verifier,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		HealthChecker:     health,
		AuthService:       &mockAuthService{},
		EntitlementService: &mockEntitlementService{
			evaluateForUserFn: func(ctx context.Context, userID string) (model.EntitlementResult, error) {
				return model.EntitlementResult{Plan: model.PlanFree, MaxDaysHistory: 7}, nil
			},
		},
		InsightService:      &mockInsightService{},
		TrendsService:       &mockTrendsService{},
		ScoreRepo:           &mockDailyScoreRepo{},
		SubscriptionService: &mockSubscriptionService{},
		UserService:         &mockUserService{},
		ConsentUpdater:      &mockConsentUpdater{},
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, &mockTokenVerifier{}, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_Health_DBDown(t *testing.T) {
	router := newTestRouter(t, &mockTokenVerifier{}, &mockHealthChecker{pingErr: context.DeadlineExceeded})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// /api/* は認証ミドルウェアを通過しないとアクセスできない。
func TestRouter_APIRequiresAuth(t *testing.T) {
	router := newTestRouter(t, &mockTokenVerifier{}, &mockHealthChecker{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/entitlements"},
		{http.MethodPost, "/api/insights/weekly"},
		{http.MethodGet, "/api/trends"},
		{http.MethodGet, "/api/trends/patterns"},
		{http.MethodGet, "/api/diary/days"},
		{http.MethodGet, "/api/subscription"},
		{http.MethodPut, "/api/settings/ai-consent"},
		{http.MethodDelete, "/api/users/me"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

// 有効なトークンを持つリクエストは認証ミドルウェアを通過してハンドラーに届く。
func TestRouter_AuthenticatedRequest(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyTokenFn: func(ctx context.Context, token string) (*model.User, error) {
			if token != "valid-token" {
				return nil, model.NewStaleAuthError()
			}
			return &model.User{ID: "user-123"}, nil
		},
	}
	router := newTestRouter(t, verifier, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/entitlements", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

// MetricsHandlerが設定されている場合のみ/metricsが公開される。
func TestRouter_MetricsRoute(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	recorder := &mockStatusRecorder{}
	router := NewRouter(&RouterDeps{
		Verifier:          &mockTokenVerifier{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		HealthChecker:     &mockHealthChecker{},
		HTTPMetrics:       recorder,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		AuthService:         &mockAuthService{},
		EntitlementService:  &mockEntitlementService{},
		InsightService:      &mockInsightService{},
		TrendsService:       &mockTrendsService{},
		ScoreRepo:           &mockDailyScoreRepo{},
		SubscriptionService: &mockSubscriptionService{},
		UserService:         &mockUserService{},
		ConsentUpdater:      &mockConsentUpdater{},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := recorder.statuses.Load(); got != 1 {
		t.Errorf("記録されたステータス数 = %d, want 1", got)
	}
}

// mockStatusRecorder はmiddleware.HTTPStatusRecorderのモック実装。
type mockStatusRecorder struct {
	statuses atomic.Int64
}

func (m *mockStatusRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses.Add(1)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, &mockTokenVerifier{}, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodOptions, "/api/entitlements", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want http://localhost:3000", got)
	}
}
