package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/menoplan/internal/insight"
	"github.com/hitoshi/menoplan/internal/model"
)

// --- モック定義 ---

// mockUserRepo はUserRepositoryのテスト用モック。
type mockUserRepo struct {
	listWithAIConsentFunc func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) UpdateAIConsent(ctx context.Context, userID string, consent bool) error {
	return nil
}

func (m *mockUserRepo) ListWithAIConsent(ctx context.Context) ([]*model.User, error) {
	if m.listWithAIConsentFunc != nil {
		return m.listWithAIConsentFunc(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}

// mockEvaluator はEntitlementEvaluatorのテスト用モック。
type mockEvaluator struct {
	evaluateFunc func(ctx context.Context, userID string) (model.EntitlementResult, error)
}

func (m *mockEvaluator) EvaluateForUser(ctx context.Context, userID string) (model.EntitlementResult, error) {
	if m.evaluateFunc != nil {
		return m.evaluateFunc(ctx, userID)
	}
	return model.EntitlementResult{CanUseDigest: true}, nil
}

// mockInsightGetter はInsightGetterのテスト用モック。
type mockInsightGetter struct {
	getFunc func(ctx context.Context, req insight.Request) (*insight.Result, error)
}

func (m *mockInsightGetter) Get(ctx context.Context, req insight.Request) (*insight.Result, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, req)
	}
	return &insight.Result{Payload: json.RawMessage(`{}`)}, nil
}

// mockMetrics はMetricsRecorderのテスト用モック。
type mockMetrics struct {
	digestRuns atomic.Int64
}

func (m *mockMetrics) RecordDigestRun() {
	m.digestRuns.Add(1)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func testUsers(n int) []*model.User {
	users := make([]*model.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, &model.User{
			ID:        "user-" + string(rune('a'+i)),
			AIConsent: true,
		})
	}
	return users
}

// --- スケジューラのテスト ---

func TestNewScheduler_DefaultConcurrency(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(&mockUserRepo{}, &mockEvaluator{}, &mockInsightGetter{}, &mockMetrics{}, newTestLogger(&buf), 0)
	if s.maxConcurrency != 5 {
		t.Errorf("maxConcurrency = %d, want 5", s.maxConcurrency)
	}
}

func TestRunOnce_GeneratesForConsentedUsers(t *testing.T) {
	var buf bytes.Buffer

	userRepo := &mockUserRepo{
		listWithAIConsentFunc: func(ctx context.Context) ([]*model.User, error) {
			return testUsers(3), nil
		},
	}

	var mu sync.Mutex
	var requested []string
	getter := &mockInsightGetter{
		getFunc: func(ctx context.Context, req insight.Request) (*insight.Result, error) {
			if req.Type != model.InsightTypeWeekly {
				t.Errorf("type = %s, want weekly", req.Type)
			}
			mu.Lock()
			requested = append(requested, req.UserID)
			mu.Unlock()
			return &insight.Result{Payload: json.RawMessage(`{}`)}, nil
		},
	}
	metrics := &mockMetrics{}

	s := NewScheduler(userRepo, &mockEvaluator{}, getter, metrics, newTestLogger(&buf), 2)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(requested) != 3 {
		t.Errorf("生成リクエスト数 = %d, want 3", len(requested))
	}
	if got := metrics.digestRuns.Load(); got != 1 {
		t.Errorf("digest run記録 = %d, want 1", got)
	}
}

// ダイジェスト権限のないユーザーはスキップされる。
func TestRunOnce_SkipsLockedUsers(t *testing.T) {
	var buf bytes.Buffer

	userRepo := &mockUserRepo{
		listWithAIConsentFunc: func(ctx context.Context) ([]*model.User, error) {
			return testUsers(2), nil
		},
	}
	evaluator := &mockEvaluator{
		evaluateFunc: func(ctx context.Context, userID string) (model.EntitlementResult, error) {
			// 先頭ユーザーのみダイジェスト権限あり
			return model.EntitlementResult{CanUseDigest: userID == "user-a"}, nil
		},
	}

	var calls atomic.Int64
	getter := &mockInsightGetter{
		getFunc: func(ctx context.Context, req insight.Request) (*insight.Result, error) {
			calls.Add(1)
			return &insight.Result{Payload: json.RawMessage(`{}`)}, nil
		},
	}

	s := NewScheduler(userRepo, evaluator, getter, &mockMetrics{}, newTestLogger(&buf), 2)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("生成リクエスト数 = %d, want 1", got)
	}
}

// データ不足やクォータ超過はサイクルを止めない。
func TestRunOnce_SkippableErrorsDoNotFailCycle(t *testing.T) {
	var buf bytes.Buffer

	userRepo := &mockUserRepo{
		listWithAIConsentFunc: func(ctx context.Context) ([]*model.User, error) {
			return testUsers(2), nil
		},
	}
	getter := &mockInsightGetter{
		getFunc: func(ctx context.Context, req insight.Request) (*insight.Result, error) {
			if req.UserID == "user-a" {
				return nil, model.NewInsufficientDataError(3, 1)
			}
			return nil, model.NewRateLimitExceededError(0)
		},
	}

	s := NewScheduler(userRepo, &mockEvaluator{}, getter, &mockMetrics{}, newTestLogger(&buf), 2)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
}

func TestRunOnce_PropagatesListError(t *testing.T) {
	var buf bytes.Buffer

	wantErr := errors.New("db down")
	userRepo := &mockUserRepo{
		listWithAIConsentFunc: func(ctx context.Context) ([]*model.User, error) {
			return nil, wantErr
		},
	}

	s := NewScheduler(userRepo, &mockEvaluator{}, &mockInsightGetter{}, &mockMetrics{}, newTestLogger(&buf), 2)

	if err := s.RunOnce(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("RunOnce() error = %v, want %v", err, wantErr)
	}
}

// 最大並列数を超えて同時実行されない。
func TestRunOnce_RespectsConcurrencyLimit(t *testing.T) {
	var buf bytes.Buffer

	userRepo := &mockUserRepo{
		listWithAIConsentFunc: func(ctx context.Context) ([]*model.User, error) {
			return testUsers(6), nil
		},
	}

	var inFlight, maxInFlight atomic.Int64
	getter := &mockInsightGetter{
		getFunc: func(ctx context.Context, req insight.Request) (*insight.Result, error) {
			cur := inFlight.Add(1)
			for {
				observed := maxInFlight.Load()
				if cur <= observed || maxInFlight.CompareAndSwap(observed, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return &insight.Result{Payload: json.RawMessage(`{}`)}, nil
		},
	}

	s := NewScheduler(userRepo, &mockEvaluator{}, getter, &mockMetrics{}, newTestLogger(&buf), 2)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if got := maxInFlight.Load(); got > 2 {
		t.Errorf("最大同時実行数 = %d, want <= 2", got)
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	var buf bytes.Buffer

	s := NewScheduler(&mockUserRepo{}, &mockEvaluator{}, &mockInsightGetter{}, &mockMetrics{}, newTestLogger(&buf), 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("コンテキストキャンセル後にスケジューラが停止しない")
	}
}
