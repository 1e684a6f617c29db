package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/menoplan/internal/model"
	"github.com/hitoshi/menoplan/internal/quota"
	"github.com/hitoshi/menoplan/internal/repository"
)

// Generator はインサイト生成バックエンドのインターフェース。
// openai.Clientが実装する。
type Generator interface {
	GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error)
}

// MetricsRecorder はインサイト処理のメトリクス収集インターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordCacheHit(insightType string)
	RecordCacheMiss(insightType string)
	RecordGeneration(insightType, outcome string)
	RecordGenerationLatency(duration time.Duration)
	RecordQuotaRejection(feature string)
}

// minDataRequirement はインサイト種別ごとの最低記録日数と参照ウィンドウ。
type minDataRequirement struct {
	requiredDays int
	windowDays   int
}

// 種別ごとの最低データ要件。dailyは当日のコンテキストのみで生成できるため要件なし。
var minDataRequirements = map[model.InsightType]minDataRequirement{
	model.InsightTypeWeekly:  {requiredDays: 3, windowDays: 7},
	model.InsightTypeMonthly: {requiredDays: 5, windowDays: 30},
	model.InsightTypeSleep:   {requiredDays: 2, windowDays: 7},
	model.InsightTypeCycle:   {requiredDays: 3, windowDays: 28},
}

// Request はインサイト取得リクエスト。
type Request struct {
	UserID  string
	Type    model.InsightType
	Context map[string]any
}

// Result はインサイト取得結果。
type Result struct {
	Payload     json.RawMessage
	Cached      bool
	InsightDate time.Time
	Remaining   int // 当日の残り利用可能回数
}

// QuotaLimitFunc は機能名から1日あたりの上限回数を返す関数。
type QuotaLimitFunc func(feature string) int

// Service はAIインサイトのキャッシュ参照とクォータゲートを担うサービス層。
//
// 処理順序: キャッシュ参照 → 同意確認 → 最低データ確認 → クォータ確認 →
// 生成 → サニタイズ → キャッシュ保存 → クォータ消費。
// クォータは生成が成功した場合にのみ消費する。失敗した生成呼び出しで
// ユーザーの1日の枠を消費させない方針を採る。
//
// キャッシュミス後の生成には競合ウィンドウがある（ほぼ同時の2リクエストが
// 両方ミスして両方生成する）。重複生成は助言的な排除にとどめ、
// 同一期間の複数行は参照時に最新1件のみ有効とすることで吸収する。
type Service struct {
	userRepo    repository.UserRepository
	insightRepo repository.InsightRepository
	scoreRepo   repository.DailyScoreRepository
	quotaStore  quota.Store
	generator   Generator
	metrics     MetricsRecorder
	quotaLimit  QuotaLimitFunc
	dailyTTL    time.Duration
	sanitizer   *payloadSanitizer
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	insightRepo repository.InsightRepository,
	scoreRepo repository.DailyScoreRepository,
	quotaStore quota.Store,
	generator Generator,
	metrics MetricsRecorder,
	quotaLimit QuotaLimitFunc,
	dailyTTL time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		insightRepo: insightRepo,
		scoreRepo:   scoreRepo,
		quotaStore:  quotaStore,
		generator:   generator,
		metrics:     metrics,
		quotaLimit:  quotaLimit,
		dailyTTL:    dailyTTL,
		sanitizer:   newPayloadSanitizer(),
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock は現在時刻の取得関数を差し替えたServiceを返す。テスト用。
func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// Get はインサイトを取得する。鮮度ウィンドウ内のキャッシュがあればそれを返し、
// なければ同意・データ量・クォータを確認した上で新規生成する。
func (s *Service) Get(ctx context.Context, req Request) (*Result, error) {
	user, err := s.userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	now := s.now()
	loc := user.Location()
	bucket := req.Type.PeriodBucket(now, loc)

	keyHash, err := cacheKeyHash(req.Type, req.Context)
	if err != nil {
		return nil, err
	}

	// 1. キャッシュ参照
	cached, err := s.insightRepo.FindLatest(ctx, user.ID, req.Type, bucket, keyHash)
	if err != nil {
		return nil, err
	}
	if cached != nil && s.fresh(req.Type, cached, now) {
		s.metrics.RecordCacheHit(string(req.Type))
		return &Result{
			Payload:     cached.Payload,
			Cached:      true,
			InsightDate: cached.InsightDate,
			Remaining:   s.remaining(ctx, user, req.Type, now, loc),
		}, nil
	}
	s.metrics.RecordCacheMiss(string(req.Type))

	// 2. 同意確認。同意がない限り外部へのデータ送信は一切行わない
	if !user.AIConsent {
		return nil, model.NewConsentRequiredError()
	}

	// 3. 最低データ確認
	if err := s.checkMinData(ctx, user.ID, req.Type, now, loc); err != nil {
		return nil, err
	}

	// 4. クォータ確認。上限到達時は生成バックエンドを呼ばない
	limit := s.quotaLimit(string(req.Type))
	key := quota.DayKey(user.ID, string(req.Type), now, loc)
	used, err := s.quotaStore.Peek(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("クォータの確認に失敗しました: %w", err)
	}
	if used >= int64(limit) {
		s.metrics.RecordQuotaRejection(string(req.Type))
		return nil, model.NewRateLimitExceededError(0)
	}

	// 5. 生成
	system, userPrompt, err := buildPrompts(req.Type, req.Context)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	payload, err := s.generator.GenerateJSON(ctx, system, userPrompt)
	s.metrics.RecordGenerationLatency(time.Since(start))
	if err != nil {
		s.metrics.RecordGeneration(string(req.Type), "error")
		s.logger.Error("インサイト生成に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("insight_type", string(req.Type)),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.NewNetworkTimeoutError()
		}
		return nil, model.NewGenerationFailedError()
	}

	// 6. サニタイズしてキャッシュ保存。失敗した生成結果は保存しない
	payload = s.sanitizer.Sanitize(payload)

	entry := &model.AIInsight{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		InsightType: req.Type,
		InsightDate: bucket,
		ContextHash: keyHash,
		Payload:     payload,
		CreatedAt:   now,
	}
	if err := s.insightRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	// 7. クォータ消費（成功時のみ）
	usedAfter, err := s.quotaStore.Incr(ctx, key, quota.UntilEndOfDay(now, loc))
	if err != nil {
		// カウント失敗は結果の返却を妨げない。次回のPeekで実態より少なく
		// 見える可能性があるだけで、安全側には倒れない点をログに残す
		s.logger.Warn("クォータの消費に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		usedAfter = used + 1
	}

	s.metrics.RecordGeneration(string(req.Type), "success")

	remaining := limit - int(usedAfter)
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Payload:     payload,
		Cached:      false,
		InsightDate: bucket,
		Remaining:   remaining,
	}, nil
}

// fresh はキャッシュエントリが鮮度ウィンドウ内かどうかを判定する。
// daily系は作成からdailyTTL以内、weekly/monthlyは現在の期間バケットに
// 一致していること自体が鮮度条件（FindLatestでバケット一致済み）。
func (s *Service) fresh(insightType model.InsightType, entry *model.AIInsight, now time.Time) bool {
	switch insightType {
	case model.InsightTypeWeekly, model.InsightTypeMonthly:
		return true
	default:
		return now.Sub(entry.CreatedAt) <= s.dailyTTL
	}
}

// checkMinData は種別ごとの最低記録日数を確認する。
// 不足している場合はINSUFFICIENT_DATAを返し、生成は行わない。
func (s *Service) checkMinData(ctx context.Context, userID string, insightType model.InsightType, now time.Time, loc *time.Location) error {
	req, ok := minDataRequirements[insightType]
	if !ok {
		return nil
	}

	local := now.In(loc)
	to := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -(req.windowDays - 1))

	logged, err := s.scoreRepo.CountLoggedDays(ctx, userID, from, to)
	if err != nil {
		return fmt.Errorf("記録日数の確認に失敗しました: %w", err)
	}

	if logged < req.requiredDays {
		return model.NewInsufficientDataError(req.requiredDays, logged)
	}

	return nil
}

// remaining は当日の残り利用可能回数を返す。取得に失敗した場合は0を返す。
func (s *Service) remaining(ctx context.Context, user *model.User, insightType model.InsightType, now time.Time, loc *time.Location) int {
	limit := s.quotaLimit(string(insightType))
	used, err := s.quotaStore.Peek(ctx, quota.DayKey(user.ID, string(insightType), now, loc))
	if err != nil {
		return 0
	}
	remaining := limit - int(used)
	if remaining < 0 {
		return 0
	}
	return remaining
}
