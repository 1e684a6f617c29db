// Package digest は週次インサイトの事前生成ジョブを提供する。
// AI同意済みユーザーの週次インサイトをバックグラウンドで生成し、
// キャッシュを温めておくことでAPIリクエスト時の応答を高速化する。
package digest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/menoplan/internal/insight"
	"github.com/hitoshi/menoplan/internal/model"
	"github.com/hitoshi/menoplan/internal/repository"
)

// InsightGetter はインサイトの取得・生成インターフェース。
type InsightGetter interface {
	// Get はインサイトを取得する。キャッシュがあればそれを、なければ新規生成して返す。
	Get(ctx context.Context, req insight.Request) (*insight.Result, error)
}

// EntitlementEvaluator は機能アクセス権の評価インターフェース。
type EntitlementEvaluator interface {
	EvaluateForUser(ctx context.Context, userID string) (model.EntitlementResult, error)
}

// MetricsRecorder はダイジェスト実行のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordDigestRun()
}

// Scheduler は週次ダイジェスト生成のスケジューリングと並列制御を行う。
// ティッカー間隔でAI同意済みユーザーを取得し、
// semaphoreパターンで最大並列数を制御しながら週次インサイトを事前生成する。
type Scheduler struct {
	userRepo       repository.UserRepository
	entitlements   EntitlementEvaluator
	insights       InsightGetter
	metrics        MetricsRecorder
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	userRepo repository.UserRepository,
	entitlements EntitlementEvaluator,
	insights InsightGetter,
	metrics MetricsRecorder,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		userRepo:       userRepo,
		entitlements:   entitlements,
		insights:       insights,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ダイジェストスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("ダイジェストサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ダイジェストスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("ダイジェストサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はAI同意済みユーザーを1回取得し、並列で週次インサイトを事前生成する。
// semaphoreパターンで最大並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	users, err := s.userRepo.ListWithAIConsent(ctx)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		s.logger.Info("ダイジェスト対象のユーザーはいません")
		return nil
	}

	s.logger.Info("ダイジェストサイクルを開始します",
		slog.Int("user_count", len(users)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(u *model.User) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			s.processUser(ctx, u)
		}(user)
	}

	wg.Wait()

	s.metrics.RecordDigestRun()

	duration := time.Since(start)
	s.logger.Info("ダイジェストサイクルが完了しました",
		slog.Int("user_count", len(users)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// processUser は1ユーザー分の週次インサイトを事前生成する。
// データ不足やクォータ超過はスキップとして扱い、エラーログは出さない。
func (s *Scheduler) processUser(ctx context.Context, user *model.User) {
	result, err := s.entitlements.EvaluateForUser(ctx, user.ID)
	if err != nil {
		s.logger.Error("機能アクセス権の評価に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !result.CanUseDigest {
		return
	}

	res, err := s.insights.Get(ctx, insight.Request{
		UserID:  user.ID,
		Type:    model.InsightTypeWeekly,
		Context: map[string]any{},
	})
	if err != nil {
		if isSkippableError(err) {
			s.logger.Debug("ダイジェスト生成をスキップしました",
				slog.String("user_id", user.ID),
				slog.String("reason", err.Error()),
			)
			return
		}
		s.logger.Error("ダイジェスト生成に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("週次インサイトを事前生成しました",
		slog.String("user_id", user.ID),
		slog.Bool("cached", res.Cached),
	)
}

// isSkippableError はダイジェスト生成を静かにスキップしてよいエラーかを判定する。
// データ不足・クォータ超過・同意撤回は定常運用で起こり得る状態であり、障害ではない。
func isSkippableError(err error) bool {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case model.ErrCodeInsufficientData, model.ErrCodeRateLimitExceeded, model.ErrCodeConsentRequired:
		return true
	default:
		return false
	}
}
