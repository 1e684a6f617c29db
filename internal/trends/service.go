package trends

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hitoshi/menoplan/internal/entitlement"
	"github.com/hitoshi/menoplan/internal/model"
	"github.com/hitoshi/menoplan/internal/repository"
)

// defaultCycleDays は出血記録が見つからない場合の周期ウィンドウの日数。
const defaultCycleDays = 28

// Report は /api/trends のレスポンス。
type Report struct {
	Period      string             `json:"period"`
	From        string             `json:"from"` // YYYY-MM-DD
	To          string             `json:"to"`
	KPIs        KPIs               `json:"kpis"`
	TopSymptoms []SymptomSummary   `json:"topSymptoms"`
	Eating      EatingPatternStats `json:"eatingPatterns"`
}

// PatternsReport は /api/trends/patterns のレスポンス。
type PatternsReport struct {
	Period       string        `json:"period"`
	From         string        `json:"from"`
	To           string        `json:"to"`
	Correlations []Correlation `json:"correlations"`
}

// Service はトレンド集計のサービス層。ウィンドウの選択と
// 機能アクセス権のゲートを担い、計算自体は純粋関数に委譲する。
type Service struct {
	entitlements *entitlement.Service
	userRepo     repository.UserRepository
	scoreRepo    repository.DailyScoreRepository
	symptomRepo  repository.SymptomLogRepository
	bleedingRepo repository.BleedingLogRepository
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	entitlements *entitlement.Service,
	userRepo repository.UserRepository,
	scoreRepo repository.DailyScoreRepository,
	symptomRepo repository.SymptomLogRepository,
	bleedingRepo repository.BleedingLogRepository,
) *Service {
	return &Service{
		entitlements: entitlements,
		userRepo:     userRepo,
		scoreRepo:    scoreRepo,
		symptomRepo:  symptomRepo,
		bleedingRepo: bleedingRepo,
		now:          time.Now,
	}
}

// WithClock は現在時刻の取得関数を差し替えたServiceを返す。テスト用。
func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// Overview は指定期間のKPI・症状サマリー・食事パターンを返す。
// periodは 7 | 14 | 28 | cycle。can_use_trendsがない場合はFEATURE_LOCKED。
func (s *Service) Overview(ctx context.Context, userID, period string) (*Report, error) {
	window, user, err := s.resolveWindow(ctx, userID, period, func(result model.EntitlementResult) bool {
		return result.CanUseTrends
	}, "trends")
	if err != nil {
		return nil, err
	}

	days, err := s.loadDayGrid(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	symptoms, err := s.symptomRepo.ListByUserAndRange(ctx, userID, window.from, window.to)
	if err != nil {
		return nil, fmt.Errorf("症状記録の取得に失敗しました: %w", err)
	}

	profile := Profile{WeightKg: user.WeightKg}

	return &Report{
		Period:      period,
		From:        window.from.Format("2006-01-02"),
		To:          window.to.Format("2006-01-02"),
		KPIs:        ComputeKPIs(days, profile),
		TopSymptoms: TopSymptoms(symptoms, window.from, window.to),
		Eating:      EatingPatterns(days),
	}, nil
}

// Patterns は指定期間のトリガー→影響の相関を返す。
// can_use_patternsがない場合はFEATURE_LOCKED。
func (s *Service) Patterns(ctx context.Context, userID, period string) (*PatternsReport, error) {
	window, _, err := s.resolveWindow(ctx, userID, period, func(result model.EntitlementResult) bool {
		return result.CanUsePatterns
	}, "patterns")
	if err != nil {
		return nil, err
	}

	days, err := s.loadDayGrid(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	return &PatternsReport{
		Period:       period,
		From:         window.from.Format("2006-01-02"),
		To:           window.to.Format("2006-01-02"),
		Correlations: ComputeCorrelations(days),
	}, nil
}

// dayWindow は[from, to]の日付ウィンドウ（両端含む、時刻部分ゼロ）。
type dayWindow struct {
	from time.Time
	to   time.Time
}

// resolveWindow は機能アクセス権を確認した上で集計ウィンドウを決定する。
// 期間はmax_days_historyでクリップする（無料プランは直近7日のみ）。
func (s *Service) resolveWindow(
	ctx context.Context,
	userID, period string,
	allowed func(model.EntitlementResult) bool,
	feature string,
) (dayWindow, *model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return dayWindow{}, nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return dayWindow{}, nil, model.NewUserNotFoundError()
	}

	result, err := s.entitlements.EvaluateForUser(ctx, userID)
	if err != nil {
		return dayWindow{}, nil, err
	}
	if !allowed(result) {
		return dayWindow{}, nil, model.NewFeatureLockedError(feature)
	}

	local := s.now().In(user.Location())
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	var from time.Time
	switch period {
	case "7", "14", "28":
		n, _ := strconv.Atoi(period)
		from = today.AddDate(0, 0, -(n - 1))
	case "cycle":
		start, err := s.bleedingRepo.FindLatestBleedingStart(ctx, userID, today)
		if err != nil {
			return dayWindow{}, nil, fmt.Errorf("周期開始日の取得に失敗しました: %w", err)
		}
		if start.IsZero() {
			from = today.AddDate(0, 0, -(defaultCycleDays - 1))
		} else {
			from = start
		}
	default:
		return dayWindow{}, nil, model.NewInvalidPeriodError(period)
	}

	// 履歴の参照範囲はプランの上限でクリップする
	limit := today.AddDate(0, 0, -(result.MaxDaysHistory - 1))
	if from.Before(limit) {
		from = limit
	}

	return dayWindow{from: from, to: today}, user, nil
}

// loadDayGrid はウィンドウ全日分の日次記録を返す。
// 記録が存在しない日はゼロ値の行で埋める。未記録日を分母から
// 落とさないために、集計は常に完全なグリッドに対して行う。
func (s *Service) loadDayGrid(ctx context.Context, userID string, window dayWindow) ([]model.DailyScore, error) {
	rows, err := s.scoreRepo.ListByUserAndRange(ctx, userID, window.from, window.to)
	if err != nil {
		return nil, fmt.Errorf("日次集計の取得に失敗しました: %w", err)
	}

	byDay := make(map[string]model.DailyScore, len(rows))
	for _, row := range rows {
		byDay[row.Day.Format("2006-01-02")] = row
	}

	var days []model.DailyScore
	for day := window.from; !day.After(window.to); day = day.AddDate(0, 0, 1) {
		if row, ok := byDay[day.Format("2006-01-02")]; ok {
			days = append(days, row)
		} else {
			days = append(days, model.DailyScore{UserID: userID, Day: day})
		}
	}

	return days, nil
}
