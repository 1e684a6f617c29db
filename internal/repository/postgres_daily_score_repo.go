package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// PostgresDailyScoreRepo はPostgreSQLを使用した日次集計リポジトリ。
// daily_scoresテーブルへの書き込みは上流のロギング処理が行うため、
// 本リポジトリは読み取り専用。
type PostgresDailyScoreRepo struct {
	db *sql.DB
}

// NewPostgresDailyScoreRepo はPostgresDailyScoreRepoを生成する。
func NewPostgresDailyScoreRepo(db *sql.DB) *PostgresDailyScoreRepo {
	return &PostgresDailyScoreRepo{db: db}
}

// ListByUserAndRange は[from, to]（両端含む）の日次集計を日付昇順で返す。
func (r *PostgresDailyScoreRepo) ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.DailyScore, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, day_date, meals_count, snacks_count, kcal_total, protein_g,
		        fiber_g, carbs_g, sleep_hours, sleep_quality, first_meal_at,
		        last_meal_at, caffeine_after_14
		 FROM daily_scores
		 WHERE user_id = $1 AND day_date >= $2 AND day_date <= $3
		 ORDER BY day_date`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("日次集計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var scores []model.DailyScore
	for rows.Next() {
		var s model.DailyScore
		var firstMeal, lastMeal sql.NullTime
		if err := rows.Scan(&s.UserID, &s.Day, &s.MealsCount, &s.SnacksCount,
			&s.KcalTotal, &s.ProteinG, &s.FiberG, &s.CarbsG, &s.SleepHours,
			&s.SleepQuality, &firstMeal, &lastMeal, &s.CaffeineAfter14); err != nil {
			return nil, fmt.Errorf("日次集計行の読み取りに失敗しました: %w", err)
		}
		if firstMeal.Valid {
			t := firstMeal.Time
			s.FirstMealAt = &t
		}
		if lastMeal.Valid {
			t := lastMeal.Time
			s.LastMealAt = &t
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("日次集計の走査に失敗しました: %w", err)
	}

	return scores, nil
}

// CountLoggedDays は[from, to]のうち1件以上の食事記録がある日数を返す。
func (r *PostgresDailyScoreRepo) CountLoggedDays(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_scores
		 WHERE user_id = $1 AND day_date >= $2 AND day_date <= $3 AND meals_count > 0`,
		userID, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("記録日数の取得に失敗しました: %w", err)
	}
	return count, nil
}
