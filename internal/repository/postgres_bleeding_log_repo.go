package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// PostgresBleedingLogRepo はPostgreSQLを使用した出血記録リポジトリ。読み取り専用。
type PostgresBleedingLogRepo struct {
	db *sql.DB
}

// NewPostgresBleedingLogRepo はPostgresBleedingLogRepoを生成する。
func NewPostgresBleedingLogRepo(db *sql.DB) *PostgresBleedingLogRepo {
	return &PostgresBleedingLogRepo{db: db}
}

// ListByUserAndRange は[from, to]（両端含む）の出血記録を日付昇順で返す。
func (r *PostgresBleedingLogRepo) ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.BleedingLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, day_date, flow, created_at
		 FROM bleeding_logs
		 WHERE user_id = $1 AND day_date >= $2 AND day_date <= $3
		 ORDER BY day_date`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("出血記録の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var logs []model.BleedingLog
	for rows.Next() {
		var l model.BleedingLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Day, &l.Flow, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("出血記録行の読み取りに失敗しました: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("出血記録の走査に失敗しました: %w", err)
	}

	return logs, nil
}

// FindLatestBleedingStart はtoより前の直近の出血開始日を返す。
// 前日に出血記録（flow != 'none'）が存在しない出血日を開始日とみなす。
// 見つからない場合はゼロ値とnilを返す。
func (r *PostgresBleedingLogRepo) FindLatestBleedingStart(ctx context.Context, userID string, to time.Time) (time.Time, error) {
	var day time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT b.day_date
		 FROM bleeding_logs b
		 WHERE b.user_id = $1 AND b.day_date <= $2 AND b.flow <> 'none'
		   AND NOT EXISTS (
		     SELECT 1 FROM bleeding_logs p
		     WHERE p.user_id = b.user_id
		       AND p.day_date = b.day_date - INTERVAL '1 day'
		       AND p.flow <> 'none'
		   )
		 ORDER BY b.day_date DESC
		 LIMIT 1`,
		userID, to,
	).Scan(&day)

	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("出血開始日の検索に失敗しました: %w", err)
	}

	return day, nil
}
