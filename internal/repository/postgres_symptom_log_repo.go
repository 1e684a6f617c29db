package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// PostgresSymptomLogRepo はPostgreSQLを使用した症状記録リポジトリ。読み取り専用。
type PostgresSymptomLogRepo struct {
	db *sql.DB
}

// NewPostgresSymptomLogRepo はPostgresSymptomLogRepoを生成する。
func NewPostgresSymptomLogRepo(db *sql.DB) *PostgresSymptomLogRepo {
	return &PostgresSymptomLogRepo{db: db}
}

// ListByUserAndRange は[from, to]（両端含む）の症状記録を日付昇順で返す。
func (r *PostgresSymptomLogRepo) ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.SymptomLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, day_date, code, intensity, created_at
		 FROM symptom_logs
		 WHERE user_id = $1 AND day_date >= $2 AND day_date <= $3
		 ORDER BY day_date`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("症状記録の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var logs []model.SymptomLog
	for rows.Next() {
		var l model.SymptomLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Day, &l.Code, &l.Intensity, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("症状記録行の読み取りに失敗しました: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("症状記録の走査に失敗しました: %w", err)
	}

	return logs, nil
}
