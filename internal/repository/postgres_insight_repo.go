package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// PostgresInsightRepo はPostgreSQLを使用したAIインサイトキャッシュリポジトリ。
type PostgresInsightRepo struct {
	db *sql.DB
}

// NewPostgresInsightRepo はPostgresInsightRepoを生成する。
func NewPostgresInsightRepo(db *sql.DB) *PostgresInsightRepo {
	return &PostgresInsightRepo{db: db}
}

// FindLatest は (user_id, insight_type, insight_date, context_hash) に一致する
// 最新のキャッシュエントリを返す。見つからない場合はnilを返す。
func (r *PostgresInsightRepo) FindLatest(ctx context.Context, userID string, insightType model.InsightType, insightDate time.Time, contextHash string) (*model.AIInsight, error) {
	insight := &model.AIInsight{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, insight_type, insight_date, context_hash, payload, created_at
		 FROM ai_insights
		 WHERE user_id = $1 AND insight_type = $2 AND insight_date = $3 AND context_hash = $4
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, string(insightType), insightDate, contextHash,
	).Scan(&insight.ID, &insight.UserID, &insight.InsightType, &insight.InsightDate,
		&insight.ContextHash, &insight.Payload, &insight.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("インサイトキャッシュの検索に失敗しました: %w", err)
	}

	return insight, nil
}

// Create はキャッシュエントリを作成する。
func (r *PostgresInsightRepo) Create(ctx context.Context, insight *model.AIInsight) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ai_insights (id, user_id, insight_type, insight_date, context_hash, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		insight.ID, insight.UserID, string(insight.InsightType), insight.InsightDate,
		insight.ContextHash, insight.Payload, insight.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("インサイトキャッシュの作成に失敗しました: %w", err)
	}
	return nil
}

// DeleteOlderThan は作成日時がcutoffより古いdaily系キャッシュ行を削除し、削除件数を返す。
func (r *PostgresInsightRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM ai_insights
		 WHERE created_at < $1 AND insight_type IN ('daily', 'sleep', 'cycle')`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("インサイトキャッシュの削除に失敗しました: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return deleted, nil
}
