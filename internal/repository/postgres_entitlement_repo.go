package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/menoplan/internal/model"
)

// PostgresEntitlementRepo はPostgreSQLを使用した機能開放オーバーライドリポジトリ。
type PostgresEntitlementRepo struct {
	db *sql.DB
}

// NewPostgresEntitlementRepo はPostgresEntitlementRepoを生成する。
func NewPostgresEntitlementRepo(db *sql.DB) *PostgresEntitlementRepo {
	return &PostgresEntitlementRepo{db: db}
}

// FindByUserID は指定ユーザーのオーバーライドを取得する。見つからない場合はnilを返す。
func (r *PostgresEntitlementRepo) FindByUserID(ctx context.Context, userID string) (*model.Entitlement, error) {
	ent := &model.Entitlement{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, can_use_trends, can_use_patterns, created_at, updated_at
		 FROM entitlements WHERE user_id = $1`,
		userID,
	).Scan(&ent.UserID, &ent.CanUseTrends, &ent.CanUsePatterns, &ent.CreatedAt, &ent.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("機能開放オーバーライドの取得に失敗しました: %w", err)
	}

	return ent, nil
}
