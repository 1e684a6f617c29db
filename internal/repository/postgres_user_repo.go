package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/menoplan/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, ai_consent, timezone, weight_kg, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.AIConsent, &user.Timezone,
		&user.WeightKg, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	return user, nil
}

// UpdateAIConsent はAI処理への同意フラグを更新する。
func (r *PostgresUserRepo) UpdateAIConsent(ctx context.Context, userID string, consent bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET ai_consent = $1, updated_at = now() WHERE id = $2`,
		consent, userID,
	)
	if err != nil {
		return fmt.Errorf("AI同意フラグの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return model.NewUserNotFoundError()
	}

	return nil
}

// ListWithAIConsent はAI処理に同意している全ユーザーを返す。
func (r *PostgresUserRepo) ListWithAIConsent(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, name, ai_consent, timezone, weight_kg, created_at, updated_at
		 FROM users WHERE ai_consent = TRUE ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("同意済みユーザーの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.AIConsent,
			&user.Timezone, &user.WeightKg, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ユーザー行の読み取りに失敗しました: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザー一覧の走査に失敗しました: %w", err)
	}

	return users, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連レコードはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	return nil
}
