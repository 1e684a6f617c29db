// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// UpdateAIConsent はAI処理への同意フラグを更新する。
	UpdateAIConsent(ctx context.Context, userID string, consent bool) error

	// ListWithAIConsent はAI処理に同意している全ユーザーを返す。
	// ダイジェストワーカーの対象ユーザー抽出に使用する。
	ListWithAIConsent(ctx context.Context) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、daily_scores、symptom_logs、bleeding_logs、
	// ai_insights、subscriptions、entitlementsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByTokenHash はトークンのSHA-256ダイジェストでセッションを検索する。
	// 見つからない場合はnilを返す。期限切れの判定は呼び出し側で行う。
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SubscriptionRepository は購読データの永続化インターフェース。
// 購読レコードの作成・更新は決済プロバイダのWebhook処理（本サービス外）が行う。
type SubscriptionRepository interface {
	// FindByUserID は指定ユーザーの購読を取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Subscription, error)
}

// EntitlementRepository は機能開放オーバーライドの永続化インターフェース。
type EntitlementRepository interface {
	// FindByUserID は指定ユーザーのオーバーライドを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Entitlement, error)
}

// DailyScoreRepository は日次集計データの読み取りインターフェース。
// 書き込みは上流のロギング処理が行うため、本サービスからは読み取りのみ。
type DailyScoreRepository interface {
	// ListByUserAndRange は[from, to]（両端含む）の日次集計を日付昇順で返す。
	ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.DailyScore, error)

	// CountLoggedDays は[from, to]のうち1件以上の食事記録がある日数を返す。
	CountLoggedDays(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// SymptomLogRepository は症状記録の読み取りインターフェース。
type SymptomLogRepository interface {
	// ListByUserAndRange は[from, to]（両端含む）の症状記録を日付昇順で返す。
	ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.SymptomLog, error)
}

// BleedingLogRepository は出血記録の読み取りインターフェース。
type BleedingLogRepository interface {
	// ListByUserAndRange は[from, to]（両端含む）の出血記録を日付昇順で返す。
	ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.BleedingLog, error)

	// FindLatestBleedingStart はtoより前の直近の出血開始日を返す。
	// 出血開始日とは、前日に出血記録がない出血日（flow != none）を指す。
	// 見つからない場合はゼロ値とnilを返す。
	FindLatestBleedingStart(ctx context.Context, userID string, to time.Time) (time.Time, error)
}

// InsightRepository は生成済みAIインサイトのキャッシュ永続化インターフェース。
type InsightRepository interface {
	// FindLatest は (user_id, insight_type, insight_date, context_hash) に一致する
	// 最新のキャッシュエントリを返す。見つからない場合はnilを返す。
	// daily系以外はcontext_hashに空文字列を指定する。
	FindLatest(ctx context.Context, userID string, insightType model.InsightType, insightDate time.Time, contextHash string) (*model.AIInsight, error)

	// Create はキャッシュエントリを作成する。
	Create(ctx context.Context, insight *model.AIInsight) error

	// DeleteOlderThan は作成日時がcutoffより古いdaily系（daily, sleep, cycle）の
	// キャッシュ行を削除し、削除件数を返す。weekly/monthlyは期間バケットで
	// 自然に無効化されるため削除対象にしない。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
