package model

import "time"

// 購読プラン
const (
	PlanFree           = "free"
	PlanPremium        = "premium"
	PlanPremiumMonthly = "premium_monthly"
)

// 購読ステータス
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Subscription はユーザーの購読状態を表す。
// 決済処理は外部の決済プロバイダに委譲しており、
// 本サービスはWebhook経由で反映された結果のみを参照する。
type Subscription struct {
	ID        string
	UserID    string
	Plan      string // free, premium, premium_monthly
	Status    string // active, canceled, expired
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPremiumPlan はプレミアム系プランかどうかを返す。
func (s *Subscription) HasPremiumPlan() bool {
	if s == nil {
		return false
	}
	return s.Plan == PlanPremium || s.Plan == PlanPremiumMonthly
}

// IsActive は購読が有効かどうかを返す。
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// Entitlement はユーザー単位の機能開放オーバーライドを表す。
// レコードが存在しない場合はデフォルト（オーバーライドなし）として扱う。
type Entitlement struct {
	UserID         string
	CanUseTrends   bool
	CanUsePatterns bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EntitlementResult は購読状態とトライアル期間から導出される
// 機能アクセス権の評価結果。永続化はせず、参照のたびに計算する。
type EntitlementResult struct {
	CanUseDigest       bool   `json:"can_use_digest"`
	CanUseTrends       bool   `json:"can_use_trends"`
	CanUsePatterns     bool   `json:"can_use_patterns"`
	MaxDaysHistory     int    `json:"max_days_history"`
	Plan               string `json:"plan"`
	Status             string `json:"status"`
	TrialDaysRemaining int    `json:"trial_days_remaining"`
	IsTrialExpired     bool   `json:"is_trial_expired"`
}
