// Package entitlement は購読状態とトライアル期間から機能アクセス権を評価する。
package entitlement

import (
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// TrialDays は新規登録後のトライアル期間（日数）。
const TrialDays = 7

// フルアクセス時と無料時の履歴参照可能日数。
const (
	maxHistoryFull = 365
	maxHistoryFree = 7
)

// Evaluate は購読・オーバーライド・登録日時から機能アクセス権を評価する。
// 純粋関数であり、現在時刻は必ずnowとして明示的に渡す。
//
// 優先順位: プレミアム（active） > トライアル期間中 > オーバーライド > 無料デフォルト。
// 入力が欠けていても常にデフォルト安全な結果（無料プラン相当）を返し、
// エラーは発生しない。
func Evaluate(sub *model.Subscription, override *model.Entitlement, userCreatedAt, now time.Time) model.EntitlementResult {
	daysSinceCreation := 0
	if !userCreatedAt.IsZero() && now.After(userCreatedAt) {
		daysSinceCreation = int(now.Sub(userCreatedAt).Hours() / 24)
	}

	trialDaysRemaining := TrialDays - daysSinceCreation
	if trialDaysRemaining < 0 {
		trialDaysRemaining = 0
	}

	hasPremium := sub.HasPremiumPlan()
	isActive := sub.IsActive()
	premiumActive := hasPremium && isActive
	hasFullAccess := trialDaysRemaining > 0 || premiumActive

	result := model.EntitlementResult{
		CanUseDigest:       hasFullAccess,
		CanUseTrends:       hasFullAccess,
		CanUsePatterns:     hasFullAccess,
		MaxDaysHistory:     maxHistoryFree,
		Plan:               model.PlanFree,
		Status:             "",
		TrialDaysRemaining: trialDaysRemaining,
		IsTrialExpired:     !hasPremium && trialDaysRemaining == 0,
	}

	if sub != nil {
		result.Plan = sub.Plan
		result.Status = sub.Status
	}

	if hasFullAccess {
		result.MaxDaysHistory = maxHistoryFull
	}

	// 有料ステータスが有効な間はトライアルの概念は意味を持たないため0を報告する
	if premiumActive {
		result.TrialDaysRemaining = 0
	}

	// 明示的なオーバーライドはフルアクセス判定より弱く、無料デフォルトより強い
	if override != nil {
		result.CanUseTrends = result.CanUseTrends || override.CanUseTrends
		result.CanUsePatterns = result.CanUsePatterns || override.CanUsePatterns
	}

	return result
}
