// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, consent, quota, insight, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeConsentRequired    = "CONSENT_REQUIRED"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInsufficientData   = "INSUFFICIENT_DATA"
	ErrCodeGenerationFailed   = "GENERATION_FAILED"
	ErrCodeStaleAuth          = "STALE_AUTH"
	ErrCodeNetworkTimeout     = "NETWORK_TIMEOUT"
	ErrCodeFeatureLocked      = "FEATURE_LOCKED"
	ErrCodeInvalidPeriod      = "INVALID_PERIOD"
	ErrCodeInvalidInsightType = "INVALID_INSIGHT_TYPE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewConsentRequiredError はAI同意未取得エラーを生成する。
// 同意が得られるまで生成バックエンドへのリクエストは一切行わない。
func NewConsentRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeConsentRequired,
		Message:  "AIによるデータ処理への同意が必要です。",
		Category: "consent",
		Action:   "設定画面からAI処理への同意を有効にしてください。",
	}
}

// NewRateLimitExceededError はAI利用回数の上限超過エラーを生成する。
// remainingには残り回数（上限到達時は0）を指定する。
func NewRateLimitExceededError(remaining int) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  fmt.Sprintf("本日のAI利用回数の上限に達しました（残り%d回）。", remaining),
		Category: "quota",
		Action:   "明日になってから再度お試しください。",
	}
}

// NewInsufficientDataError はインサイト生成に必要な記録日数が不足している場合のエラーを生成する。
func NewInsufficientDataError(required, logged int) *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientData,
		Message:  fmt.Sprintf("記録された日数が不足しています（必要: %d日、現在: %d日）。", required, logged),
		Category: "insight",
		Action:   "もう数日分の記録を追加してから再度お試しください。",
	}
}

// NewGenerationFailedError はAI生成バックエンドのエラーを生成する。
// 失敗した生成結果はキャッシュに保存しない。
func NewGenerationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeGenerationFailed,
		Message:  "インサイトの生成に失敗しました。",
		Category: "insight",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewStaleAuthError は認証情報の期限切れエラーを生成する。
// 再認証を促すため、サイレントリトライは行わない。
func NewStaleAuthError() *APIError {
	return &APIError{
		Code:     ErrCodeStaleAuth,
		Message:  "認証の有効期限が切れています。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNetworkTimeoutError は外部呼び出しのタイムアウトエラーを生成する。
// リトライ可能なエラーとして扱う。
func NewNetworkTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeNetworkTimeout,
		Message:  "外部サービスへのリクエストがタイムアウトしました。",
		Category: "system",
		Action:   "通信状況を確認して再度お試しください。",
	}
}

// NewFeatureLockedError はプランの利用権限がない機能へのアクセスエラーを生成する。
func NewFeatureLockedError(feature string) *APIError {
	return &APIError{
		Code:     ErrCodeFeatureLocked,
		Message:  fmt.Sprintf("この機能（%s）は現在のプランではご利用いただけません。", feature),
		Category: "quota",
		Action:   "プレミアムプランへのアップグレードをご検討ください。",
	}
}

// NewInvalidPeriodError は無効な集計期間エラーを生成する。
func NewInvalidPeriodError(period string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPeriod,
		Message:  fmt.Sprintf("無効な集計期間です: %s", period),
		Category: "validation",
		Action:   "期間には 7、14、28、cycle のいずれかを指定してください。",
	}
}

// NewInvalidInsightTypeError は無効なインサイト種別エラーを生成する。
func NewInvalidInsightTypeError(insightType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInsightType,
		Message:  fmt.Sprintf("無効なインサイト種別です: %s", insightType),
		Category: "validation",
		Action:   "種別には daily、weekly、monthly、sleep、cycle のいずれかを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
