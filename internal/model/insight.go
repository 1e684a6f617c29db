package model

import (
	"encoding/json"
	"time"
)

// InsightType はAIインサイトの種別を表す。
type InsightType string

const (
	InsightTypeDaily   InsightType = "daily"
	InsightTypeWeekly  InsightType = "weekly"
	InsightTypeMonthly InsightType = "monthly"
	InsightTypeSleep   InsightType = "sleep"
	InsightTypeCycle   InsightType = "cycle"
)

// ParseInsightType は文字列からInsightTypeを解析する。
// サポート外の値の場合はfalseを返す。
func ParseInsightType(s string) (InsightType, bool) {
	switch InsightType(s) {
	case InsightTypeDaily, InsightTypeWeekly, InsightTypeMonthly,
		InsightTypeSleep, InsightTypeCycle:
		return InsightType(s), true
	}
	return "", false
}

// PeriodBucket はこの種別のキャッシュキーに使う期間バケットを返す。
// daily/sleep/cycle はローカル日、weekly はISO週の開始日（月曜）、
// monthly は月の開始日をバケットとする。
func (t InsightType) PeriodBucket(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	switch t {
	case InsightTypeWeekly:
		// ISO週: 月曜始まり
		weekday := int(day.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return day.AddDate(0, 0, -(weekday - 1))
	case InsightTypeMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// AIInsight は生成済みインサイトのキャッシュエントリを表す。
// 同一の (user_id, insight_type, insight_date, context_hash) に対して
// 最新の1件のみが有効とみなされる。
type AIInsight struct {
	ID          string
	UserID      string
	InsightType InsightType
	InsightDate time.Time       // 期間バケット日付
	ContextHash string          // daily系のみ。weekly/monthlyは空文字列
	Payload     json.RawMessage // 生成結果（種別ごとに形が異なる）
	CreatedAt   time.Time
}
