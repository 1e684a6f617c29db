package model

import "time"

// DailyScore は1日分の記録の集計ビューを表す。
// 食事・睡眠のロギングは上流のアプリ側で行われ、
// 本サービスはこの集計結果を読み取り専用で参照する。
type DailyScore struct {
	UserID          string
	Day             time.Time // 日付（時刻部分は常にゼロ値、タイムゾーンはユーザーローカル）
	MealsCount      int
	SnacksCount     int
	KcalTotal       float64
	ProteinG        float64
	FiberG          float64
	CarbsG          float64
	SleepHours      float64 // 0の場合は未記録
	SleepQuality    int     // 1-5、0は未記録
	FirstMealAt     *time.Time
	LastMealAt      *time.Time
	CaffeineAfter14 bool // 14時以降のカフェイン摂取があったか
}

// Logged はその日に1件以上の食事記録があるかどうかを返す。
// 未記録日も集計の分母（total）には常に含める。
func (d *DailyScore) Logged() bool {
	return d.MealsCount > 0
}

// SymptomLog は症状の記録を表す。
type SymptomLog struct {
	ID        string
	UserID    string
	Day       time.Time
	Code      string // 症状コード（hot_flashes, night_sweats, mood_swings等）
	Intensity int    // 1-5
	CreatedAt time.Time
}

// 出血量レベル
const (
	FlowNone   = "none"
	FlowLight  = "light"
	FlowMedium = "medium"
	FlowHeavy  = "heavy"
)

// BleedingLog は出血の記録を表す。周期ウィンドウの特定に使用する。
type BleedingLog struct {
	ID        string
	UserID    string
	Day       time.Time
	Flow      string // none, light, medium, heavy
	CreatedAt time.Time
}
