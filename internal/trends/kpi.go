// Package trends は日次記録のウィンドウからKPI・相関・症状サマリーを導出する。
// すべての計算は入力のみに依存する純粋関数で、ウォールクロックは参照しない。
// ウィンドウの選択（期間、今日の判定）はサービス層が行う。
package trends

import (
	"fmt"
	"math"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// Trend は指標の推移方向を表す。
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// trendThreshold は前半平均に対する後半平均の相対変化の判定閾値。
const trendThreshold = 0.05

// Profile はKPI計算に使うユーザープロフィール。
type Profile struct {
	WeightKg float64 // 0の場合は体重あたりの指標を省略する
}

// DataCompleteness は記録の網羅度。未記録日も必ずtotalに含める。
type DataCompleteness struct {
	Logged  int      `json:"logged"`
	Total   int      `json:"total"`
	Missing []string `json:"missing"` // 未記録日の日付（YYYY-MM-DD）
}

// SleepAvg は睡眠時間の平均と推移。
type SleepAvg struct {
	Hours float64 `json:"hours"`
	Trend Trend   `json:"trend"`
}

// EatingMomentsAvg は1日あたりの食事回数（間食含む）の平均。
// Flagは平均が3回を下回る場合にtrueになる。
type EatingMomentsAvg struct {
	Count float64 `json:"count"`
	Flag  bool    `json:"flag"`
}

// CaloriesAvg は記録日のカロリー摂取の範囲。
type CaloriesAvg struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProteinAvg はタンパク質摂取の平均。体重が既知の場合はkgあたりも返す。
type ProteinAvg struct {
	Grams float64  `json:"grams"`
	PerKg *float64 `json:"perKg,omitempty"`
}

// FiberAvg は食物繊維摂取の平均と推移。
type FiberAvg struct {
	Grams float64 `json:"grams"`
	Trend Trend   `json:"trend"`
}

// LastMealAvg は最終食事時刻の平均。
type LastMealAvg struct {
	Time string `json:"time"` // HH:MM、記録がない場合は空文字列
}

// CaffeineDays は14時以降にカフェインを摂取した日数。
type CaffeineDays struct {
	Days int `json:"days"`
}

// KPIs は期間ウィンドウ全体のKPIセット。
type KPIs struct {
	DataCompleteness DataCompleteness `json:"dataCompleteness"`
	SleepAvg         SleepAvg         `json:"sleepAvg"`
	EatingMomentsAvg EatingMomentsAvg `json:"eatingMomentsAvg"`
	CaloriesAvg      CaloriesAvg      `json:"caloriesAvg"`
	ProteinAvg       ProteinAvg       `json:"proteinAvg"`
	FiberAvg         FiberAvg         `json:"fiberAvg"`
	LastMealAvg      LastMealAvg      `json:"lastMealAvg"`
	CaffeineAfter14  CaffeineDays     `json:"caffeineAfter14"`
}

// ComputeKPIs はウィンドウ内の日次記録からKPIを計算する。
// daysはウィンドウの全日分（未記録日はゼロ値の行）を日付昇順で渡す。
// 食事由来の平均は未記録日を0として分母に含める。
// 睡眠は記録がある日のみを対象にする（0は未記録を意味するため）。
func ComputeKPIs(days []model.DailyScore, profile Profile) KPIs {
	var kpis KPIs

	kpis.DataCompleteness = computeCompleteness(days)
	kpis.SleepAvg = computeSleepAvg(days)
	kpis.EatingMomentsAvg = computeEatingMoments(days)
	kpis.CaloriesAvg = computeCaloriesRange(days)
	kpis.ProteinAvg = computeProteinAvg(days, profile)
	kpis.FiberAvg = computeFiberAvg(days)
	kpis.LastMealAvg = computeLastMealAvg(days)
	kpis.CaffeineAfter14 = computeCaffeineDays(days)

	return kpis
}

func computeCompleteness(days []model.DailyScore) DataCompleteness {
	c := DataCompleteness{
		Total:   len(days),
		Missing: []string{},
	}

	for _, d := range days {
		if d.Logged() {
			c.Logged++
		} else {
			c.Missing = append(c.Missing, d.Day.Format("2006-01-02"))
		}
	}

	return c
}

func computeSleepAvg(days []model.DailyScore) SleepAvg {
	var values []float64
	for _, d := range days {
		if d.SleepHours > 0 {
			values = append(values, d.SleepHours)
		}
	}
	if len(values) == 0 {
		return SleepAvg{Trend: TrendStable}
	}

	recorded := func(d model.DailyScore) (float64, bool) {
		return d.SleepHours, d.SleepHours > 0
	}

	return SleepAvg{
		Hours: round1(mean(values)),
		Trend: halvesTrend(days, recorded),
	}
}

func computeEatingMoments(days []model.DailyScore) EatingMomentsAvg {
	if len(days) == 0 {
		return EatingMomentsAvg{}
	}

	var total int
	for _, d := range days {
		total += d.MealsCount + d.SnacksCount
	}
	avg := round1(float64(total) / float64(len(days)))

	return EatingMomentsAvg{
		Count: avg,
		Flag:  avg < 3,
	}
}

func computeCaloriesRange(days []model.DailyScore) CaloriesAvg {
	var r CaloriesAvg
	first := true
	for _, d := range days {
		if !d.Logged() {
			continue
		}
		if first || d.KcalTotal < r.Min {
			r.Min = d.KcalTotal
		}
		if first || d.KcalTotal > r.Max {
			r.Max = d.KcalTotal
		}
		first = false
	}
	r.Min = round1(r.Min)
	r.Max = round1(r.Max)
	return r
}

func computeProteinAvg(days []model.DailyScore, profile Profile) ProteinAvg {
	if len(days) == 0 {
		return ProteinAvg{}
	}

	var sum float64
	for _, d := range days {
		sum += d.ProteinG
	}
	grams := round1(sum / float64(len(days)))

	p := ProteinAvg{Grams: grams}
	if profile.WeightKg > 0 {
		perKg := round2(grams / profile.WeightKg)
		p.PerKg = &perKg
	}
	return p
}

func computeFiberAvg(days []model.DailyScore) FiberAvg {
	if len(days) == 0 {
		return FiberAvg{Trend: TrendStable}
	}

	var sum float64
	for _, d := range days {
		sum += d.FiberG
	}

	recorded := func(d model.DailyScore) (float64, bool) {
		return d.FiberG, d.Logged()
	}

	return FiberAvg{
		Grams: round1(sum / float64(len(days))),
		Trend: halvesTrend(days, recorded),
	}
}

func computeLastMealAvg(days []model.DailyScore) LastMealAvg {
	var minutes []float64
	for _, d := range days {
		if d.LastMealAt != nil {
			minutes = append(minutes, minutesOfDay(*d.LastMealAt))
		}
	}
	if len(minutes) == 0 {
		return LastMealAvg{}
	}
	return LastMealAvg{Time: formatMinutes(mean(minutes))}
}

func computeCaffeineDays(days []model.DailyScore) CaffeineDays {
	var c CaffeineDays
	for _, d := range days {
		if d.CaffeineAfter14 {
			c.Days++
		}
	}
	return c
}

// halvesTrend はウィンドウを前半・後半に分け、記録のある値の平均を比較して
// 推移方向を判定する。相対変化が±5%以内はstable。
func halvesTrend(days []model.DailyScore, value func(model.DailyScore) (float64, bool)) Trend {
	mid := len(days) / 2

	collect := func(part []model.DailyScore) []float64 {
		var vs []float64
		for _, d := range part {
			if v, ok := value(d); ok {
				vs = append(vs, v)
			}
		}
		return vs
	}

	first := collect(days[:mid])
	second := collect(days[mid:])
	if len(first) == 0 || len(second) == 0 {
		return TrendStable
	}

	firstAvg := mean(first)
	secondAvg := mean(second)
	if firstAvg == 0 {
		return TrendStable
	}

	change := (secondAvg - firstAvg) / firstAvg
	switch {
	case change > trendThreshold:
		return TrendUp
	case change < -trendThreshold:
		return TrendDown
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev は母標準偏差を返す。
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}

// minutesOfDay は時刻を0時からの経過分に変換する。
func minutesOfDay(t time.Time) float64 {
	return float64(t.Hour()*60 + t.Minute())
}

// formatMinutes は0時からの経過分をHH:MM形式に整形する。
func formatMinutes(minutes float64) string {
	total := int(math.Round(minutes))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
