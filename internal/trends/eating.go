package trends

import (
	"math"

	"github.com/hitoshi/menoplan/internal/model"
)

// rhythmSpreadLimit はリズムスコアが0になる食事時刻のばらつき（分）。
const rhythmSpreadLimit = 120.0

// EatingPatternStats は食事タイミングのパターン統計。
type EatingPatternStats struct {
	AvgMealsPerDay       float64 `json:"avgMealsPerDay"`
	AvgEatingWindowHours float64 `json:"avgEatingWindowHours"`
	AvgFirstMealTime     string  `json:"avgFirstMealTime"` // HH:MM、記録がない場合は空文字列
	AvgLastMealTime      string  `json:"avgLastMealTime"`
	RhythmScore          int     `json:"rhythmScore"` // 0-100、高いほど食事時刻が安定
	SnackRatio           float64 `json:"snackRatio"`  // 全食事イベントに占める間食の割合
}

// EatingPatterns はウィンドウ内の日次記録から食事パターン統計を計算する。
// 未記録日は食事0回として分母に含める。
// 時刻系の統計は最初・最後の食事時刻が記録されている日のみを対象にする。
func EatingPatterns(days []model.DailyScore) EatingPatternStats {
	var stats EatingPatternStats
	if len(days) == 0 {
		return stats
	}

	var meals, snacks int
	var firstMinutes, lastMinutes, windows []float64

	for _, d := range days {
		meals += d.MealsCount
		snacks += d.SnacksCount

		if d.FirstMealAt != nil {
			firstMinutes = append(firstMinutes, minutesOfDay(*d.FirstMealAt))
		}
		if d.LastMealAt != nil {
			lastMinutes = append(lastMinutes, minutesOfDay(*d.LastMealAt))
		}
		if d.FirstMealAt != nil && d.LastMealAt != nil {
			windows = append(windows, (minutesOfDay(*d.LastMealAt)-minutesOfDay(*d.FirstMealAt))/60)
		}
	}

	stats.AvgMealsPerDay = round1(float64(meals) / float64(len(days)))

	if len(windows) > 0 {
		stats.AvgEatingWindowHours = round1(mean(windows))
	}
	if len(firstMinutes) > 0 {
		stats.AvgFirstMealTime = formatMinutes(mean(firstMinutes))
	}
	if len(lastMinutes) > 0 {
		stats.AvgLastMealTime = formatMinutes(mean(lastMinutes))
	}

	stats.RhythmScore = rhythmScore(firstMinutes, lastMinutes)

	if total := meals + snacks; total > 0 {
		stats.SnackRatio = round2(float64(snacks) / float64(total))
	}

	return stats
}

// rhythmScore は最初・最後の食事時刻のばらつきから0-100のスコアを導出する。
// 標準偏差0分で100、120分以上で0になる線形スケール。
func rhythmScore(firstMinutes, lastMinutes []float64) int {
	if len(firstMinutes) == 0 && len(lastMinutes) == 0 {
		return 0
	}

	var spreads []float64
	if len(firstMinutes) > 0 {
		spreads = append(spreads, stddev(firstMinutes))
	}
	if len(lastMinutes) > 0 {
		spreads = append(spreads, stddev(lastMinutes))
	}

	spread := mean(spreads)
	score := 100 * (1 - spread/rhythmSpreadLimit)
	if score < 0 {
		score = 0
	}
	return int(math.Round(score))
}
