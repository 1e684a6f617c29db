package trends

import (
	"sort"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// maxTopSymptoms は返却する症状サマリーの上限件数。
const maxTopSymptoms = 5

// SymptomSummary は1症状コードの期間サマリー。
type SymptomSummary struct {
	Code         string  `json:"code"`
	AvgIntensity float64 `json:"avgIntensity"`
	Count        int     `json:"count"`
	Trend        Trend   `json:"trend"`
	PeakSeason   string  `json:"peakSeason"` // winter, spring, summer, autumn
}

// TopSymptoms はウィンドウ内の症状ログをコードごとに集計し、
// 頻度×強度の降順で上位5件を返す。同点はコードの辞書順で安定化する。
// ウィンドウの前半・後半で平均強度を比較して推移を判定する。
func TopSymptoms(logs []model.SymptomLog, from, to time.Time) []SymptomSummary {
	type acc struct {
		count          int
		intensitySum   int
		firstHalfSum   int
		firstHalfCount int
		secondSum      int
		secondCount    int
		seasonCounts   map[string]int
	}

	mid := from.Add(to.Sub(from) / 2)

	byCode := make(map[string]*acc)
	for _, log := range logs {
		a, ok := byCode[log.Code]
		if !ok {
			a = &acc{seasonCounts: make(map[string]int)}
			byCode[log.Code] = a
		}

		a.count++
		a.intensitySum += log.Intensity
		a.seasonCounts[seasonOf(log.Day)]++

		if log.Day.Before(mid) {
			a.firstHalfSum += log.Intensity
			a.firstHalfCount++
		} else {
			a.secondSum += log.Intensity
			a.secondCount++
		}
	}

	summaries := make([]SymptomSummary, 0, len(byCode))
	for code, a := range byCode {
		summaries = append(summaries, SymptomSummary{
			Code:         code,
			AvgIntensity: round1(float64(a.intensitySum) / float64(a.count)),
			Count:        a.count,
			Trend:        intensityTrend(a.firstHalfSum, a.firstHalfCount, a.secondSum, a.secondCount),
			PeakSeason:   peakSeason(a.seasonCounts),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		scoreI := float64(summaries[i].Count) * summaries[i].AvgIntensity
		scoreJ := float64(summaries[j].Count) * summaries[j].AvgIntensity
		if scoreI != scoreJ {
			return scoreI > scoreJ
		}
		return summaries[i].Code < summaries[j].Code
	})

	if len(summaries) > maxTopSymptoms {
		summaries = summaries[:maxTopSymptoms]
	}
	return summaries
}

func intensityTrend(firstSum, firstCount, secondSum, secondCount int) Trend {
	if firstCount == 0 || secondCount == 0 {
		return TrendStable
	}

	firstAvg := float64(firstSum) / float64(firstCount)
	secondAvg := float64(secondSum) / float64(secondCount)
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

// seasonOf は日付を季節に変換する。気象季節（12月始まりの冬）を使う。
func seasonOf(day time.Time) string {
	switch day.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}

// peakSeason は記録件数が最多の季節を返す。同数は季節名の辞書順で安定化する。
func peakSeason(counts map[string]int) string {
	var best string
	var bestCount int
	for _, season := range []string{"autumn", "spring", "summer", "winter"} {
		if c := counts[season]; c > bestCount {
			best = season
			bestCount = c
		}
	}
	return best
}
