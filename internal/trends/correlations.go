package trends

import (
	"github.com/hitoshi/menoplan/internal/model"
)

// Strength は相関の強さを表す。
type Strength string

const (
	StrengthLow      Strength = "low"
	StrengthModerate Strength = "moderate"
	StrengthHigh     Strength = "high"
)

// 相関の強さの判定閾値。|平均差| / 母標準偏差 に対して適用する。
// 閾値未満の差は相関として報告しない。単調性: 差が大きいほど強い階級になる。
const (
	StrengthLowThreshold      = 0.15
	StrengthModerateThreshold = 0.4
	StrengthHighThreshold     = 0.8
)

// minGroupDays は比較の各グループに必要な最低日数。
const minGroupDays = 2

// Correlation はトリガー条件と指標への影響の組を表す。
type Correlation struct {
	Trigger     string   `json:"trigger"`
	Effect      string   `json:"effect"`
	Strength    Strength `json:"strength"`
	Description string   `json:"description"`
}

// correlationRule はトリガー述語と比較する指標の定義。
// descriptionはアプリの表示言語（オランダ語）で記述する。
type correlationRule struct {
	trigger   string
	effect    string
	predicate func(model.DailyScore) bool
	metric    func(model.DailyScore) (float64, bool)
	describe  func(strength Strength) string
}

var correlationRules = []correlationRule{
	{
		trigger: "late_last_meal",
		effect:  "sleep_quality",
		predicate: func(d model.DailyScore) bool {
			return d.LastMealAt != nil && minutesOfDay(*d.LastMealAt) >= 21*60
		},
		metric: sleepQualityMetric,
		describe: func(s Strength) string {
			return "Op dagen met een late laatste maaltijd (na 21:00) wijkt je slaapkwaliteit af van de andere dagen."
		},
	},
	{
		trigger: "caffeine_after_14",
		effect:  "sleep_hours",
		predicate: func(d model.DailyScore) bool {
			return d.CaffeineAfter14
		},
		metric: sleepHoursMetric,
		describe: func(s Strength) string {
			return "Op dagen met cafeïne na 14:00 wijkt je slaapduur af van de andere dagen."
		},
	},
	{
		trigger: "low_fiber",
		effect:  "sleep_quality",
		predicate: func(d model.DailyScore) bool {
			return d.Logged() && d.FiberG < 25
		},
		metric: sleepQualityMetric,
		describe: func(s Strength) string {
			return "Op dagen met weinig vezels (< 25 g) wijkt je slaapkwaliteit af van de andere dagen."
		},
	},
	{
		trigger: "high_carbs_evening",
		effect:  "sleep_hours",
		predicate: func(d model.DailyScore) bool {
			return d.Logged() && d.CarbsG > 250
		},
		metric: sleepHoursMetric,
		describe: func(s Strength) string {
			return "Op dagen met veel koolhydraten wijkt je slaapduur af van de andere dagen."
		},
	},
}

func sleepQualityMetric(d model.DailyScore) (float64, bool) {
	return float64(d.SleepQuality), d.SleepQuality > 0
}

func sleepHoursMetric(d model.DailyScore) (float64, bool) {
	return d.SleepHours, d.SleepHours > 0
}

// ComputeCorrelations はトリガー条件に一致する日と一致しない日の指標平均を比較し、
// 差の大きさが閾値を超えた組を強さ付きで返す。
// 各グループに最低2日分の指標記録がない組はスキップする。
func ComputeCorrelations(days []model.DailyScore) []Correlation {
	correlations := []Correlation{}

	for _, rule := range correlationRules {
		var matching, rest, all []float64
		for _, d := range days {
			v, ok := rule.metric(d)
			if !ok {
				continue
			}
			all = append(all, v)
			if rule.predicate(d) {
				matching = append(matching, v)
			} else {
				rest = append(rest, v)
			}
		}

		if len(matching) < minGroupDays || len(rest) < minGroupDays {
			continue
		}

		spread := stddev(all)
		if spread == 0 {
			continue
		}

		delta := mean(matching) - mean(rest)
		strength, ok := classifyStrength(delta / spread)
		if !ok {
			continue
		}

		correlations = append(correlations, Correlation{
			Trigger:     rule.trigger,
			Effect:      rule.effect,
			Strength:    strength,
			Description: rule.describe(strength),
		})
	}

	return correlations
}

// classifyStrength は正規化済みの差を強さの階級に変換する。
// 低閾値未満の差は報告対象外としてfalseを返す。
func classifyStrength(normalizedDelta float64) (Strength, bool) {
	abs := normalizedDelta
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= StrengthHighThreshold:
		return StrengthHigh, true
	case abs >= StrengthModerateThreshold:
		return StrengthModerate, true
	case abs >= StrengthLowThreshold:
		return StrengthLow, true
	default:
		return "", false
	}
}
