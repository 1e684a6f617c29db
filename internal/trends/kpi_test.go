package trends

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

func day(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("日付の解析に失敗: %v", err)
	}
	return d
}

func timePtr(t *testing.T, date, clock string) *time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		t.Fatalf("時刻の解析に失敗: %v", err)
	}
	return &v
}

// 7日中5日記録・2日未記録のウィンドウで logged=5, total=7 になる。
// 未記録日は分母から落とさない。
func TestComputeKPIs_CompletenessAccounting(t *testing.T) {
	var days []model.DailyScore
	for i := 0; i < 7; i++ {
		d := model.DailyScore{Day: day(t, "2024-03-01").AddDate(0, 0, i)}
		if i != 2 && i != 5 {
			d.MealsCount = 3
			d.KcalTotal = 1800
		}
		days = append(days, d)
	}

	kpis := ComputeKPIs(days, Profile{})

	if kpis.DataCompleteness.Logged != 5 {
		t.Errorf("logged = %d, want 5", kpis.DataCompleteness.Logged)
	}
	if kpis.DataCompleteness.Total != 7 {
		t.Errorf("total = %d, want 7", kpis.DataCompleteness.Total)
	}
	wantMissing := []string{"2024-03-03", "2024-03-06"}
	if len(kpis.DataCompleteness.Missing) != len(wantMissing) {
		t.Fatalf("missing = %v, want %v", kpis.DataCompleteness.Missing, wantMissing)
	}
	for i, want := range wantMissing {
		if kpis.DataCompleteness.Missing[i] != want {
			t.Errorf("missing[%d] = %s, want %s", i, kpis.DataCompleteness.Missing[i], want)
		}
	}
}

// 固定の14日ウィンドウに対して2回実行した結果はバイト単位で一致する。
func TestComputeKPIs_Deterministic(t *testing.T) {
	var days []model.DailyScore
	for i := 0; i < 14; i++ {
		date := day(t, "2024-03-01").AddDate(0, 0, i)
		days = append(days, model.DailyScore{
			Day:             date,
			MealsCount:      3,
			SnacksCount:     i % 3,
			KcalTotal:       1700 + float64(i)*25,
			ProteinG:        60 + float64(i%4)*5,
			FiberG:          20 + float64(i%5),
			CarbsG:          200 + float64(i)*3,
			SleepHours:      6.5 + float64(i%3)*0.5,
			SleepQuality:    3 + i%3,
			FirstMealAt:     timePtr(t, date.Format("2006-01-02"), "08:30"),
			LastMealAt:      timePtr(t, date.Format("2006-01-02"), "19:45"),
			CaffeineAfter14: i%4 == 0,
		})
	}
	profile := Profile{WeightKg: 68}

	first, err := json.Marshal(ComputeKPIs(days, profile))
	if err != nil {
		t.Fatalf("エンコードに失敗: %v", err)
	}
	second, err := json.Marshal(ComputeKPIs(days, profile))
	if err != nil {
		t.Fatalf("エンコードに失敗: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("同一入力で出力が一致しない:\n%s\n%s", first, second)
	}
}

func TestComputeKPIs_SleepTrend(t *testing.T) {
	var days []model.DailyScore
	for i := 0; i < 14; i++ {
		hours := 6.0
		if i >= 7 {
			hours = 7.5 // 後半で改善
		}
		days = append(days, model.DailyScore{
			Day:        day(t, "2024-03-01").AddDate(0, 0, i),
			MealsCount: 3,
			SleepHours: hours,
		})
	}

	kpis := ComputeKPIs(days, Profile{})

	if kpis.SleepAvg.Trend != TrendUp {
		t.Errorf("sleep trend = %s, want up", kpis.SleepAvg.Trend)
	}
	if kpis.SleepAvg.Hours != 6.8 {
		t.Errorf("sleep hours = %v, want 6.8", kpis.SleepAvg.Hours)
	}
}

func TestComputeKPIs_ProteinPerKg(t *testing.T) {
	days := []model.DailyScore{
		{Day: day(t, "2024-03-01"), MealsCount: 3, ProteinG: 70},
		{Day: day(t, "2024-03-02"), MealsCount: 3, ProteinG: 90},
	}

	withWeight := ComputeKPIs(days, Profile{WeightKg: 80})
	if withWeight.ProteinAvg.Grams != 80 {
		t.Errorf("protein grams = %v, want 80", withWeight.ProteinAvg.Grams)
	}
	if withWeight.ProteinAvg.PerKg == nil || *withWeight.ProteinAvg.PerKg != 1 {
		t.Errorf("protein perKg = %v, want 1", withWeight.ProteinAvg.PerKg)
	}

	noWeight := ComputeKPIs(days, Profile{})
	if noWeight.ProteinAvg.PerKg != nil {
		t.Error("体重未設定でperKgが返された")
	}
}

func TestComputeKPIs_CaloriesRangeAndCaffeine(t *testing.T) {
	days := []model.DailyScore{
		{Day: day(t, "2024-03-01"), MealsCount: 3, KcalTotal: 1650, CaffeineAfter14: true},
		{Day: day(t, "2024-03-02"), MealsCount: 2, KcalTotal: 2100},
		{Day: day(t, "2024-03-03")}, // 未記録日はレンジに含めない
		{Day: day(t, "2024-03-04"), MealsCount: 3, KcalTotal: 1800, CaffeineAfter14: true},
	}

	kpis := ComputeKPIs(days, Profile{})

	if kpis.CaloriesAvg.Min != 1650 || kpis.CaloriesAvg.Max != 2100 {
		t.Errorf("calories = {%v, %v}, want {1650, 2100}", kpis.CaloriesAvg.Min, kpis.CaloriesAvg.Max)
	}
	if kpis.CaffeineAfter14.Days != 2 {
		t.Errorf("caffeine days = %d, want 2", kpis.CaffeineAfter14.Days)
	}
}

func TestComputeKPIs_LastMealAvg(t *testing.T) {
	days := []model.DailyScore{
		{Day: day(t, "2024-03-01"), MealsCount: 3, LastMealAt: timePtr(t, "2024-03-01", "19:00")},
		{Day: day(t, "2024-03-02"), MealsCount: 3, LastMealAt: timePtr(t, "2024-03-02", "21:00")},
	}

	kpis := ComputeKPIs(days, Profile{})

	if kpis.LastMealAvg.Time != "20:00" {
		t.Errorf("lastMealAvg = %s, want 20:00", kpis.LastMealAvg.Time)
	}
}

func TestComputeKPIs_EmptyWindow(t *testing.T) {
	kpis := ComputeKPIs(nil, Profile{})

	if kpis.DataCompleteness.Total != 0 || kpis.DataCompleteness.Logged != 0 {
		t.Errorf("completeness = %+v, want ゼロ値", kpis.DataCompleteness)
	}
	if kpis.SleepAvg.Trend != TrendStable {
		t.Errorf("sleep trend = %s, want stable", kpis.SleepAvg.Trend)
	}
	if kpis.LastMealAvg.Time != "" {
		t.Errorf("lastMealAvg = %q, want 空文字列", kpis.LastMealAvg.Time)
	}
}
