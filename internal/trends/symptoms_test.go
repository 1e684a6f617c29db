package trends

import (
	"fmt"
	"testing"

	"github.com/hitoshi/menoplan/internal/model"
)

func symptomLog(t *testing.T, date, code string, intensity int) model.SymptomLog {
	t.Helper()
	return model.SymptomLog{
		ID:        fmt.Sprintf("%s-%s", date, code),
		UserID:    "user-1",
		Day:       day(t, date),
		Code:      code,
		Intensity: intensity,
	}
}

func TestTopSymptoms_SortAndCap(t *testing.T) {
	from := day(t, "2024-03-01")
	to := day(t, "2024-03-14")

	var logs []model.SymptomLog
	// hot_flashes: 5件 × 強度4 = スコア20
	for i := 0; i < 5; i++ {
		logs = append(logs, symptomLog(t, from.AddDate(0, 0, i*2).Format("2006-01-02"), "hot_flashes", 4))
	}
	// night_sweats: 3件 × 強度3 = スコア9
	for i := 0; i < 3; i++ {
		logs = append(logs, symptomLog(t, from.AddDate(0, 0, i*3).Format("2006-01-02"), "night_sweats", 3))
	}
	// 6種類目までのノイズ: 各1件 × 強度1
	for i, code := range []string{"mood_swings", "fatigue", "headache", "brain_fog"} {
		logs = append(logs, symptomLog(t, from.AddDate(0, 0, i).Format("2006-01-02"), code, 1))
	}

	summaries := TopSymptoms(logs, from, to)

	if len(summaries) != 5 {
		t.Fatalf("len = %d, want 5（上限）", len(summaries))
	}
	if summaries[0].Code != "hot_flashes" {
		t.Errorf("先頭 = %s, want hot_flashes", summaries[0].Code)
	}
	if summaries[1].Code != "night_sweats" {
		t.Errorf("2位 = %s, want night_sweats", summaries[1].Code)
	}
	if summaries[0].Count != 5 || summaries[0].AvgIntensity != 4 {
		t.Errorf("hot_flashes = {count: %d, avg: %v}, want {5, 4}", summaries[0].Count, summaries[0].AvgIntensity)
	}

	// 同点（1件×強度1）はコードの辞書順で安定化する
	if summaries[2].Code != "brain_fog" || summaries[3].Code != "fatigue" || summaries[4].Code != "headache" {
		t.Errorf("同点の並び = %s, %s, %s, want brain_fog, fatigue, headache",
			summaries[2].Code, summaries[3].Code, summaries[4].Code)
	}
}

func TestTopSymptoms_IntensityTrend(t *testing.T) {
	from := day(t, "2024-03-01")
	to := day(t, "2024-03-14")

	logs := []model.SymptomLog{
		// 前半: 強度2、後半: 強度4 → 悪化（up）
		symptomLog(t, "2024-03-02", "hot_flashes", 2),
		symptomLog(t, "2024-03-04", "hot_flashes", 2),
		symptomLog(t, "2024-03-10", "hot_flashes", 4),
		symptomLog(t, "2024-03-12", "hot_flashes", 4),
	}

	summaries := TopSymptoms(logs, from, to)

	if len(summaries) != 1 {
		t.Fatalf("len = %d, want 1", len(summaries))
	}
	if summaries[0].Trend != TrendUp {
		t.Errorf("trend = %s, want up", summaries[0].Trend)
	}
}

func TestTopSymptoms_PeakSeason(t *testing.T) {
	from := day(t, "2024-01-01")
	to := day(t, "2024-07-31")

	logs := []model.SymptomLog{
		symptomLog(t, "2024-01-15", "hot_flashes", 3), // winter
		symptomLog(t, "2024-06-10", "hot_flashes", 3), // summer
		symptomLog(t, "2024-07-05", "hot_flashes", 3), // summer
	}

	summaries := TopSymptoms(logs, from, to)

	if len(summaries) != 1 {
		t.Fatalf("len = %d, want 1", len(summaries))
	}
	if summaries[0].PeakSeason != "summer" {
		t.Errorf("peakSeason = %s, want summer", summaries[0].PeakSeason)
	}
}

func TestTopSymptoms_Empty(t *testing.T) {
	summaries := TopSymptoms(nil, day(t, "2024-03-01"), day(t, "2024-03-07"))
	if len(summaries) != 0 {
		t.Errorf("len = %d, want 0", len(summaries))
	}
}

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-12-25", "winter"},
		{"2024-02-10", "winter"},
		{"2024-04-01", "spring"},
		{"2024-07-15", "summer"},
		{"2024-10-31", "autumn"},
	}

	for _, tt := range tests {
		if got := seasonOf(day(t, tt.date)); got != tt.want {
			t.Errorf("seasonOf(%s) = %s, want %s", tt.date, got, tt.want)
		}
	}
}
