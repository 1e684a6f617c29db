package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
)

// mockDailyScoreRepo はDailyScoreRepositoryのモック実装。
type mockDailyScoreRepo struct {
	listByUserAndRangeFn func(ctx context.Context, userID string, from, to time.Time) ([]model.DailyScore, error)
}

func (m *mockDailyScoreRepo) ListByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]model.DailyScore, error) {
	if m.listByUserAndRangeFn != nil {
		return m.listByUserAndRangeFn(ctx, userID, from, to)
	}
	return nil, nil
}

func (m *mockDailyScoreRepo) CountLoggedDays(ctx context.Context, userID string, from, to time.Time) (int, error) {
	return 0, nil
}

func TestDiaryHandler_ListDays_Success(t *testing.T) {
	firstMeal := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	lastMeal := time.Date(2024, 3, 10, 19, 15, 0, 0, time.UTC)

	repo := &mockDailyScoreRepo{
		listByUserAndRangeFn: func(ctx context.Context, userID string, from, to time.Time) ([]model.DailyScore, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return []model.DailyScore{
				{
					Day:             time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
					MealsCount:      3,
					SnacksCount:     1,
					KcalTotal:       1850,
					ProteinG:        82,
					FiberG:          28,
					SleepHours:      7.5,
					SleepQuality:    4,
					FirstMealAt:     &firstMeal,
					LastMealAt:      &lastMeal,
					CaffeineAfter14: true,
				},
			}, nil
		},
	}

	h := NewDiaryHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/diary/days?from=2024-03-08&to=2024-03-14", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.ListDays(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var days []diaryDayResponse
	if err := json.NewDecoder(w.Body).Decode(&days); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("len(days) = %d, want 1", len(days))
	}
	if days[0].Day != "2024-03-10" {
		t.Errorf("day = %q, want 2024-03-10", days[0].Day)
	}
	if days[0].FirstMealAt == nil || *days[0].FirstMealAt != "08:30" {
		t.Errorf("first_meal_at = %v, want 08:30", days[0].FirstMealAt)
	}
	if days[0].LastMealAt == nil || *days[0].LastMealAt != "19:15" {
		t.Errorf("last_meal_at = %v, want 19:15", days[0].LastMealAt)
	}
	if !days[0].CaffeineAfter14 {
		t.Error("caffeine_after_14 = false, want true")
	}
}

// 記録がない範囲では空の配列を返す（nullではない）。
func TestDiaryHandler_ListDays_EmptyRange(t *testing.T) {
	h := NewDiaryHandler(&mockDailyScoreRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/diary/days?from=2024-03-08&to=2024-03-14", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.ListDays(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestDiaryHandler_ListDays_InvalidRange(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"from欠落", "?to=2024-03-14"},
		{"toが不正な形式", "?from=2024-03-08&to=14-03-2024"},
		{"toがfromより前", "?from=2024-03-14&to=2024-03-08"},
		{"範囲が広すぎる", "?from=2020-01-01&to=2024-03-14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDiaryHandler(&mockDailyScoreRepo{})

			req := httptest.NewRequest(http.MethodGet, "/api/diary/days"+tt.query, nil)
			req = withUserID(req, "user-123")
			w := httptest.NewRecorder()

			h.ListDays(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			body := parseAPIErrorResponse(t, w)
			if body["code"] != "INVALID_DATE_RANGE" {
				t.Errorf("code = %q, want INVALID_DATE_RANGE", body["code"])
			}
		})
	}
}
