package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/menoplan/internal/middleware"
	"github.com/hitoshi/menoplan/internal/model"
	"github.com/hitoshi/menoplan/internal/repository"
)

// maxDiaryRangeDays は一度に取得できる日数の上限。
const maxDiaryRangeDays = 366

// DiaryHandler は日次記録の読み取りHTTPハンドラー。
// 記録の書き込みは上流のロギング処理が行うため、読み取り専用。
type DiaryHandler struct {
	scoreRepo repository.DailyScoreRepository
}

// NewDiaryHandler はDiaryHandlerを生成する。
func NewDiaryHandler(scoreRepo repository.DailyScoreRepository) *DiaryHandler {
	return &DiaryHandler{
		scoreRepo: scoreRepo,
	}
}

// diaryDayResponse は1日分の記録のAPIレスポンス。
type diaryDayResponse struct {
	Day             string  `json:"day"` // YYYY-MM-DD
	MealsCount      int     `json:"meals_count"`
	SnacksCount     int     `json:"snacks_count"`
	KcalTotal       float64 `json:"kcal_total"`
	ProteinG        float64 `json:"protein_g"`
	FiberG          float64 `json:"fiber_g"`
	CarbsG          float64 `json:"carbs_g"`
	SleepHours      float64 `json:"sleep_hours"`
	SleepQuality    int     `json:"sleep_quality"`
	FirstMealAt     *string `json:"first_meal_at,omitempty"` // HH:MM
	LastMealAt      *string `json:"last_meal_at,omitempty"`
	CaffeineAfter14 bool    `json:"caffeine_after_14"`
}

// ListDays は[from, to]の日次記録を返す。
// GET /api/diary/days?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *DiaryHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	from, err := time.Parse(time.DateOnly, r.URL.Query().Get("from"))
	if err != nil {
		writeInvalidDateRange(w)
		return
	}
	to, err := time.Parse(time.DateOnly, r.URL.Query().Get("to"))
	if err != nil {
		writeInvalidDateRange(w)
		return
	}
	if to.Before(from) || to.Sub(from) > maxDiaryRangeDays*24*time.Hour {
		writeInvalidDateRange(w)
		return
	}

	rows, err := h.scoreRepo.ListByUserAndRange(r.Context(), userID, from, to)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	days := make([]diaryDayResponse, 0, len(rows))
	for _, row := range rows {
		days = append(days, toDiaryDayResponse(row))
	}

	writeJSON(w, http.StatusOK, days)
}

// toDiaryDayResponse はmodel.DailyScoreからAPIレスポンスに変換する。
func toDiaryDayResponse(d model.DailyScore) diaryDayResponse {
	resp := diaryDayResponse{
		Day:             d.Day.Format(time.DateOnly),
		MealsCount:      d.MealsCount,
		SnacksCount:     d.SnacksCount,
		KcalTotal:       d.KcalTotal,
		ProteinG:        d.ProteinG,
		FiberG:          d.FiberG,
		CarbsG:          d.CarbsG,
		SleepHours:      d.SleepHours,
		SleepQuality:    d.SleepQuality,
		CaffeineAfter14: d.CaffeineAfter14,
	}
	if d.FirstMealAt != nil {
		v := d.FirstMealAt.Format("15:04")
		resp.FirstMealAt = &v
	}
	if d.LastMealAt != nil {
		v := d.LastMealAt.Format("15:04")
		resp.LastMealAt = &v
	}
	return resp
}

// writeInvalidDateRange は日付範囲のバリデーションエラーレスポンスを書き込む。
func writeInvalidDateRange(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_DATE_RANGE",
		Message:  "日付範囲の指定が不正です。",
		Category: "validation",
		Action:   "from と to を YYYY-MM-DD 形式で指定してください。",
	})
}
