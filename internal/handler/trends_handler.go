package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/menoplan/internal/middleware"
	"github.com/hitoshi/menoplan/internal/trends"
)

// defaultTrendsPeriod はperiodクエリ省略時の集計期間。
const defaultTrendsPeriod = "7"

// TrendsServiceInterface はトレンドハンドラーが必要とするサービスインターフェース。
type TrendsServiceInterface interface {
	// Overview は指定期間のKPI・症状サマリー・食事パターンを返す。
	Overview(ctx context.Context, userID, period string) (*trends.Report, error)
	// Patterns は指定期間のトリガー→影響の相関を返す。
	Patterns(ctx context.Context, userID, period string) (*trends.PatternsReport, error)
}

// TrendsHandler はトレンド集計のHTTPハンドラー。
type TrendsHandler struct {
	service TrendsServiceInterface
}

// NewTrendsHandler はTrendsHandlerを生成する。
func NewTrendsHandler(service TrendsServiceInterface) *TrendsHandler {
	return &TrendsHandler{
		service: service,
	}
}

// GetTrends は指定期間のトレンドレポートを返す。
// GET /api/trends?period=7|14|28|cycle
func (h *TrendsHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = defaultTrendsPeriod
	}

	report, err := h.service.Overview(r.Context(), userID, period)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetPatterns は指定期間のトリガー→影響の相関レポートを返す。
// GET /api/trends/patterns?period=7|14|28|cycle
func (h *TrendsHandler) GetPatterns(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = defaultTrendsPeriod
	}

	report, err := h.service.Patterns(r.Context(), userID, period)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
