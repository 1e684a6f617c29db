package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/menoplan/internal/insight"
	"github.com/hitoshi/menoplan/internal/middleware"
	"github.com/hitoshi/menoplan/internal/model"
)

// InsightServiceInterface はインサイトハンドラーが必要とするサービスインターフェース。
type InsightServiceInterface interface {
	// Get はインサイトを取得する。キャッシュがあればそれを、なければ新規生成して返す。
	Get(ctx context.Context, req insight.Request) (*insight.Result, error)
}

// InsightHandler はAIインサイトのHTTPハンドラー。
type InsightHandler struct {
	service InsightServiceInterface
}

// NewInsightHandler はInsightHandlerを生成する。
func NewInsightHandler(service InsightServiceInterface) *InsightHandler {
	return &InsightHandler{
		service: service,
	}
}

// insightRequest はインサイト生成リクエストのボディ。
// contextには生成の入力となる集計済みデータを渡す。
type insightRequest struct {
	Context map[string]any `json:"context"`
}

// insightResponse はインサイト取得のAPIレスポンス。
type insightResponse struct {
	Insight     json.RawMessage `json:"insight"`
	Cached      bool            `json:"cached"`
	InsightDate string          `json:"insight_date"` // YYYY-MM-DD（期間バケットの開始日）
	Remaining   int             `json:"remaining"`    // 当日の残り利用可能回数
}

// GenerateInsight は指定種別のインサイトを取得または生成する。
// POST /api/insights/{type}
func (h *InsightHandler) GenerateInsight(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	insightType, ok := model.ParseInsightType(chi.URLParam(r, "type"))
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidInsightTypeError(chi.URLParam(r, "type")))
		return
	}

	var req insightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.Context == nil {
		req.Context = map[string]any{}
	}

	result, err := h.service.Get(r.Context(), insight.Request{
		UserID:  userID,
		Type:    insightType,
		Context: req.Context,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, insightResponse{
		Insight:     result.Payload,
		Cached:      result.Cached,
		InsightDate: result.InsightDate.Format(time.DateOnly),
		Remaining:   result.Remaining,
	})
}
