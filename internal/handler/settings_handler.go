package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/menoplan/internal/middleware"
)

// ConsentUpdaterInterface は設定ハンドラーが必要とするサービスインターフェース。
type ConsentUpdaterInterface interface {
	// UpdateAIConsent はAI処理への同意フラグを更新する。
	UpdateAIConsent(ctx context.Context, userID string, consent bool) error
}

// SettingsHandler はユーザー設定のHTTPハンドラー。
type SettingsHandler struct {
	service ConsentUpdaterInterface
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service ConsentUpdaterInterface) *SettingsHandler {
	return &SettingsHandler{
		service: service,
	}
}

// aiConsentRequest はAI同意設定リクエストのボディ。
type aiConsentRequest struct {
	AIConsent bool `json:"ai_consent"`
}

// UpdateAIConsent はAIによるデータ処理への同意を設定する。
// 同意が無効の間、インサイト生成は一切行われない。
// PUT /api/settings/ai-consent
func (h *SettingsHandler) UpdateAIConsent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req aiConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.UpdateAIConsent(r.Context(), userID, req.AIConsent); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ai_consent": req.AIConsent})
}
