package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/menoplan/internal/middleware"
	"github.com/hitoshi/menoplan/internal/model"
)

// EntitlementServiceInterface は機能アクセス権ハンドラーが必要とするサービスインターフェース。
type EntitlementServiceInterface interface {
	// EvaluateForUser は指定ユーザーの機能アクセス権を評価して返す。
	EvaluateForUser(ctx context.Context, userID string) (model.EntitlementResult, error)
}

// EntitlementHandler は機能アクセス権のHTTPハンドラー。
type EntitlementHandler struct {
	service EntitlementServiceInterface
}

// NewEntitlementHandler はEntitlementHandlerを生成する。
func NewEntitlementHandler(service EntitlementServiceInterface) *EntitlementHandler {
	return &EntitlementHandler{
		service: service,
	}
}

// GetEntitlements は現在のユーザーの機能アクセス権を返す。
// 評価は常にサーバー側の現在時刻で行う。
// GET /api/entitlements
func (h *EntitlementHandler) GetEntitlements(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	result, err := h.service.EvaluateForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
