package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/menoplan/internal/middleware"
	"github.com/hitoshi/menoplan/internal/subscription"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// GetForUser はユーザーの購読状態を返す。購読レコードがない場合は無料プラン相当を返す。
	GetForUser(ctx context.Context, userID string) (*subscription.Status, error)
}

// SubscriptionHandler は購読状態のHTTPハンドラー。
// 決済処理自体は外部の決済プロバイダに委譲しており、ここは読み取りのみ。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
	}
}

// GetSubscription は現在のユーザーの購読状態を返す。
// GET /api/subscription
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	status, err := h.service.GetForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
