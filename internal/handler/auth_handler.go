package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/menoplan/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// VerifyToken はベアラートークンを検証し、対応するユーザーを返す。
	VerifyToken(ctx context.Context, token string) (*model.User, error)
	// RevokeToken はトークンに対応するセッションを破棄する。
	RevokeToken(ctx context.Context, token string) error
}

// AuthHandler は認証関連のHTTPハンドラー。
// セッションの発行自体は運用側のトークン発行フロー（tokenサブコマンド）が行う。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// meResponse は現在のユーザー情報のAPIレスポンス。
type meResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AIConsent bool    `json:"ai_consent"`
	Timezone  string  `json:"timezone"`
	WeightKg  float64 `json:"weight_kg,omitempty"`
}

// Me は現在のユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := requestToken(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	user, err := h.service.VerifyToken(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AIConsent: user.AIConsent,
		Timezone:  user.Timezone,
		WeightKg:  user.WeightKg,
	})
}

// Logout は現在のセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := requestToken(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.service.RevokeToken(r.Context(), token); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requestToken はAuthorizationヘッダーからベアラートークンを取り出す。
// 認証ミドルウェアの外側のルート（/auth/*）で使用する。
func requestToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
