// Package subscription は購読状態の参照ロジックを提供する。
// 購読レコードの作成・更新は決済プロバイダのWebhook処理（本サービス外）が行い、
// ここではその結果の読み取りのみを扱う。
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
	"github.com/hitoshi/menoplan/internal/repository"
)

// Status は購読状態のAPIレスポンス。
type Status struct {
	Plan      string     `json:"plan"`
	Status    string     `json:"status"`
	IsActive  bool       `json:"is_active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Service は購読状態のサービス層。
type Service struct {
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, subRepo repository.SubscriptionRepository) *Service {
	return &Service{
		userRepo: userRepo,
		subRepo:  subRepo,
	}
}

// GetForUser はユーザーの購読状態を返す。
// 購読レコードがない場合は無料プラン相当のステータスを返す。
func (s *Service) GetForUser(ctx context.Context, userID string) (*Status, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	sub, err := s.subRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}

	if sub == nil {
		return &Status{
			Plan:   model.PlanFree,
			Status: "",
		}, nil
	}

	return &Status{
		Plan:      sub.Plan,
		Status:    sub.Status,
		IsActive:  sub.IsActive(),
		CreatedAt: &sub.CreatedAt,
		UpdatedAt: &sub.UpdatedAt,
	}, nil
}
