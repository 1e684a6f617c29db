package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/menoplan/internal/model"
	"github.com/hitoshi/menoplan/internal/repository"
)

// Service は機能アクセス権評価のサービス層。
// 購読・オーバーライド・ユーザー登録日時をリポジトリから取得し、
// サーバー側の現在時刻で評価する。課金対象機能のゲートは
// 必ずこのサービスを通す（クライアント側の評価は表示目的のみ）。
type Service struct {
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
	entRepo  repository.EntitlementRepository
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	entRepo repository.EntitlementRepository,
) *Service {
	return &Service{
		userRepo: userRepo,
		subRepo:  subRepo,
		entRepo:  entRepo,
		now:      time.Now,
	}
}

// WithClock は現在時刻の取得関数を差し替えたServiceを返す。テスト用。
func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// EvaluateForUser は指定ユーザーの機能アクセス権を評価して返す。
// ユーザーが存在しない場合はUSER_NOT_FOUNDを返す。
// 購読・オーバーライドの取得失敗時はエラーを返す（デフォルトへの
// サイレントフォールバックは課金ゲートの誤開放につながるため行わない）。
func (s *Service) EvaluateForUser(ctx context.Context, userID string) (model.EntitlementResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return model.EntitlementResult{}, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.EntitlementResult{}, model.NewUserNotFoundError()
	}

	sub, err := s.subRepo.FindByUserID(ctx, userID)
	if err != nil {
		return model.EntitlementResult{}, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}

	override, err := s.entRepo.FindByUserID(ctx, userID)
	if err != nil {
		return model.EntitlementResult{}, fmt.Errorf("機能開放オーバーライドの取得に失敗しました: %w", err)
	}

	return Evaluate(sub, override, user.CreatedAt, s.now()), nil
}
