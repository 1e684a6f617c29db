// Package auth はベアラートークンによるセッション管理を提供する。
// トークンは不透明なランダム値で、DBにはSHA-256ダイジェストのみを保存する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/menoplan/internal/model"
	"github.com/hitoshi/menoplan/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock は現在時刻の取得関数を差し替えたServiceを返す。テスト用。
func (s *Service) WithClock(now func() time.Time) *Service {
	clone := *s
	clone.now = now
	return &clone
}

// IssueToken は指定ユーザーに新しいセッショントークンを発行する。
// 返される平文トークンはこの時点でのみ取得でき、以降はダイジェストしか残らない。
func (s *Service) IssueToken(ctx context.Context, userID string) (string, *model.Session, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return "", nil, model.NewUserNotFoundError()
	}

	token, err := generateToken()
	if err != nil {
		return "", nil, fmt.Errorf("トークンの生成に失敗しました: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: HashToken(token),
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	s.logger.Info("セッションを発行しました",
		slog.String("user_id", userID),
		slog.String("session_id", session.ID),
	)

	return token, session, nil
}

// VerifyToken はベアラートークンを検証し、対応するユーザーを返す。
// トークンが無効または期限切れの場合はSTALE_AUTHを返す。
// 期限切れセッションはこの時点で削除する。
func (s *Service) VerifyToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewStaleAuthError()
	}

	session, err := s.sessionRepo.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if session == nil {
		return nil, model.NewStaleAuthError()
	}

	if session.Expired(s.now()) {
		if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
			s.logger.Warn("期限切れセッションの削除に失敗しました",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, model.NewStaleAuthError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewStaleAuthError()
	}

	return user, nil
}

// RevokeToken はトークンに対応するセッションを破棄する。
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	session, err := s.sessionRepo.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		return fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if session == nil {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	s.logger.Info("セッションを破棄しました", slog.String("session_id", session.ID))
	return nil
}

// RevokeAllForUser は指定ユーザーの全セッションを破棄する。
// アカウント削除時に使用する。
func (s *Service) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return nil
}

// HashToken はトークンのSHA-256ダイジェストをhexで返す。
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// generateToken は暗号的に安全なランダムトークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
