package model

import "time"

// User はサービス利用ユーザーを表す。
// TimezoneはIANAタイムゾーン名（例: "Europe/Amsterdam"）。
// 日次クォータと「今日」の境界判定に使用する。
type User struct {
	ID        string
	Email     string
	Name      string
	AIConsent bool    // AIによるデータ処理への同意（GDPR）
	Timezone  string  // 空の場合はUTCとして扱う
	WeightKg  float64 // 0の場合は未設定。タンパク質のg/kg換算に使用
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location はユーザーのタイムゾーンを返す。
// 未設定または不正な値の場合はUTCを返す。
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Session はユーザーのログインセッションを表す。
// TokenHashにはベアラートークンのSHA-256ダイジェスト（hex）を格納し、
// トークンそのものは保存しない。
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
