// Package quota はユーザー単位・日単位のAI利用回数カウンタを提供する。
//
// カウンタはプロセス内シングルトンのマップではなく、注入された外部ストア
// （本番: Redis、テスト/単一ノード: インメモリ）に保持する。
// チェックしてから実行する方式の競合（複数タブ・複数端末からの同時
// リクエスト）を避けるため、インクリメントはストア側でアトミックに行う。
package quota

import (
	"context"
	"fmt"
	"time"
)

// Store はキー付きカウンタの抽象インターフェース。
type Store interface {
	// Incr はキーのカウンタをアトミックに1増やし、増加後の値を返す。
	// キーが新規作成された場合はttlを設定する。
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Peek はキーの現在値を返す。キーが存在しない場合は0を返す。
	Peek(ctx context.Context, key string) (int64, error)
}

// DayKey はユーザー・機能・ローカル日付からカウンタキーを導出する。
// 日付境界はユーザーのタイムゾーンで判定する。
func DayKey(userID, feature string, now time.Time, loc *time.Location) string {
	local := now.In(loc)
	return fmt.Sprintf("aiquota:%s:%s:%s", userID, feature, local.Format("2006-01-02"))
}

// UntilEndOfDay はローカル日付の境界（翌日0時）までの残り時間を返す。
// カウンタのTTLとして使用し、日付が変わるとカウンタは自然にリセットされる。
func UntilEndOfDay(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return tomorrow.Sub(local)
}
