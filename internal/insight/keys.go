// Package insight はAIインサイトのキャッシュ参照・クォータゲート・生成を提供する。
package insight

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/menoplan/internal/model"
)

// ContextHash はコンテキストデータから決定的なハッシュを導出する。
// encoding/jsonはマップのキーをソートして出力するため、
// 同一内容のコンテキストは常に同一のハッシュになる。
func ContextHash(context map[string]any) (string, error) {
	canonical, err := json.Marshal(context)
	if err != nil {
		return "", fmt.Errorf("コンテキストのエンコードに失敗しました: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16], nil
}

// cacheKeyHash はキャッシュキーに使うコンテキストハッシュを返す。
// daily系（daily, sleep, cycle）はコンテキスト内容でキーが変わり、
// weekly/monthlyは期間バケットのみでキーが決まるため空文字列を返す。
func cacheKeyHash(insightType model.InsightType, context map[string]any) (string, error) {
	switch insightType {
	case model.InsightTypeWeekly, model.InsightTypeMonthly:
		return "", nil
	default:
		return ContextHash(context)
	}
}
