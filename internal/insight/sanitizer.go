package insight

import (
	"encoding/json"
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// payloadSanitizer はモデル出力の文字列フィールドからマークアップを除去する。
// LLMの出力は信頼できない入力として扱い、キャッシュへの保存前に
// scriptタグ等を含むHTMLをすべて剥がす。
type payloadSanitizer struct {
	policy *bluemonday.Policy
}

// newPayloadSanitizer はpayloadSanitizerを生成する。
// StrictPolicyは全タグを除去し、プレーンテキストのみを残す。
func newPayloadSanitizer() *payloadSanitizer {
	return &payloadSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はJSONペイロード内のすべての文字列値からマークアップを除去する。
// 構造（ネストしたオブジェクト・配列）はそのまま維持する。
// 解析できないペイロードは変更せずに返す。
func (s *payloadSanitizer) Sanitize(payload json.RawMessage) json.RawMessage {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return payload
	}

	cleaned := s.walk(decoded)

	out, err := json.Marshal(cleaned)
	if err != nil {
		return payload
	}
	return out
}

// walk は値を再帰的に辿り、文字列をサニタイズする。
func (s *payloadSanitizer) walk(v any) any {
	switch val := v.(type) {
	case string:
		// bluemondayはエンティティをエスケープするため、
		// プレーンテキストとして保存する前に戻す
		return html.UnescapeString(s.policy.Sanitize(val))
	case map[string]any:
		for k, item := range val {
			val[k] = s.walk(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = s.walk(item)
		}
		return val
	default:
		return v
	}
}
