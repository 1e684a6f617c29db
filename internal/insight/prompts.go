package insight

import (
	"encoding/json"
	"fmt"

	"github.com/hitoshi/menoplan/internal/model"
)

// システムプロンプト。種別ごとに期待するJSONの形を指示する。
// 出力はオランダ語（アプリの表示言語）を指定する。
var systemPrompts = map[model.InsightType]string{
	model.InsightTypeDaily: `You are a supportive perimenopause nutrition and lifestyle coach.
Based on the day's logged data, write one short, encouraging insight.
Respond in Dutch. Output JSON: {"insight": string, "focus": string}.`,

	model.InsightTypeWeekly: `You are a supportive perimenopause nutrition and lifestyle coach.
Summarize the past week's patterns and give two concrete suggestions.
Respond in Dutch. Output JSON: {"summary": string, "highlights": [string], "suggestions": [string]}.`,

	model.InsightTypeMonthly: `You are a supportive perimenopause nutrition and lifestyle coach.
Review the past month's trends and describe the overall direction.
Respond in Dutch. Output JSON: {"summary": string, "trends": [string], "suggestions": [string]}.`,

	model.InsightTypeSleep: `You are a supportive perimenopause sleep coach.
Interpret the recent sleep data in relation to logged symptoms.
Respond in Dutch. Output JSON: {"insight": string, "tips": [string]}.`,

	model.InsightTypeCycle: `You are a supportive perimenopause cycle coach.
Interpret the current cycle data and recent symptoms.
Respond in Dutch. Output JSON: {"insight": string, "phase_note": string}.`,
}

// buildPrompts はインサイト種別とコンテキストデータからプロンプトを組み立てる。
func buildPrompts(insightType model.InsightType, context map[string]any) (system, user string, err error) {
	system, ok := systemPrompts[insightType]
	if !ok {
		return "", "", fmt.Errorf("サポート外のインサイト種別です: %s", insightType)
	}

	data, err := json.Marshal(context)
	if err != nil {
		return "", "", fmt.Errorf("コンテキストのエンコードに失敗しました: %w", err)
	}

	return system, string(data), nil
}
