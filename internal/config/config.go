package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis（AIクォータカウンタ用。未設定の場合はインメモリストアで代替）
	RedisAddr string

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration

	// Session
	SessionMaxAge int

	// Rate Limit（API全般、req/min/user）
	RateLimitGeneral int

	// AIクォータ（機能名ごとの1日あたり上限回数）
	AIQuotaLimits map[string]int

	// Insight
	DailyInsightTTL      time.Duration // daily系キャッシュの鮮度ウィンドウ
	InsightRetentionDays int           // daily系キャッシュ行の保持日数

	// Digest worker
	DigestInterval      time.Duration
	DigestMaxConcurrent int

	// Cleanup worker
	CleanupInterval time.Duration

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// DefaultAIQuotaLimits は機能名ごとのデフォルトの1日あたり上限回数。
// chatの50回/日が全体の観測上限で、プレミアムインサイト系はより低い値を持つ。
var DefaultAIQuotaLimits = map[string]int{
	"chat":    50,
	"daily":   12,
	"weekly":  4,
	"monthly": 2,
	"sleep":   6,
	"cycle":   6,
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "")
	cfg.OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com")
	cfg.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4o-mini")
	cfg.OpenAITimeout = getEnvDuration("OPENAI_TIMEOUT", 10*time.Second)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.DailyInsightTTL = getEnvDuration("DAILY_INSIGHT_TTL", 30*time.Minute)
	cfg.InsightRetentionDays = getEnvInt("INSIGHT_RETENTION_DAYS", 30)
	cfg.DigestInterval = getEnvDuration("DIGEST_INTERVAL", 1*time.Hour)
	cfg.DigestMaxConcurrent = getEnvInt("DIGEST_MAX_CONCURRENT", 4)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// 機能名ごとのクォータ上限。AI_QUOTA_<FEATURE> で個別に上書きできる。
	cfg.AIQuotaLimits = make(map[string]int, len(DefaultAIQuotaLimits))
	for feature, limit := range DefaultAIQuotaLimits {
		cfg.AIQuotaLimits[feature] = getEnvInt("AI_QUOTA_"+envKey(feature), limit)
	}

	return cfg, nil
}

// QuotaLimit は機能名に対応する1日あたりの上限回数を返す。
// 未定義の機能にはchatの上限をフォールバックとして適用する。
func (c *Config) QuotaLimit(feature string) int {
	if limit, ok := c.AIQuotaLimits[feature]; ok {
		return limit
	}
	return c.AIQuotaLimits["chat"]
}

func envKey(feature string) string {
	b := []byte(feature)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
