// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// セッション設定
	SessionSecret     string // セッション署名用の秘密鍵
	SessionCookieName string // セッションCookieの名前
	SessionMaxAgeDays int    // セッションCookieの有効期間（日）

	// ストア設定
	RedisURL     string // セッション・トークン・メールキュー用Redis接続URL
	DatabasePath string // ユーザーストア用SQLiteファイルのパス

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// メール設定
	FrontendBaseURL string // 確認・パスワード再設定リンクのベースURL
	ResendAPIKey    string // Resend APIキー（空の場合はログ出力のみ）
	EmailFrom       string // 送信元メールアドレス
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "5000"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// セッション設定
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "qid"),
		SessionMaxAgeDays: getEnvAsInt("SESSION_MAX_AGE_DAYS", 3650), // 10年

		// ストア設定
		RedisURL:     getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/auth.db"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		// メール設定
		FrontendBaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		ResendAPIKey:    getEnv("RESEND_API_KEY", ""),
		EmailFrom:       getEnv("EMAIL_FROM", "noreply@localhost"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	// ローカル開発ではセッション秘密鍵とメール設定は任意
	// 本番環境では厳格にチェックする想定
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in release mode")
		}
		if c.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required in release mode")
		}
		if c.EmailFrom == "" {
			return fmt.Errorf("EMAIL_FROM is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
