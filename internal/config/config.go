package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Configはアプリ全体の設定
type Config struct {
	AuthPort    string // Authサービスのポート（8083）
	GatewayPort string // Gatewayのポート（8080）
	CentralPort string // Centralサービスのポート（8081）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）

	JWTSecret string // JWT署名シークレット

	RedisAddr     string // ブラックリスト用Redis（localhost:6379）
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string // Kafkaブローカー（カンマ区切り）

	ServiceCode string // X-Gateway-For の共有コード

	AuthServiceURL    string // Gateway→Auth の転送先
	CentralServiceURL string // Gateway→Central の転送先

	SMTPHost     string // 空ならメールはログ出力のみ
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	ProcessTimeoutSec int // テキスト処理の待機上限（秒）

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		AuthPort:    getenv("AUTH_PORT", "8083"),
		GatewayPort: getenv("GATEWAY_PORT", "8080"),
		CentralPort: getenv("CENTRAL_PORT", "8081"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     atoiOr("POSTGRES_PORT", 5432),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       atoiOr("REDIS_DB", 0),

		KafkaBrokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),

		ServiceCode: os.Getenv("SERVICE_CODE"),

		AuthServiceURL:    getenv("AUTH_SERVICE_URL", "http://localhost:8083"),
		CentralServiceURL: getenv("CENTRAL_SERVICE_URL", "http://localhost:8081"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     atoiOr("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getenv("MAIL_FROM", "confirmation@localhost"),

		ProcessTimeoutSec: atoiOr("PROCESS_TIMEOUT_SEC", 60),

		GoEnv: os.Getenv("GO_ENV"),
	}

	//必須チェック（DB設定はDBを開くバイナリだけが要求する）
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ServiceCode == "" {
		return Config{}, fmt.Errorf("SERVICE_CODE is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	return cfg, nil
}

// RequirePostgresはDBを開くサービス（Auth / Central）の必須チェック。
// GatewayはDBに触らないのでこれを呼ばない。
func (c Config) RequirePostgres() error {
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	return nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
