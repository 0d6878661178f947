package logger

import (
	"log/slog"
	"os"
)

const envDev = "dev"

// SetupはGO_ENVに応じたsloggerを返す。devはテキスト/デバッグ、それ以外はJSON/情報。
func Setup(env string) *slog.Logger {
	if env == envDev {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Errはエラー用の属性ショートカット
func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}
