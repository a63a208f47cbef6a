// Package logger はJSON構造化ログの出力先とレベルを構成する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// ServiceName はすべてのログに付与するserviceフィールドの値。
const ServiceName = "podsearch"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// levelより低いレベルのログは出力しない。
func Setup(w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", ServiceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定し、そのロガーを返す。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer, level slog.Leveler) *slog.Logger {
	logger := Setup(w, level)
	slog.SetDefault(logger)
	return logger
}
