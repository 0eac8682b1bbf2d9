// Package logger はJSON構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Option はロガーの生成オプション。
type Option func(*options)

type options struct {
	level   slog.Level
	command string
}

// WithDebug はtrueの場合にDebugレベルのログを出力する。
func WithDebug(debug bool) Option {
	return func(o *options) {
		if debug {
			o.level = slog.LevelDebug
		} else {
			o.level = slog.LevelInfo
		}
	}
}

// WithCommand は全ログに実行中のサブコマンド名（serve, worker など）を付与する。
func WithCommand(command string) Option {
	return func(o *options) {
		o.command = command
	}
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 既定のレベルはInfo。
func Setup(w io.Writer, opts ...Option) *slog.Logger {
	o := options{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&o)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: o.level,
	})
	l := slog.New(handler)
	if o.command != "" {
		l = l.With(slog.String("command", o.command))
	}
	return l
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定し、そのロガーを返す。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer, opts ...Option) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	l := Setup(w, opts...)
	slog.SetDefault(l)
	return l
}
