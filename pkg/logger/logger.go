// Package logger はプロセス起動時に一度だけ構築する構造化ロガーを提供します。
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options はロガーの構築に使う設定です。
type Options struct {
	Level  string
	Dir    string    // 空の場合はファイルに出力しない
	Stderr io.Writer // nil の場合は os.Stderr
	Now    func() time.Time
}

// New はコンソールとログファイルの両方に出力するロガーを返します。
// 返されたクローズ関数はプロセス終了時に一度だけ呼び出してください。
func New(opts Options) (*slog.Logger, func() error, error) {
	console := opts.Stderr
	if console == nil {
		console = os.Stderr
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	out := console
	closeFn := func() error { return nil }

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("ログディレクトリの作成に失敗しました: %w", err)
		}
		f, err := os.OpenFile(FilePath(opts.Dir, now()), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("ログファイルを開けませんでした: %w", err)
		}
		out = io.MultiWriter(f, console)
		closeFn = f.Close
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return slog.New(handler), closeFn, nil
}

// FilePath は logs/app_YYYYMMDD_HHMMSS.log 形式のログファイルパスを返します。
func FilePath(dir string, t time.Time) string {
	return filepath.Join(dir, "app_"+t.Format("20060102_150405")+".log")
}

// ParseLevel はログレベル文字列を slog.Level に変換します。不明な値は Info として扱います。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
