// Package logging はzapロガーの生成を扱う
// 標準出力はフックのプロトコルに使うため、診断ログは必ずファイルか標準エラーに出す
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/y-hirakaw/cchook/internal/utils"
)

// HookLogFile はフック実行時の診断ログファイル名
const HookLogFile = "cchook.log"

// Options はロガー生成のオプション
type Options struct {
	// Level は debug, info, warn, error のいずれか
	Level string
	// Verbose が true の場合は Level に関わらず debug にする
	Verbose bool
	// File が空でなければJSON形式でファイルに追記し、空なら標準エラーにコンソール形式で出す
	File string
}

// ParseLevel はレベル文字列をzapのレベルに変換する（不明な値は info）
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// New はロガーを作成する
// ファイルを開けない場合はNopロガーを返し、フックが診断ログのせいで失敗しないようにする
func New(opts Options) *zap.Logger {
	level := ParseLevel(opts.Level)
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	var config zap.Config
	if opts.File != "" {
		if err := utils.EnsureDirectory(filepath.Dir(opts.File)); err != nil {
			return zap.NewNop()
		}
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{opts.File}
		config.ErrorOutputPaths = []string{opts.File}
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
		config.DisableStacktrace = true
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.Sampling = nil

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ForHook はフック用にログディレクトリ内のファイルへ書くロガーを作成する
func ForHook(logDir, level string, verbose bool) *zap.Logger {
	return New(Options{
		Level:   level,
		Verbose: verbose,
		File:    filepath.Join(logDir, HookLogFile),
	}).With(zap.Int("pid", os.Getpid()))
}

// ForCLI は対話コマンド用に標準エラーへ書くロガーを作成する
// 通常は warn 以上のみを出力する
func ForCLI(level string, verbose bool) *zap.Logger {
	if !verbose && ParseLevel(level) < zapcore.WarnLevel {
		level = "warn"
	}
	return New(Options{Level: level, Verbose: verbose})
}
