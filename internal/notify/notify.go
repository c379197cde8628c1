// Package notify はデスクトップ通知の送信と通知ログの記録を行う
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/pkg/types"
)

// DefaultSound はmacOS通知のデフォルトサウンド
const DefaultSound = "Glass"

// DefaultTimeout は通知コマンド1回あたりのタイムアウト
const DefaultTimeout = 5 * time.Second

// Notification はデスクトップ通知
type Notification struct {
	Title   string
	Message string
	Sound   string
	Urgent  bool
}

// Runner は外部コマンドを実行する
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// Recorder は送信した通知をログに記録する
type Recorder interface {
	RecordNotification(record *types.NotificationRecord) error
}

// ExecRunner は os/exec で外部コマンドを実行するRunner
type ExecRunner struct{}

// Run はコマンドを実行し、失敗時は出力を含むエラーを返す
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s の実行に失敗: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Notifier はプラットフォームに応じて通知を送信する
type Notifier struct {
	runner   Runner
	recorder Recorder
	logger   *zap.Logger
	goos     string
	enabled  bool
	sound    string
	timeout  time.Duration
	now      func() time.Time
}

// Option はNotifierのオプション
type Option func(*Notifier)

// WithRunner はコマンド実行方法を差し替える
func WithRunner(runner Runner) Option {
	return func(n *Notifier) { n.runner = runner }
}

// WithRecorder は通知ログの記録先を設定する
func WithRecorder(recorder Recorder) Option {
	return func(n *Notifier) { n.recorder = recorder }
}

// WithLogger は診断ログを設定する
func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// WithGOOS はプラットフォームを差し替える
func WithGOOS(goos string) Option {
	return func(n *Notifier) { n.goos = goos }
}

// WithEnabled はデスクトップ通知の有効・無効を設定する（無効でもログは記録する）
func WithEnabled(enabled bool) Option {
	return func(n *Notifier) { n.enabled = enabled }
}

// WithDefaultSound はサウンド未指定時のサウンドを設定する
func WithDefaultSound(sound string) Option {
	return func(n *Notifier) {
		if sound != "" {
			n.sound = sound
		}
	}
}

// WithTimeout は通知コマンドのタイムアウトを設定する
func WithTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.timeout = timeout
		}
	}
}

// WithClock は通知ログの時刻取得を差し替える
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// New はNotifierを作成する
func New(opts ...Option) *Notifier {
	n := &Notifier{
		runner:  ExecRunner{},
		logger:  zap.NewNop(),
		goos:    runtime.GOOS,
		enabled: true,
		sound:   DefaultSound,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send は通知を記録し、有効であればデスクトップ通知を送信する
// 通知コマンドが存在しない環境ではエラーにしない
func (n *Notifier) Send(ctx context.Context, notification Notification) error {
	if notification.Sound == "" {
		notification.Sound = n.sound
	}

	if n.recorder != nil {
		record := &types.NotificationRecord{
			Timestamp: n.now(),
			Title:     notification.Title,
			Message:   notification.Message,
			Urgent:    notification.Urgent,
			Type:      "notification",
		}
		if err := n.recorder.RecordNotification(record); err != nil {
			n.logger.Warn("通知ログの記録に失敗", zap.Error(err))
		}
	}

	if !n.enabled {
		n.logger.Debug("通知は無効化されています", zap.String("title", notification.Title))
		return nil
	}

	name, args, ok := n.command(notification)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.runner.Run(ctx, name, args...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			n.logger.Debug("通知コマンドが見つかりません", zap.String("command", name))
			return nil
		}
		return fmt.Errorf("通知の送信に失敗: %w", err)
	}
	return nil
}

// command はプラットフォームごとの通知コマンドを組み立てる
func (n *Notifier) command(notification Notification) (string, []string, bool) {
	switch n.goos {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s" sound name "%s"`,
			escapeAppleScript(notification.Message),
			escapeAppleScript(notification.Title),
			escapeAppleScript(notification.Sound))
		return "osascript", []string{"-e", script}, true
	case "linux":
		urgency := "normal"
		if notification.Urgent {
			urgency = "critical"
		}
		return "notify-send", []string{"--urgency=" + urgency, notification.Title, notification.Message}, true
	default:
		return "", nil, false
	}
}

// escapeAppleScript はAppleScriptの文字列リテラル用にエスケープする
func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// RecordingRunner は実行されたコマンドを記録するテスト用Runner
type RecordingRunner struct {
	// Err が設定されていれば Run はそれを返す
	Err error

	mu    sync.Mutex
	calls [][]string
}

// Run はコマンドを記録する
func (r *RecordingRunner) Run(ctx context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.Err
}

// Calls は記録されたコマンド（先頭がコマンド名）を返す
func (r *RecordingRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}
