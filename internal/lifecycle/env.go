// Package lifecycle はフックイベントごとの処理を実装する
// 各ハンドラは注入された Env を使い、(出力, 終了コード) を返す
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/checkpoint"
	"github.com/y-hirakaw/cchook/internal/config"
	"github.com/y-hirakaw/cchook/internal/gitexec"
	"github.com/y-hirakaw/cchook/internal/notify"
	"github.com/y-hirakaw/cchook/internal/policy"
	"github.com/y-hirakaw/cchook/internal/security"
	"github.com/y-hirakaw/cchook/internal/storage"
)

// Sender はデスクトップ通知を送る
type Sender interface {
	Send(ctx context.Context, n notify.Notification) error
}

// Env はフックハンドラの依存関係
type Env struct {
	Config   *config.Config
	Notifier Sender
	Store    storage.Store
	Git      gitexec.Executor
	Now      func() time.Time
	Logger   *zap.Logger
	Audit    *security.AuditManager
	Crypto   *security.EncryptionManager
	Redactor *security.Redactor
	Policy   *policy.Policy
}

// NewEnv は設定から実行時の依存関係を組み立てる
// ポリシーや暗号化の問題はログに記録して続行する
// ストレージを開けない場合は Store を nil にした Env とエラーの両方を返す
func NewEnv(cfg *config.Config, logger *zap.Logger) (*Env, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var storeErr error
	store, err := storage.NewStoreByType(storage.StorageConfig{
		Type:        storage.StorageType(cfg.Storage.Backend),
		Dir:         cfg.LogDir,
		MaxSessions: cfg.History.MaxSessions,
		Logger:      logger,
	})
	if err != nil {
		store = nil
		storeErr = fmt.Errorf("ストレージの初期化に失敗: %w", err)
	}

	pol, problems := policy.FromConfig(cfg)
	for _, problem := range problems {
		logger.Warn("ポリシーの問題", zap.Error(problem))
	}

	crypto := security.NewEncryptionManager(cfg.Privacy.EncryptParameters, cfg.Passphrase, cfg.KeyFilePath())
	if crypto.IsEnabled() {
		if err := crypto.Initialize(true); err != nil {
			logger.Warn("暗号化を初期化できないためパラメータを記録しません", zap.Error(err))
		}
	}

	notifier := notify.New(
		notify.WithRecorder(store),
		notify.WithLogger(logger),
		notify.WithEnabled(cfg.Notifications.Enabled),
		notify.WithDefaultSound(cfg.Notifications.DefaultSound),
		notify.WithTimeout(time.Duration(cfg.Notifications.TimeoutSeconds)*time.Second),
	)

	return &Env{
		Config:   cfg,
		Notifier: notifier,
		Store:    store,
		Git:      gitexec.NewExecutor(),
		Now:      time.Now,
		Logger:   logger,
		Audit:    security.NewAuditManager(cfg.LogDir, cfg.Audit.Enabled),
		Crypto:   crypto,
		Redactor: security.NewRedactor(cfg.Privacy.RedactSensitive, cfg.Privacy.SensitiveKeys),
		Policy:   pol,
	}, storeErr
}

// Close はストレージを閉じる
func (e *Env) Close() error {
	if e.Store == nil {
		return nil
	}
	return e.Store.Close()
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// send は通知を送り、失敗はログに残すだけにする
func (e *Env) send(ctx context.Context, n notify.Notification) {
	if e.Notifier == nil {
		return
	}
	if err := e.Notifier.Send(ctx, n); err != nil {
		e.logger().Warn("通知の送信に失敗", zap.String("title", n.Title), zap.Error(err))
	}
}

// audit はブロックした操作を監査ログに残す
func (e *Env) audit(event, sessionID, toolName, reason string, details map[string]interface{}) {
	if e.Audit == nil {
		return
	}
	if err := e.Audit.LogBlocked(event, sessionID, toolName, reason, details); err != nil {
		e.logger().Warn("監査ログの記録に失敗", zap.Error(err))
	}
}

func (e *Env) checkpoints() *checkpoint.Manager {
	return checkpoint.NewManager(e.Git, e.Config.ProjectDir, e.Config.Checkpoint, e.Now, e.logger())
}

// HandlerFunc はフックイベントのハンドラ
type HandlerFunc func(ctx context.Context, env *Env, in io.Reader) (interface{}, int)

// Handlers はサブコマンド名とハンドラの対応
var Handlers = map[string]HandlerFunc{
	"pre-tool-use":  PreToolUse,
	"post-tool-use": PostToolUse,
	"notification":  Notification,
	"session-start": SessionStart,
	"stop":          Stop,
}
