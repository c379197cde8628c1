package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/config"
	"github.com/y-hirakaw/cchook/internal/gitexec"
	"github.com/y-hirakaw/cchook/internal/hookio"
)

// Kind はチェックポイントの種類
type Kind string

const (
	// KindAuto はファイル変更後の自動チェックポイント
	KindAuto Kind = "auto"
	// KindSessionEnd はセッション終了時の最終チェックポイント
	KindSessionEnd Kind = "session_end"
)

// スキップ理由
const (
	SkipNotRepository = "not_repository"
	SkipClean         = "clean"
)

const timestampLayout = "2006-01-02 15:04:05"

// Result はチェックポイント作成の結果
type Result struct {
	Created bool
	Skipped string
	Message string
}

// Manager はgitコマンド経由でチェックポイントコミットを作成する
type Manager struct {
	git      gitexec.Executor
	dir      string
	triggers []string
	trailers []string
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager は新しいチェックポイントマネージャーを作成する
func NewManager(git gitexec.Executor, dir string, cfg config.CheckpointConfig, now func() time.Time, logger *zap.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	triggers := cfg.Triggers
	if triggers == nil {
		triggers = config.DefaultCheckpointTriggers
	}
	return &Manager{
		git:      git,
		dir:      dir,
		triggers: triggers,
		trailers: cfg.Trailers,
		now:      now,
		logger:   logger,
	}
}

// ShouldCheckpoint はペイロードがチェックポイント対象かどうかを返す
func (m *Manager) ShouldCheckpoint(p hookio.Payload) bool {
	exitCode, _ := p.ExitCode()
	return ShouldCheckpoint(p.ToolName(), exitCode, p.Command(), m.triggers)
}

// ShouldCheckpoint は成功したファイル変更ツール、またはトリガーを含むBashコマンドで true を返す
func ShouldCheckpoint(toolName string, exitCode int, command string, triggers []string) bool {
	if exitCode != 0 {
		return false
	}
	if hookio.IsFileModifyingTool(toolName) {
		return true
	}
	if !hookio.IsTool(toolName, "bash") || command == "" {
		return false
	}
	for _, trigger := range triggers {
		if trigger != "" && strings.Contains(command, trigger) {
			return true
		}
	}
	return false
}

// Message はコミットメッセージを組み立てる
func Message(kind Kind, at time.Time, trailers []string) string {
	var subject, body string
	switch kind {
	case KindSessionEnd:
		subject = "Session end checkpoint: " + at.Format(timestampLayout)
		body = "Final checkpoint from Claude Code session"
	default:
		subject = "Auto-checkpoint: " + at.Format(timestampLayout)
		body = "Automated commit from Claude Code session"
	}

	var b strings.Builder
	b.WriteString(subject)
	b.WriteString("\n\n")
	b.WriteString(body)

	var lines []string
	for _, trailer := range trailers {
		if trailer = strings.TrimSpace(trailer); trailer != "" {
			lines = append(lines, trailer)
		}
	}
	if len(lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

// Create は作業ツリーに変更があればすべてステージしてコミットする
// リポジトリ外や変更なしの場合は何もしない
func (m *Manager) Create(ctx context.Context, kind Kind) (*Result, error) {
	status, err := m.git.RunInDir(ctx, m.dir, "status", "--porcelain")
	if err != nil {
		if errors.Is(err, gitexec.ErrNotRepository) {
			m.logger.Debug("gitリポジトリではないためチェックポイントをスキップ", zap.String("dir", m.dir))
			return &Result{Skipped: SkipNotRepository}, nil
		}
		return nil, fmt.Errorf("git statusに失敗: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return &Result{Skipped: SkipClean}, nil
	}

	if _, err := m.git.RunInDir(ctx, m.dir, "add", "."); err != nil {
		return nil, fmt.Errorf("git addに失敗: %w", err)
	}

	message := Message(kind, m.now(), m.trailers)
	if _, err := m.git.RunInDir(ctx, m.dir, "commit", "-m", message); err != nil {
		return nil, fmt.Errorf("git commitに失敗: %w", err)
	}

	m.logger.Info("チェックポイントを作成しました",
		zap.String("kind", string(kind)), zap.String("dir", m.dir))
	return &Result{Created: true, Message: message}, nil
}
