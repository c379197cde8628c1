package lifecycle

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/hookio"
	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/notify"
	"github.com/y-hirakaw/cchook/internal/policy"
	"github.com/y-hirakaw/cchook/internal/utils"
)

// 監査イベント名
const (
	AuditCommandBlocked = "command_blocked"
	AuditToolBlocked    = "tool_blocked"
	AuditPathBlocked    = "path_blocked"
)

const previewLength = 50

// Verdict はPreToolUseフックの出力
type Verdict struct {
	OK    bool   `json:"ok,omitempty"`
	Level string `json:"level,omitempty"`
	Error string `json:"error,omitempty"`
}

func allow(level policy.Level) Verdict {
	return Verdict{OK: true, Level: string(level)}
}

func deny(reason string) Verdict {
	return Verdict{Error: reason}
}

// PreToolUse はツール実行前にコマンドとファイル操作を検証する
// ブロックした場合は終了コード1を返す
func PreToolUse(ctx context.Context, env *Env, in io.Reader) (interface{}, int) {
	p, err := hookio.Read(in)
	if err != nil {
		msg := "Hook error: " + err.Error()
		env.send(ctx, notify.Notification{
			Title:   i18n.T("notify_hook_error_title"),
			Message: i18n.T("notify_hook_error", err.Error()),
			Sound:   "Basso",
			Urgent:  true,
		})
		return deny(msg), 1
	}

	toolName := p.ToolName()
	sessionID := p.SessionID()
	log := env.logger().With(zap.String("hook", "pre-tool-use"), zap.String("tool", toolName))

	if d := env.Policy.CheckTool(toolName); d.Blocked() {
		log.Info("ツールをブロック", zap.String("pattern", d.Pattern))
		env.send(ctx, notify.Notification{
			Title:   i18n.T("notify_blocked_title"),
			Message: i18n.T("notify_blocked_tool", toolName),
			Sound:   "Basso",
		})
		env.audit(AuditToolBlocked, sessionID, toolName, d.Reason, map[string]interface{}{"pattern": d.Pattern})
		return deny(d.Reason), 1
	}

	if hookio.IsTool(toolName, "bash") {
		if command := p.Command(); command != "" {
			return classifyCommand(ctx, env, log, sessionID, toolName, command)
		}
	}

	check := env.Policy.CheckFile(toolName, p.FilePath())
	if check.Blocked {
		log.Info("書き込みをブロック", zap.String("path", check.Path))
		env.send(ctx, notify.Notification{
			Title:   i18n.T("notify_blocked_title"),
			Message: i18n.T("notify_blocked_path", check.Path),
			Sound:   "Basso",
		})
		env.audit(AuditPathBlocked, sessionID, toolName, check.Reason, map[string]interface{}{"file_path": check.Path})
		return deny(check.Reason), 1
	}
	if check.Important {
		env.send(ctx, notify.Notification{
			Title:   i18n.T("notify_important_file_title"),
			Message: i18n.T("notify_important_file", check.Path),
		})
	}

	return Verdict{OK: true}, 0
}

func classifyCommand(ctx context.Context, env *Env, log *zap.Logger, sessionID, toolName, command string) (interface{}, int) {
	d := env.Policy.ClassifyCommand(command)
	log.Debug("コマンドを分類", zap.String("level", string(d.Level)), zap.String("pattern", d.Pattern))

	switch d.Level {
	case policy.LevelBlocked:
		env.send(ctx, notify.Notification{
			Title:   i18n.T("notify_blocked_title"),
			Message: i18n.T("notify_blocked_command", utils.Preview(command, previewLength)),
			Sound:   "Basso",
		})
		reason, logged := d.Reason, command
		if env.Redactor != nil {
			reason = env.Redactor.SanitizeString(reason)
			logged = env.Redactor.SanitizeString(command)
		}
		env.audit(AuditCommandBlocked, sessionID, toolName, reason,
			map[string]interface{}{"pattern": d.Pattern, "command": logged})
		return deny(d.Reason), 1
	case policy.LevelDev:
		env.send(ctx, notify.Notification{
			Title:   i18n.T("notify_dev_title"),
			Message: i18n.T("notify_dev_command", utils.Preview(command, previewLength)),
		})
	}
	return allow(d.Level), 0
}
