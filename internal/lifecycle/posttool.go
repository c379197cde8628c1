package lifecycle

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/checkpoint"
	"github.com/y-hirakaw/cchook/internal/hookio"
	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/notify"
	"github.com/y-hirakaw/cchook/pkg/types"
)

// PostToolUse はツール使用を記録し、通知とチェックポイントを処理する
// 入力はそのまま出力し、常に終了コード0を返す
func PostToolUse(ctx context.Context, env *Env, in io.Reader) (interface{}, int) {
	p, err := hookio.Read(in)
	if err != nil {
		env.logger().Warn("post-tool-use: 入力の解析に失敗", zap.Error(err))
		return map[string]interface{}{"hook_error": err.Error()}, 0
	}

	out := p.Clone()
	log := env.logger().With(zap.String("hook", "post-tool-use"), zap.String("tool", p.ToolName()))

	if err := recordUsage(env, p); err != nil {
		log.Error("使用ログの記録に失敗", zap.Error(err))
		out["hook_error"] = err.Error()
	}

	sendContextual(ctx, env, p)

	if env.Config.Checkpoint.Enabled {
		cp := env.checkpoints()
		if cp.ShouldCheckpoint(p) {
			result, err := cp.Create(ctx, checkpoint.KindAuto)
			switch {
			case err != nil:
				log.Warn("チェックポイントの作成に失敗", zap.Error(err))
			case result.Created:
				env.send(ctx, notify.Notification{
					Title:   i18n.T("notify_checkpoint_title"),
					Message: i18n.T("notify_checkpoint_saved"),
				})
			}
		}
	}

	return out, 0
}

// usageEntry はペイロードから使用ログ1件を組み立てる
func usageEntry(env *Env, p hookio.Payload) *types.UsageEntry {
	toolName := p.ToolName()
	if toolName == "" {
		toolName = "unknown"
	}

	entry := &types.UsageEntry{
		Timestamp:  env.now(),
		ToolName:   toolName,
		DurationMS: p.DurationMS(),
		Success:    true,
		SessionID:  p.SessionID(),
	}
	if code, ok := p.ExitCode(); ok {
		entry.ExitCode = &code
		entry.Success = code == 0
	}

	params := p.Parameters()
	if env.Redactor != nil {
		params = env.Redactor.RedactParameters(params)
	}

	if env.Crypto != nil && env.Crypto.IsEnabled() {
		data, err := json.Marshal(params)
		if err == nil {
			entry.EncryptedParameters, err = env.Crypto.EncryptString(data)
		}
		if err != nil {
			// 平文で残さない
			env.logger().Warn("パラメータの暗号化に失敗したため記録しません", zap.Error(err))
		}
		return entry
	}

	entry.Parameters = params
	return entry
}

func recordUsage(env *Env, p hookio.Payload) error {
	if env.Store == nil {
		return nil
	}
	_, err := env.Store.RecordUsage(usageEntry(env, p))
	return err
}

// sendContextual はツールの結果に応じた通知を送る
func sendContextual(ctx context.Context, env *Env, p hookio.Payload) {
	toolName := p.ToolName()

	if code, _ := p.ExitCode(); code != 0 {
		env.send(ctx, notify.Notification{
			Title:   i18n.T("notify_tool_failed_title"),
			Message: i18n.T("notify_tool_failed", toolName, code),
			Sound:   "Basso",
		})
		return
	}

	switch {
	case hookio.IsTool(toolName, "bash"):
		if n, ok := bashNotification(p.Command(), p.DurationMS(), env.Config.Notifications.LongCommandMS); ok {
			env.send(ctx, n)
		}
	case hookio.IsFileModifyingTool(toolName):
		if filePath := p.FilePath(); filePath != "" {
			env.send(ctx, notify.Notification{
				Title:   i18n.T("notify_file_updated_title"),
				Message: filepath.Base(filePath),
			})
		}
	}
}

func bashNotification(command string, durationMS, longCommandMS float64) (notify.Notification, bool) {
	switch {
	case strings.Contains(command, "npm install"):
		return notify.Notification{Title: i18n.T("notify_npm_title"), Message: i18n.T("notify_packages_installed")}, true
	case strings.Contains(command, "pip install"):
		return notify.Notification{Title: i18n.T("notify_pip_title"), Message: i18n.T("notify_packages_installed")}, true
	case strings.Contains(command, "git push"):
		return notify.Notification{Title: i18n.T("notify_git_push_title"), Message: i18n.T("notify_git_pushed")}, true
	case strings.Contains(command, "npm run build"), strings.Contains(command, "cargo build"):
		return notify.Notification{Title: i18n.T("notify_build_title"), Message: i18n.T("notify_build_completed")}, true
	case longCommandMS > 0 && durationMS > longCommandMS:
		return notify.Notification{
			Title:   i18n.T("notify_long_command_title"),
			Message: i18n.T("notify_long_command", durationMS/1000),
		}, true
	}
	return notify.Notification{}, false
}
