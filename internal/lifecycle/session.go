package lifecycle

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/checkpoint"
	"github.com/y-hirakaw/cchook/internal/hookio"
	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/notify"
	"github.com/y-hirakaw/cchook/internal/stats"
	"github.com/y-hirakaw/cchook/pkg/types"
)

// セッションログのイベント名
const (
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
)

// Notification は event_type に応じた通知を送る。常に終了コード0を返す
func Notification(ctx context.Context, env *Env, in io.Reader) (interface{}, int) {
	p, err := hookio.Read(in)
	if err != nil {
		msg := "Notification hook error: " + err.Error()
		env.send(ctx, notify.Notification{
			Title:   i18n.T("notify_notification_error_title"),
			Message: msg,
			Sound:   "Basso",
			Urgent:  true,
		})
		return map[string]interface{}{"error": msg}, 0
	}

	if n, ok := notify.Route(p); ok {
		env.send(ctx, n)
	} else {
		env.logger().Debug("通知を送らないイベント", zap.String("event_type", p.EventType()))
	}
	return Verdict{OK: true}, 0
}

// SessionStart はセッション開始をログに記録して通知する
func SessionStart(ctx context.Context, env *Env, in io.Reader) (interface{}, int) {
	p, err := hookio.Read(in)
	if err != nil {
		// 入力が無くてもセッション開始は記録する
		env.logger().Debug("session-start: 入力を解析できません", zap.Error(err))
		p = hookio.Payload{}
	}

	if env.Store != nil {
		event := &types.SessionEvent{
			Timestamp: env.now(),
			Event:     EventSessionStart,
			SessionID: p.SessionID(),
		}
		if err := env.Store.RecordSession(event); err != nil {
			env.logger().Warn("セッションログの記録に失敗", zap.Error(err))
		}
	}

	env.send(ctx, notify.Notification{
		Title:   i18n.T("notify_session_start_title"),
		Message: i18n.T("notify_session_started"),
	})
	return Verdict{OK: true}, 0
}

// Stop はセッションレポートを作成して保存し、最終チェックポイントと要約通知を行う
// 入力にsession_reportを加えて出力し、常に終了コード0を返す
func Stop(ctx context.Context, env *Env, in io.Reader) (interface{}, int) {
	p, err := hookio.Read(in)
	if err != nil {
		return map[string]interface{}{"session_manager_error": err.Error()}, 0
	}

	out := p.Clone()
	log := env.logger().With(zap.String("hook", "stop"))
	sessionID := p.SessionID()

	if env.Store == nil {
		out["session_manager_error"] = "ストレージが利用できません"
		return out, 0
	}

	manager := stats.NewStatsManager(env.Store, env.Now)
	report, err := manager.BuildReport(stats.ReportInput{
		SessionID:  sessionID,
		TotalTools: p.Int("total_tools_used", -1),
		DurationMS: p.DurationMS(),
	})
	if err != nil {
		log.Error("セッションレポートの作成に失敗", zap.Error(err))
		out["session_manager_error"] = err.Error()
		return out, 0
	}
	out["session_report"] = report

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	path, err := env.Store.SaveReport(report)
	if err != nil {
		log.Error("セッションレポートの保存に失敗", zap.Error(err))
	} else {
		log.Info("セッションレポートを保存", zap.String("path", path))
	}
	keep(err)

	keep(env.Store.RecordSession(&types.SessionEvent{
		Timestamp:      report.SessionEnd,
		Event:          EventSessionEnd,
		SessionID:      report.SessionID,
		TotalToolsUsed: report.TotalToolsUsed,
		DurationMS:     p.DurationMS(),
	}))

	if sessionID != types.UnknownSessionID {
		keep(env.Store.ForgetSession(sessionID))
	}

	if env.Config.Checkpoint.Enabled && env.Config.Checkpoint.SessionEnd {
		if _, err := env.checkpoints().Create(ctx, checkpoint.KindSessionEnd); err != nil {
			log.Warn("最終チェックポイントの作成に失敗", zap.Error(err))
		}
	}

	env.send(ctx, notify.Notification{
		Title:   i18n.T("notify_session_complete_title"),
		Message: stats.SummaryMessage(report),
	})

	if firstErr != nil {
		out["session_manager_error"] = firstErr.Error()
	}
	return out, 0
}
