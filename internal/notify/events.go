package notify

import (
	"github.com/y-hirakaw/cchook/internal/hookio"
	"github.com/y-hirakaw/cchook/internal/i18n"
)

type eventHandler func(p hookio.Payload) (Notification, bool)

// eventRoutes は event_type ごとの通知の組み立て方
var eventRoutes = map[string]eventHandler{
	"session_start": func(p hookio.Payload) (Notification, bool) {
		return Notification{
			Title:   i18n.T("notify_session_start_title"),
			Message: i18n.T("notify_session_started"),
			Sound:   "Glass",
		}, true
	},
	"session_end": func(p hookio.Payload) (Notification, bool) {
		duration := p.DurationMS()
		if duration <= 0 {
			return Notification{}, false
		}
		return Notification{
			Title:   i18n.T("notify_session_end_title"),
			Message: i18n.T("notify_session_ended", p.Int("total_tools_used", 0), duration/60000),
			Sound:   "Glass",
		}, true
	},
	"error": func(p hookio.Payload) (Notification, bool) {
		return Notification{
			Title:   i18n.T("notify_error_title"),
			Message: p.String("message", i18n.T("notify_unknown_error")),
			Sound:   "Basso",
			Urgent:  true,
		}, true
	},
	"warning": func(p hookio.Payload) (Notification, bool) {
		return Notification{
			Title:   i18n.T("notify_warning_title"),
			Message: p.String("message", i18n.T("notify_unknown_warning")),
			Sound:   "Funk",
		}, true
	},
	"checkpoint_created": func(p hookio.Payload) (Notification, bool) {
		return Notification{
			Title:   i18n.T("notify_auto_checkpoint_title"),
			Message: i18n.T("notify_checkpoint_git"),
			Sound:   "Glass",
		}, true
	},
	"build_complete": func(p hookio.Payload) (Notification, bool) {
		if p.Bool("success", false) {
			return Notification{
				Title:   i18n.T("notify_build_success_title"),
				Message: i18n.T("notify_build_completed"),
				Sound:   "Glass",
			}, true
		}
		return Notification{
			Title:   i18n.T("notify_build_failed_title"),
			Message: i18n.T("notify_build_failed"),
			Sound:   "Basso",
			Urgent:  true,
		}, true
	},
	"tests_complete": func(p hookio.Payload) (Notification, bool) {
		if failed := p.Int("failed", 0); failed != 0 {
			return Notification{
				Title:   i18n.T("notify_tests_failed_title"),
				Message: i18n.T("notify_tests_failed", failed),
				Sound:   "Basso",
				Urgent:  true,
			}, true
		}
		return Notification{
			Title:   i18n.T("notify_tests_passed_title"),
			Message: i18n.T("notify_tests_passed", p.Int("passed", 0)),
			Sound:   "Glass",
		}, true
	},
	"auto_fix_applied": func(p hookio.Payload) (Notification, bool) {
		return Notification{
			Title:   i18n.T("notify_auto_fix_title"),
			Message: i18n.T("notify_auto_fix", p.String("fix_type", "unknown")),
			Sound:   "Glass",
		}, true
	},
	"permission_blocked": func(p hookio.Payload) (Notification, bool) {
		return Notification{
			Title:   i18n.T("notify_security_title"),
			Message: i18n.T("notify_permission_blocked", p.String("operation", "unknown")),
			Sound:   "Funk",
		}, true
	},
	"batch_complete": func(p hookio.Payload) (Notification, bool) {
		return Notification{
			Title:   i18n.T("notify_batch_title"),
			Message: i18n.T("notify_batch", p.Int("operations", 0)),
			Sound:   "Glass",
		}, true
	},
}

// Route はNotificationフックのペイロードから送信する通知を決める
// 未知のevent_typeは title, message, urgent, sound から通知を組み立てる
// 送信しない場合は false を返す
func Route(p hookio.Payload) (Notification, bool) {
	if handler, ok := eventRoutes[p.EventType()]; ok {
		return handler(p)
	}

	return Notification{
		Title:   p.String("title", i18n.T("notify_default_title")),
		Message: p.String("message", i18n.T("notify_default_message")),
		Sound:   p.String("sound", ""),
		Urgent:  p.Bool("urgent", false),
	}, true
}
