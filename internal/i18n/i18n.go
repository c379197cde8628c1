package i18n

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Locale は言語ロケール
type Locale string

const (
	// LocaleJA は日本語
	LocaleJA Locale = "ja"
	// LocaleEN は英語
	LocaleEN Locale = "en"
)

// Messages は翻訳メッセージのマップ
type Messages map[string]string

// I18n は国際化システム
type I18n struct {
	currentLocale Locale
	messages      map[Locale]Messages
	fallback      Locale
}

// NewI18n は新しい国際化システムを作成する
func NewI18n() *I18n {
	i18n := &I18n{
		currentLocale: LocaleEN, // 通知文言は英語がデフォルト
		messages:      make(map[Locale]Messages),
		fallback:      LocaleEN,
	}

	i18n.loadDefaultMessages()
	i18n.SetLocale(DetectLocale())

	return i18n
}

// DetectLocale は環境変数からロケールを判定する
func DetectLocale() Locale {
	if lang := os.Getenv("CCHOOK_LANG"); lang != "" {
		return Locale(strings.ToLower(lang))
	}
	if lang := os.Getenv("LANG"); strings.HasPrefix(lang, "ja") {
		return LocaleJA
	}
	return LocaleEN
}

// SetLocale は現在のロケールを設定する（未知のロケールは無視）
func (i *I18n) SetLocale(locale Locale) {
	if _, ok := i.messages[locale]; ok {
		i.currentLocale = locale
	}
}

// GetLocale は現在のロケールを取得する
func (i *I18n) GetLocale() Locale {
	return i.currentLocale
}

// T は翻訳を取得する（キーと引数を受け取る）
func (i *I18n) T(key string, args ...interface{}) string {
	if message, found := i.messages[i.currentLocale][key]; found {
		return format(message, args)
	}

	if message, found := i.messages[i.fallback][key]; found {
		return format(message, args)
	}

	// メッセージが見つからない場合はキーをそのまま返す
	if len(args) > 0 {
		return fmt.Sprintf("%s: %v", key, args)
	}
	return key
}

func format(message string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// Has はキーが登録されているかを返す
func (i *I18n) Has(locale Locale, key string) bool {
	_, ok := i.messages[locale][key]
	return ok
}

// Keys はロケールに登録されたキー一覧を返す
func (i *I18n) Keys(locale Locale) []string {
	keys := make([]string, 0, len(i.messages[locale]))
	for key := range i.messages[locale] {
		keys = append(keys, key)
	}
	return keys
}

// loadDefaultMessages はデフォルトの翻訳メッセージを読み込む
func (i *I18n) loadDefaultMessages() {
	i.messages[LocaleEN] = Messages{
		// General
		"error":       "Error",
		"caused_by":   "Caused by",
		"suggestions": "Suggestions",

		// Notifications: pre-tool-use
		"notify_blocked_title":          "⚠️ Claude Code",
		"notify_blocked_command":        "Blocked dangerous command: %s",
		"notify_blocked_tool":           "Blocked dangerous tool use: %s",
		"notify_blocked_path":           "Blocked write to system directory: %s",
		"notify_dev_title":              "🔧 Claude Code",
		"notify_dev_command":            "Running: %s",
		"notify_important_file_title":   "📝 Claude Code",
		"notify_important_file":         "Modifying %s",
		"notify_hook_error_title":       "❌ Claude Code",
		"notify_hook_error":             "Hook error: %s",
		"notify_notification_error_title": "❌ Hook Error",

		// Notifications: post-tool-use
		"notify_tool_failed_title":   "❌ Claude Code",
		"notify_tool_failed":         "%s failed (exit: %d)",
		"notify_npm_title":           "📦 NPM",
		"notify_pip_title":           "🐍 Python",
		"notify_packages_installed":  "Packages installed successfully",
		"notify_git_push_title":      "🚀 Git",
		"notify_git_pushed":          "Changes pushed to remote",
		"notify_build_title":         "🔨 Build",
		"notify_build_completed":     "Build completed successfully",
		"notify_long_command_title":  "⏱️ Claude Code",
		"notify_long_command":        "Command completed (%.1fs)",
		"notify_file_updated_title":  "📝 File Updated",
		"notify_checkpoint_title":    "📁 Git Checkpoint",
		"notify_checkpoint_saved":    "Auto-saved progress",

		// Notifications: stop
		"notify_session_complete_title": "📊 Session Complete",
		"notify_quick_session":          "Quick session: %d tools used",
		"notify_session_summary":        "Session: %d tools in %.1fm (%s productivity)",

		// Notifications: notification events
		"notify_default_title":        "Claude Code",
		"notify_default_message":      "Notification",
		"notify_session_start_title":  "🚀 Claude Code",
		"notify_session_started":      "Session started",
		"notify_session_end_title":    "👋 Claude Code",
		"notify_session_ended":        "Session ended: %d tools used in %.1fm",
		"notify_error_title":          "❌ Claude Code Error",
		"notify_unknown_error":        "Unknown error",
		"notify_warning_title":        "⚠️ Claude Code Warning",
		"notify_unknown_warning":      "Unknown warning",
		"notify_auto_checkpoint_title": "📁 Auto-Checkpoint",
		"notify_checkpoint_git":       "Progress saved to git",
		"notify_build_success_title":  "✅ Build Success",
		"notify_build_failed_title":   "❌ Build Failed",
		"notify_build_failed":         "Build failed - check logs",
		"notify_tests_passed_title":   "✅ Tests Passed",
		"notify_tests_passed":         "All %d tests passed",
		"notify_tests_failed_title":   "❌ Tests Failed",
		"notify_tests_failed":         "%d tests failed",
		"notify_auto_fix_title":       "🔧 Auto-Fix",
		"notify_auto_fix":             "Applied %s fix",
		"notify_security_title":       "🛡️ Security",
		"notify_permission_blocked":   "Blocked %s operation",
		"notify_batch_title":          "⚡ Batch Complete",
		"notify_batch":                "%d operations completed",

		// CLI errors
		"unknown_command":           "Unknown command: %s",
		"missing_required_argument": "Missing required argument: %s",
		"config_read_failed":        "Failed to read configuration: %s",
		"config_parse_failed":       "Failed to parse configuration: %s",
		"config_invalid":            "Invalid configuration: %s",
		"config_write_failed":       "Failed to write configuration: %s",
		"settings_invalid_json":     "settings.json is not valid JSON: %s",
		"settings_write_failed":     "Failed to write settings: %s",
		"settings_backup_missing":   "No settings backup found: %s",
		"log_dir_failed":            "Failed to prepare log directory: %s",
		"storage_failed":            "Storage operation failed",
		"decryption_failed":         "Decryption failed",
		"invalid_date_format":       "Invalid date format (YYYYMMDD): %s",
		"invalid_log_kind":          "Invalid log kind: %s",
		"dashboard_failed":          "Dashboard stopped with an error",
		"project_dir_not_found":     "Project directory not found: %s",

		// Suggestions
		"help_hint_general":           "Use 'cchook --help' to see available commands",
		"suggestion_check_config":     "Run `cchook config validate` to see every problem",
		"suggestion_fix_settings":     "Fix or move the existing settings.json, then run setup again",
		"suggestion_check_permissions": "Check file permissions",
		"suggestion_date_example":     "Example: 20250101",
		"suggestion_valid_log_kinds":  "Valid kinds: usage, notifications, sessions",
		"suggestion_set_passphrase":   "Set CCHOOK_ENCRYPTION_PASSPHRASE to the passphrase used when logging",
		"suggestion_check_spelling":   "Check command spelling",

		// Setup
		"setup_installed":      "Installed cchook hooks into %s",
		"setup_removed":        "Removed cchook hooks from %s",
		"setup_backup_created": "Backup created: %s",
		"setup_nothing_to_remove": "No cchook hooks found in %s",
		"setup_status":            "Settings: %s\nInstalled: %s\nEvents: %s\nBackup: %s",
		"setup_restored":          "Restored %s from backup",

		// Config
		"config_valid":       "Configuration is valid: %s",
		"config_defaults":    "(built-in defaults)",
		"config_initialized": "Created configuration: %s",
		"config_exists":      "Configuration already exists: %s",
		"suggestion_force":   "Use --force to overwrite the existing file",

		// Reports
		"logs_empty":          "No %s log for %s",
		"audit_empty":         "No audit records",
		"dashboard_listening": "Dashboard running at http://%s (Ctrl+C to stop)",
	}

	i.messages[LocaleJA] = Messages{
		"error":       "エラー",
		"caused_by":   "原因",
		"suggestions": "解決策",

		"notify_blocked_title":          "⚠️ Claude Code",
		"notify_blocked_command":        "危険なコマンドをブロックしました: %s",
		"notify_blocked_tool":           "危険なツール使用をブロックしました: %s",
		"notify_blocked_path":           "システムディレクトリへの書き込みをブロックしました: %s",
		"notify_dev_title":              "🔧 Claude Code",
		"notify_dev_command":            "実行中: %s",
		"notify_important_file_title":   "📝 Claude Code",
		"notify_important_file":         "%s を変更します",
		"notify_hook_error_title":       "❌ Claude Code",
		"notify_hook_error":             "フックエラー: %s",
		"notify_notification_error_title": "❌ フックエラー",

		"notify_tool_failed_title":   "❌ Claude Code",
		"notify_tool_failed":         "%s が失敗しました（終了コード: %d）",
		"notify_npm_title":           "📦 NPM",
		"notify_pip_title":           "🐍 Python",
		"notify_packages_installed":  "パッケージのインストールが完了しました",
		"notify_git_push_title":      "🚀 Git",
		"notify_git_pushed":          "変更をリモートにpushしました",
		"notify_build_title":         "🔨 Build",
		"notify_build_completed":     "ビルドが完了しました",
		"notify_long_command_title":  "⏱️ Claude Code",
		"notify_long_command":        "コマンドが完了しました（%.1f秒）",
		"notify_file_updated_title":  "📝 ファイル更新",
		"notify_checkpoint_title":    "📁 Gitチェックポイント",
		"notify_checkpoint_saved":    "進捗を自動保存しました",

		"notify_session_complete_title": "📊 セッション完了",
		"notify_quick_session":          "短いセッション: %d回のツール使用",
		"notify_session_summary":        "セッション: %d回のツール使用 / %.1f分（生産性: %s）",

		"notify_default_title":        "Claude Code",
		"notify_default_message":      "通知",
		"notify_session_start_title":  "🚀 Claude Code",
		"notify_session_started":      "セッションを開始しました",
		"notify_session_end_title":    "👋 Claude Code",
		"notify_session_ended":        "セッション終了: %d回のツール使用 / %.1f分",
		"notify_error_title":          "❌ Claude Code エラー",
		"notify_unknown_error":        "不明なエラー",
		"notify_warning_title":        "⚠️ Claude Code 警告",
		"notify_unknown_warning":      "不明な警告",
		"notify_auto_checkpoint_title": "📁 自動チェックポイント",
		"notify_checkpoint_git":       "進捗をgitに保存しました",
		"notify_build_success_title":  "✅ ビルド成功",
		"notify_build_failed_title":   "❌ ビルド失敗",
		"notify_build_failed":         "ビルドに失敗しました。ログを確認してください",
		"notify_tests_passed_title":   "✅ テスト成功",
		"notify_tests_passed":         "%d件のテストがすべて成功しました",
		"notify_tests_failed_title":   "❌ テスト失敗",
		"notify_tests_failed":         "%d件のテストが失敗しました",
		"notify_auto_fix_title":       "🔧 自動修正",
		"notify_auto_fix":             "%s の修正を適用しました",
		"notify_security_title":       "🛡️ セキュリティ",
		"notify_permission_blocked":   "%s 操作をブロックしました",
		"notify_batch_title":          "⚡ バッチ完了",
		"notify_batch":                "%d件の操作が完了しました",

		"unknown_command":           "不明なコマンド: %s",
		"missing_required_argument": "必須引数が不足しています: %s",
		"config_read_failed":        "設定の読み込みに失敗しました: %s",
		"config_parse_failed":       "設定の解析に失敗しました: %s",
		"config_invalid":            "設定が無効です: %s",
		"config_write_failed":       "設定の保存に失敗しました: %s",
		"settings_invalid_json":     "settings.json が正しいJSONではありません: %s",
		"settings_write_failed":     "設定の書き込みに失敗しました: %s",
		"settings_backup_missing":   "設定のバックアップが見つかりません: %s",
		"log_dir_failed":            "ログディレクトリの準備に失敗しました: %s",
		"storage_failed":            "ストレージ操作に失敗しました",
		"decryption_failed":         "復号化に失敗しました",
		"invalid_date_format":       "日付の形式が不正です (YYYYMMDD): %s",
		"invalid_log_kind":          "無効なログ種別です: %s",
		"dashboard_failed":          "ダッシュボードがエラーで停止しました",
		"project_dir_not_found":     "プロジェクトディレクトリが見つかりません: %s",

		"help_hint_general":           "'cchook --help' で利用可能なコマンドを確認できます",
		"suggestion_check_config":     "`cchook config validate` ですべての問題を確認してください",
		"suggestion_fix_settings":     "既存のsettings.jsonを修正または退避してから再実行してください",
		"suggestion_check_permissions": "ファイル権限を確認してください",
		"suggestion_date_example":     "例: 20250101",
		"suggestion_valid_log_kinds":  "有効な種別: usage, notifications, sessions",
		"suggestion_set_passphrase":   "記録時と同じパスフレーズを CCHOOK_ENCRYPTION_PASSPHRASE に設定してください",
		"suggestion_check_spelling":   "コマンドのスペルを確認してください",

		"setup_installed":      "cchook hooks を %s に設定しました",
		"setup_removed":        "cchook hooks を %s から削除しました",
		"setup_backup_created": "バックアップを作成しました: %s",
		"setup_nothing_to_remove": "%s に cchook hooks は見つかりませんでした",
		"setup_status":            "設定ファイル: %s\n設定済み: %s\nイベント: %s\nバックアップ: %s",
		"setup_restored":          "%s をバックアップから復元しました",

		"config_valid":       "設定は有効です: %s",
		"config_defaults":    "（組み込みのデフォルト）",
		"config_initialized": "設定ファイルを作成しました: %s",
		"config_exists":      "設定ファイルは既に存在します: %s",
		"suggestion_force":   "上書きする場合は --force を指定してください",

		"logs_empty":          "%s ログ（%s）はありません",
		"audit_empty":         "監査ログはありません",
		"dashboard_listening": "ダッシュボードを http://%s で起動しました（Ctrl+C で停止）",
	}
}

// Global instance
var (
	globalI18n *I18n
	globalOnce sync.Once
)

// Initialize はグローバルなi18nシステムを初期化する
func Initialize() {
	globalOnce.Do(func() {
		globalI18n = NewI18n()
	})
}

// T はグローバルな翻訳関数
func T(key string, args ...interface{}) string {
	Initialize()
	return globalI18n.T(key, args...)
}

// SetLocale はグローバルなロケールを設定する
func SetLocale(locale Locale) {
	Initialize()
	globalI18n.SetLocale(locale)
}

// GetLocale はグローバルなロケールを取得する
func GetLocale() Locale {
	Initialize()
	return globalI18n.GetLocale()
}
