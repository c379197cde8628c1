package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/y-hirakaw/cchook/internal/i18n"
)

// ErrorType はエラーの種類を定義する
type ErrorType int

const (
	// ErrorTypeGeneral は一般的なエラー
	ErrorTypeGeneral ErrorType = iota
	// ErrorTypeFile はファイル関連のエラー
	ErrorTypeFile
	// ErrorTypeGit はGit関連のエラー
	ErrorTypeGit
	// ErrorTypeCommand はコマンド関連のエラー
	ErrorTypeCommand
	// ErrorTypeData はデータ関連のエラー
	ErrorTypeData
	// ErrorTypeSecurity はセキュリティ関連のエラー
	ErrorTypeSecurity
	// ErrorTypeConfig は設定関連のエラー
	ErrorTypeConfig
	// ErrorTypeNetwork はネットワーク関連のエラー
	ErrorTypeNetwork
)

// FriendlyError はユーザーフレンドリーなエラー
type FriendlyError struct {
	Type        ErrorType
	Key         string
	Args        []interface{}
	Cause       error
	Suggestions []string
	Command     string
	recoverable bool
}

// Error は error インターフェースを実装する
func (e *FriendlyError) Error() string {
	msg := i18n.T(e.Key, e.Args...)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap は内部エラーを返す
func (e *FriendlyError) Unwrap() error {
	return e.Cause
}

// GetMessage は翻訳されたメッセージを取得する
func (e *FriendlyError) GetMessage() string {
	return i18n.T(e.Key, e.Args...)
}

// GetSuggestions は解決策の提案を取得する
func (e *FriendlyError) GetSuggestions() []string {
	return e.Suggestions
}

// IsRecoverable はエラーが回復可能かどうかを返す
func (e *FriendlyError) IsRecoverable() bool {
	return e.recoverable
}

// NewError は新しいフレンドリーエラーを作成する
func NewError(errorType ErrorType, key string, args ...interface{}) *FriendlyError {
	return &FriendlyError{
		Type: errorType,
		Key:  key,
		Args: args,
	}
}

// WrapError は既存のエラーをラップする
func WrapError(cause error, errorType ErrorType, key string, args ...interface{}) *FriendlyError {
	return &FriendlyError{
		Type:  errorType,
		Key:   key,
		Args:  args,
		Cause: cause,
	}
}

// WithSuggestions は提案を追加する
func (e *FriendlyError) WithSuggestions(suggestions ...string) *FriendlyError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithCommand はコマンドコンテキストを追加する
func (e *FriendlyError) WithCommand(command string) *FriendlyError {
	e.Command = command
	return e
}

// WithRecoverable は回復可能フラグを設定する
func (e *FriendlyError) WithRecoverable(recoverable bool) *FriendlyError {
	e.recoverable = recoverable
	return e
}

// AsFriendly はエラーチェーンからFriendlyErrorを取り出す
func AsFriendly(err error) (*FriendlyError, bool) {
	var friendly *FriendlyError
	if stderrors.As(err, &friendly) {
		return friendly, true
	}
	return nil, false
}

// ErrorFormatter はエラーのフォーマッター
type ErrorFormatter struct {
	colorEnabled    bool
	showCause       bool
	showSuggestions bool
}

// NewErrorFormatter は新しいエラーフォーマッターを作成する
func NewErrorFormatter() *ErrorFormatter {
	return &ErrorFormatter{
		colorEnabled:    true,
		showCause:       true,
		showSuggestions: true,
	}
}

// SetColorEnabled はカラー表示を設定する
func (f *ErrorFormatter) SetColorEnabled(enabled bool) {
	f.colorEnabled = enabled
}

// Format はエラーをフォーマットする
func (f *ErrorFormatter) Format(err error) string {
	if err == nil {
		return ""
	}

	var result strings.Builder

	if friendlyErr, ok := AsFriendly(err); ok {
		f.formatFriendlyError(&result, friendlyErr)
	} else {
		f.formatGenericError(&result, err)
	}

	return result.String()
}

// formatFriendlyError はフレンドリーエラーをフォーマットする
func (f *ErrorFormatter) formatFriendlyError(result *strings.Builder, err *FriendlyError) {
	icon := f.getErrorIcon(err.Type)
	result.WriteString(f.colorRed(fmt.Sprintf("%s %s: %s", icon, i18n.T("error"), err.GetMessage())))

	if f.showCause && err.Cause != nil {
		result.WriteString(fmt.Sprintf("\n  %s: %s", i18n.T("caused_by"), err.Cause.Error()))
	}

	if f.showSuggestions && len(err.Suggestions) > 0 {
		result.WriteString(fmt.Sprintf("\n\n%s %s:", f.getHintIcon(), i18n.T("suggestions")))
		for _, suggestion := range err.Suggestions {
			result.WriteString(fmt.Sprintf("\n  %s %s", f.colorYellow("•"), suggestion))
		}
	}

	if err.Command != "" {
		result.WriteString(fmt.Sprintf("\n\n%s %s", f.getHintIcon(), i18n.T("help_hint_general")))
	}
}

// formatGenericError は通常のエラーをフォーマットする
func (f *ErrorFormatter) formatGenericError(result *strings.Builder, err error) {
	icon := f.getErrorIcon(ErrorTypeGeneral)
	result.WriteString(f.colorRed(fmt.Sprintf("%s %s: %s", icon, i18n.T("error"), err.Error())))
}

// getErrorIcon はエラータイプに応じたアイコンを返す
func (f *ErrorFormatter) getErrorIcon(errorType ErrorType) string {
	switch errorType {
	case ErrorTypeFile:
		return "📁"
	case ErrorTypeGit:
		return "🔧"
	case ErrorTypeCommand:
		return "⚙️"
	case ErrorTypeData:
		return "📊"
	case ErrorTypeSecurity:
		return "🔒"
	case ErrorTypeConfig:
		return "🛠️"
	case ErrorTypeNetwork:
		return "🌐"
	default:
		return "❌"
	}
}

func (f *ErrorFormatter) getHintIcon() string {
	return "💡"
}

// colorRed は文字列を赤色にする
func (f *ErrorFormatter) colorRed(text string) string {
	if !f.colorEnabled {
		return text
	}
	return fmt.Sprintf("\033[31m%s\033[0m", text)
}

// colorYellow は文字列を黄色にする
func (f *ErrorFormatter) colorYellow(text string) string {
	if !f.colorEnabled {
		return text
	}
	return fmt.Sprintf("\033[33m%s\033[0m", text)
}

// 便利な関数群

// UnknownCommand は不明なコマンドエラーを作成する
func UnknownCommand(command string) *FriendlyError {
	return NewError(ErrorTypeCommand, "unknown_command", command).
		WithSuggestions(
			i18n.T("help_hint_general"),
			i18n.T("suggestion_check_spelling"),
		).
		WithRecoverable(true)
}

// MissingArgument は必須引数不足エラーを作成する
func MissingArgument(name, command string) *FriendlyError {
	return NewError(ErrorTypeCommand, "missing_required_argument", name).
		WithCommand(command).
		WithRecoverable(true)
}

// InvalidDateFormat は無効な日付形式エラーを作成する
func InvalidDateFormat(dateStr string) *FriendlyError {
	return NewError(ErrorTypeCommand, "invalid_date_format", dateStr).
		WithSuggestions(i18n.T("suggestion_date_example")).
		WithRecoverable(true)
}

// InvalidLogKind は無効なログ種別エラーを作成する
func InvalidLogKind(kind string) *FriendlyError {
	return NewError(ErrorTypeCommand, "invalid_log_kind", kind).
		WithSuggestions(i18n.T("suggestion_valid_log_kinds")).
		WithRecoverable(true)
}

// ConfigReadFailed は設定ファイル読み込み失敗エラーを作成する
func ConfigReadFailed(path string, cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeConfig, "config_read_failed", path).
		WithSuggestions(i18n.T("suggestion_check_permissions"))
}

// ConfigParseFailed は設定ファイル解析失敗エラーを作成する
func ConfigParseFailed(path string, cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeConfig, "config_parse_failed", path).
		WithSuggestions(i18n.T("suggestion_check_config"))
}

// ConfigInvalid は設定値が無効なエラーを作成する
func ConfigInvalid(detail string) *FriendlyError {
	return NewError(ErrorTypeConfig, "config_invalid", detail).
		WithSuggestions(i18n.T("suggestion_check_config")).
		WithRecoverable(true)
}

// ConfigExists は設定ファイルが既に存在するエラーを作成する
func ConfigExists(path string) *FriendlyError {
	return NewError(ErrorTypeConfig, "config_exists", path).
		WithSuggestions(i18n.T("suggestion_force")).
		WithRecoverable(true)
}

// ConfigWriteFailed は設定ファイル書き込み失敗エラーを作成する
func ConfigWriteFailed(path string, cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeConfig, "config_write_failed", path).
		WithSuggestions(i18n.T("suggestion_check_permissions"))
}

// SettingsInvalidJSON は既存のsettings.jsonが壊れているエラーを作成する
func SettingsInvalidJSON(path string, cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeConfig, "settings_invalid_json", path).
		WithSuggestions(i18n.T("suggestion_fix_settings")).
		WithRecoverable(true)
}

// SettingsWriteFailed はsettings.json書き込み失敗エラーを作成する
func SettingsWriteFailed(path string, cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeFile, "settings_write_failed", path).
		WithSuggestions(i18n.T("suggestion_check_permissions"))
}

// SettingsBackupMissing はsettings.jsonのバックアップが無いエラーを作成する
func SettingsBackupMissing(path string) *FriendlyError {
	return NewError(ErrorTypeFile, "settings_backup_missing", path).
		WithRecoverable(true)
}

// LogDirFailed はログディレクトリ準備失敗エラーを作成する
func LogDirFailed(path string, cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeFile, "log_dir_failed", path).
		WithSuggestions(i18n.T("suggestion_check_permissions"))
}

// StorageFailed はストレージ操作失敗エラーを作成する
func StorageFailed(cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeData, "storage_failed")
}

// DecryptionFailed は復号化失敗エラーを作成する
func DecryptionFailed(cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeSecurity, "decryption_failed").
		WithSuggestions(i18n.T("suggestion_set_passphrase")).
		WithRecoverable(true)
}

// ProjectDirNotFound はプロジェクトディレクトリが存在しないエラーを作成する
func ProjectDirNotFound(path string) *FriendlyError {
	return NewError(ErrorTypeFile, "project_dir_not_found", path).
		WithRecoverable(true)
}

// DashboardFailed はダッシュボード停止エラーを作成する
func DashboardFailed(cause error) *FriendlyError {
	return WrapError(cause, ErrorTypeNetwork, "dashboard_failed")
}

// Global formatter instance
var globalFormatter *ErrorFormatter

// InitializeFormatter はグローバルなエラーフォーマッターを初期化する
func InitializeFormatter() {
	globalFormatter = NewErrorFormatter()
}

// FormatError はグローバルなエラーフォーマット関数
func FormatError(err error) string {
	if globalFormatter == nil {
		InitializeFormatter()
	}
	return globalFormatter.Format(err)
}
