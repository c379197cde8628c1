package security

import (
	"fmt"
	"regexp"
	"strings"
)

// RedactedValue はマスク後の値
const RedactedValue = "[REDACTED]"

// defaultSensitivePatterns はキー名に含まれていればマスクする文字列
var defaultSensitivePatterns = []string{
	"password", "passwd",
	"secret", "token",
	"api_key", "apikey", "access_key",
	"private_key", "privatekey",
	"credential", "auth",
	"bearer",
}

// Redactor はツールパラメータから機密情報をマスクする
type Redactor struct {
	enabled           bool
	sensitivePatterns []string
	assignment        *regexp.Regexp
}

// bearerToken は "Bearer xxx" 形式のトークン
var bearerToken = regexp.MustCompile(`(?i)(\bbearer\s+)[^\s"']+`)

// NewRedactor は新しいRedactorを作成する
// extra は設定で追加された機密キーのパターン
func NewRedactor(enabled bool, extra []string) *Redactor {
	patterns := append([]string(nil), defaultSensitivePatterns...)
	for _, p := range extra {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			patterns = append(patterns, p)
		}
	}

	quoted := make([]string, len(patterns))
	for i, p := range patterns {
		quoted[i] = regexp.QuoteMeta(p)
	}

	// NAME=value, NAME: value 形式の値をマスクする
	assignment := regexp.MustCompile(fmt.Sprintf(
		`(?i)(\b[\w.-]*(?:%s)[\w.-]*)(\s*[=:]\s*)("[^"]*"|'[^']*'|[^\s"']+)`,
		strings.Join(quoted, "|"),
	))

	return &Redactor{
		enabled:           enabled,
		sensitivePatterns: patterns,
		assignment:        assignment,
	}
}

// IsEnabled はマスクが有効かどうかを返す
func (r *Redactor) IsEnabled() bool {
	return r.enabled
}

// IsSensitiveKey はキー名が機密情報を示すかどうかを返す
func (r *Redactor) IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range r.sensitivePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// SanitizeString は文字列中の "TOKEN=xxx" のような代入の値と Bearer トークンをマスクする
func (r *Redactor) SanitizeString(s string) string {
	if !r.enabled {
		return s
	}
	s = bearerToken.ReplaceAllString(s, "${1}"+RedactedValue)
	return r.assignment.ReplaceAllString(s, "${1}${2}"+RedactedValue)
}

// RedactParameters はパラメータのコピーを返し、機密キーの値と文字列中の機密値をマスクする
func (r *Redactor) RedactParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	if !r.enabled {
		return params
	}
	return r.redactMap(params)
}

func (r *Redactor) redactMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		if r.IsSensitiveKey(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = r.redactValue(value)
	}
	return out
}

func (r *Redactor) redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return r.redactMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.redactValue(item)
		}
		return out
	case string:
		return r.SanitizeString(v)
	default:
		return v
	}
}
