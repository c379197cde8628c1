// Package hookio はフックの標準入出力（1つのJSONオブジェクト）を扱う
package hookio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxPayloadBytes は読み込むペイロードの上限
const MaxPayloadBytes = 1 << 20

// UnknownSessionID はセッションIDが取得できない場合の値
const UnknownSessionID = "unknown"

// EnvSessionID はペイロードに session_id が無いときに参照する環境変数
const EnvSessionID = "CLAUDE_SESSION_ID"

// ファイルを変更するツール（正規化済みの名前）
var fileModifyingTools = map[string]bool{
	"write":     true,
	"edit":      true,
	"multiedit": true,
}

// Payload はフックに渡されたJSONオブジェクト
// 未知のフィールドもそのまま保持する
type Payload map[string]any

// Read は入力から1つのJSONオブジェクトを読み込む
func Read(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("入力の読み込みに失敗: %w", err)
	}
	if len(data) > MaxPayloadBytes {
		return nil, fmt.Errorf("入力が大きすぎます（上限 %d バイト）", MaxPayloadBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("入力が空です")
	}

	var payload Payload
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("JSONの解析に失敗: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("入力がJSONオブジェクトではありません")
	}
	if decoder.More() {
		return nil, fmt.Errorf("入力に複数のJSON値が含まれています")
	}

	return payload, nil
}

// Write は1つのJSONオブジェクトを改行付きで出力する
func Write(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("出力の書き込みに失敗: %w", err)
	}
	return nil
}

// Clone は浅いコピーを返す（出力用にフィールドを追加する際に使う）
func (p Payload) Clone() Payload {
	clone := make(Payload, len(p)+1)
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// ToolName は tool_name を返す
func (p Payload) ToolName() string {
	return p.String("tool_name", "")
}

// Parameters は parameters を返す（無い場合は tool_input）
func (p Payload) Parameters() map[string]any {
	for _, key := range []string{"parameters", "tool_input"} {
		if params, ok := p[key].(map[string]any); ok {
			return params
		}
	}
	return map[string]any{}
}

// Command はBashツールの command パラメータを返す
func (p Payload) Command() string {
	if cmd, ok := p.Parameters()["command"].(string); ok {
		return cmd
	}
	return ""
}

// FilePath はファイル操作ツールの file_path パラメータを返す
func (p Payload) FilePath() string {
	if path, ok := p.Parameters()["file_path"].(string); ok {
		return path
	}
	return ""
}

// ExitCode は exit_code とその有無を返す
func (p Payload) ExitCode() (int, bool) {
	if _, ok := p["exit_code"]; !ok || p["exit_code"] == nil {
		return 0, false
	}
	return p.Int("exit_code", 0), true
}

// DurationMS は duration_ms を返す
func (p Payload) DurationMS() float64 {
	return p.Float("duration_ms", 0)
}

// EventType は event_type を返す
func (p Payload) EventType() string {
	return p.String("event_type", "")
}

// SessionID は session_id を返す
// 無い場合は環境変数 CLAUDE_SESSION_ID、それも無ければ "unknown"
func (p Payload) SessionID() string {
	if id := p.String("session_id", ""); id != "" {
		return id
	}
	if id := os.Getenv(EnvSessionID); id != "" {
		return id
	}
	return UnknownSessionID
}

// String は文字列フィールドを返す
func (p Payload) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Bool は真偽値フィールドを返す
func (p Payload) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Int は整数フィールドを返す
func (p Payload) Int(key string, def int) int {
	switch v := p[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Float は数値フィールドを返す
func (p Payload) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// NormalizeToolName は比較用にツール名を正規化する（小文字化し "_" と "-" を除く）
func NormalizeToolName(name string) string {
	name = strings.ToLower(name)
	return strings.NewReplacer("_", "", "-", "").Replace(name)
}

// IsTool はツール名が指定した名前と一致するか（正規化して比較）を返す
func IsTool(name, want string) bool {
	return NormalizeToolName(name) == NormalizeToolName(want)
}

// IsFileModifyingTool はファイルを変更するツールかどうかを返す
func IsFileModifyingTool(name string) bool {
	return fileModifyingTools[NormalizeToolName(name)]
}
