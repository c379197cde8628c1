package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// LogKind はログ日付ファイルの種類を表す
type LogKind string

const (
	// LogKindUsage はツール使用ログ
	LogKindUsage LogKind = "usage"
	// LogKindNotifications は通知ログ
	LogKindNotifications LogKind = "notifications"
	// LogKindSessions はセッション開始・終了ログ
	LogKindSessions LogKind = "sessions"
)

// IsValid はLogKindが有効かどうかをチェックする
func (k LogKind) IsValid() bool {
	switch k {
	case LogKindUsage, LogKindNotifications, LogKindSessions:
		return true
	default:
		return false
	}
}

// String はLogKindの文字列表現を返す
func (k LogKind) String() string {
	return string(k)
}

// FileName は指定日付のログファイル名を返す（例: usage_20250101.log）
func (k LogKind) FileName(t time.Time) string {
	return fmt.Sprintf("%s_%s.log", k, t.Format("20060102"))
}

// UsageEntry は1回のツール使用を表すログ行
type UsageEntry struct {
	// Timestamp はフックが実行された時刻
	Timestamp time.Time `json:"timestamp"`
	// ToolName はツール名（空の場合は "unknown"）
	ToolName string `json:"tool_name"`
	// ExitCode はツールの終了コード（入力に無い場合は null）
	ExitCode *int `json:"exit_code"`
	// DurationMS は実行時間（ミリ秒）
	DurationMS float64 `json:"duration_ms"`
	// Success は終了コードが0（または未指定）かどうか
	Success bool `json:"success"`
	// Parameters はツールに渡されたパラメータ（マスク済み）
	Parameters map[string]any `json:"parameters,omitempty"`
	// EncryptedParameters は暗号化されたパラメータ（base64）
	EncryptedParameters string `json:"encrypted_parameters,omitempty"`
	// SessionID はセッション識別子
	SessionID string `json:"session_id"`
}

// Validate はUsageEntryが有効かどうかをチェックする
func (u *UsageEntry) Validate() error {
	if u.ToolName == "" {
		return fmt.Errorf("ツール名は空にできません")
	}
	if u.Timestamp.IsZero() {
		return fmt.Errorf("タイムスタンプが設定されていません")
	}
	if u.DurationMS < 0 {
		return fmt.Errorf("実行時間は負の値にできません")
	}
	return nil
}

// ToJSON はUsageEntryを1行のJSONに変換する
func (u *UsageEntry) ToJSON() (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("使用ログのJSON変換に失敗: %w", err)
	}
	return string(data), nil
}

// NotificationRecord は送信された通知のログ行
type NotificationRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Urgent    bool      `json:"urgent"`
	Type      string    `json:"type"`
}

// SessionEvent はセッション開始・終了のログ行
type SessionEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	Event          string    `json:"event"`
	SessionID      string    `json:"session_id"`
	TotalToolsUsed int       `json:"total_tools_used"`
	DurationMS     float64   `json:"duration_ms"`
}

// UsageStats はstats.jsonに保存される累積統計
type UsageStats struct {
	TotalTools      int                       `json:"total_tools"`
	SuccessfulTools int                       `json:"successful_tools"`
	ToolCounts      map[string]int            `json:"tool_counts"`
	LastUpdated     *time.Time                `json:"last_updated"`
	Sessions        map[string]map[string]int `json:"sessions,omitempty"`
}

// NewUsageStats は空の統計を作成する
func NewUsageStats() *UsageStats {
	return &UsageStats{
		ToolCounts: make(map[string]int),
		Sessions:   make(map[string]map[string]int),
	}
}

// Record は使用ログ1件を統計に反映する
func (s *UsageStats) Record(entry *UsageEntry, now time.Time) {
	if s.ToolCounts == nil {
		s.ToolCounts = make(map[string]int)
	}
	if s.Sessions == nil {
		s.Sessions = make(map[string]map[string]int)
	}

	s.TotalTools++
	if entry.Success {
		s.SuccessfulTools++
	}
	s.ToolCounts[entry.ToolName]++

	// セッション不明のエントリはセッション別集計に含めない
	if entry.SessionID != "" && entry.SessionID != UnknownSessionID {
		counts, ok := s.Sessions[entry.SessionID]
		if !ok {
			counts = make(map[string]int)
			s.Sessions[entry.SessionID] = counts
		}
		counts[entry.ToolName]++
	}

	ts := now
	s.LastUpdated = &ts
}

// SuccessRate は成功率（%）を返す
func (s *UsageStats) SuccessRate() float64 {
	if s.TotalTools == 0 {
		return 0
	}
	return float64(s.SuccessfulTools) / float64(s.TotalTools) * 100
}

// ToolCount はツール名と回数の組
type ToolCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SortedToolCounts は回数の降順（同数は名前の昇順）でツールを返す
func SortedToolCounts(counts map[string]int) []ToolCount {
	result := make([]ToolCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, ToolCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// UnknownSessionID はセッションIDが取得できない場合の値
const UnknownSessionID = "unknown"

// SessionSummary はセッションレポートの要約部分
type SessionSummary struct {
	ProductivityScore    string `json:"productivity_score"`
	AutomationEfficiency string `json:"automation_efficiency"`
	MostUsedTool         string `json:"most_used_tool"`
}

// SessionReport はStopフックで生成されるセッションレポート
type SessionReport struct {
	ReportID        string         `json:"report_id"`
	SessionID       string         `json:"session_id"`
	SessionEnd      time.Time      `json:"session_end"`
	DurationMinutes float64        `json:"duration_minutes"`
	TotalToolsUsed  int            `json:"total_tools_used"`
	ToolsPerMinute  float64        `json:"tools_per_minute"`
	ToolBreakdown   map[string]int `json:"tool_breakdown"`
	SessionSummary  SessionSummary `json:"session_summary"`
}

// HistoryEntry はセッション履歴の1件
type HistoryEntry struct {
	Timestamp            time.Time `json:"timestamp"`
	SessionID            string    `json:"session_id,omitempty"`
	DurationMinutes      float64   `json:"duration_minutes"`
	TotalTools           int       `json:"total_tools"`
	ProductivityScore    string    `json:"productivity_score"`
	AutomationEfficiency string    `json:"automation_efficiency"`
}

// SessionHistory はsession_history.jsonの内容
type SessionHistory struct {
	Sessions      []HistoryEntry `json:"sessions"`
	TotalSessions int            `json:"total_sessions"`
}

// Append はレポートを履歴に追加し、最新maxEntries件のみを保持する
func (h *SessionHistory) Append(report *SessionReport, maxEntries int) {
	h.Sessions = append(h.Sessions, HistoryEntry{
		Timestamp:            report.SessionEnd,
		SessionID:            report.SessionID,
		DurationMinutes:      report.DurationMinutes,
		TotalTools:           report.TotalToolsUsed,
		ProductivityScore:    report.SessionSummary.ProductivityScore,
		AutomationEfficiency: report.SessionSummary.AutomationEfficiency,
	})
	if maxEntries > 0 && len(h.Sessions) > maxEntries {
		h.Sessions = append([]HistoryEntry(nil), h.Sessions[len(h.Sessions)-maxEntries:]...)
	}
	h.TotalSessions++
}

// AuditRecord はブロックされた操作の監査ログ
type AuditRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	User      string         `json:"user"`
	SessionID string         `json:"session_id"`
	ToolName  string         `json:"tool_name"`
	Reason    string         `json:"reason"`
	Details   map[string]any `json:"details,omitempty"`
}
