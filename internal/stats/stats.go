package stats

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/y-hirakaw/cchook/internal/hookio"
	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/storage"
	"github.com/y-hirakaw/cchook/internal/utils"
	"github.com/y-hirakaw/cchook/pkg/types"
)

// 生産性スコア
const (
	ProductivityNone     = "none"
	ProductivityLow      = "low"
	ProductivityModerate = "moderate"
	ProductivityHigh     = "high"
	ProductivityVeryHigh = "very_high"
)

// 自動化効率
const (
	AutomationNoData   = "no_data"
	AutomationLow      = "low_automation"
	AutomationModerate = "moderate_automation"
	AutomationHigh     = "high_automation"
)

// MostUsedNone は内訳が空の場合の最多使用ツール
const MostUsedNone = "none"

var (
	automatedTools = map[string]bool{"bash": true, "write": true, "edit": true, "multiedit": true}
	manualTools    = map[string]bool{"read": true, "grep": true, "glob": true}
)

// ToolsPerMinute は1分あたりのツール使用数を小数点以下1桁で返す
func ToolsPerMinute(totalTools int, durationMinutes float64) float64 {
	if durationMinutes <= 0 {
		return 0
	}
	return utils.Round1(float64(totalTools) / durationMinutes)
}

// ProductivityScore はツール使用ペースから生産性スコアを判定する
func ProductivityScore(totalTools int, durationMinutes float64) string {
	if durationMinutes <= 0 {
		return ProductivityNone
	}

	perMinute := float64(totalTools) / durationMinutes
	switch {
	case perMinute < 0.5:
		return ProductivityLow
	case perMinute < 1.5:
		return ProductivityModerate
	case perMinute < 3:
		return ProductivityHigh
	default:
		return ProductivityVeryHigh
	}
}

// AutomationEfficiency は自動化ツールと手動ツールの比率を判定する
// ツール名は正規化して比較する
func AutomationEfficiency(breakdown map[string]int) string {
	var automated, manual int
	for name, count := range breakdown {
		normalized := hookio.NormalizeToolName(name)
		switch {
		case automatedTools[normalized]:
			automated += count
		case manualTools[normalized]:
			manual += count
		}
	}

	if automated+manual == 0 {
		return AutomationNoData
	}

	ratio := float64(automated) / float64(automated+manual)
	switch {
	case ratio < 0.3:
		return AutomationLow
	case ratio < 0.6:
		return AutomationModerate
	default:
		return AutomationHigh
	}
}

// MostUsedTool は最も使われたツールを返す（同数は名前の昇順）
func MostUsedTool(breakdown map[string]int) string {
	sorted := types.SortedToolCounts(breakdown)
	if len(sorted) == 0 {
		return MostUsedNone
	}
	return sorted[0].Name
}

// SummaryMessage はセッション完了通知の本文を返す
func SummaryMessage(report *types.SessionReport) string {
	if report.DurationMinutes < 1 {
		return i18n.T("notify_quick_session", report.TotalToolsUsed)
	}
	return i18n.T("notify_session_summary",
		report.TotalToolsUsed, report.DurationMinutes, report.SessionSummary.ProductivityScore)
}

// ReportInput はStopフックから渡されるセッション情報
type ReportInput struct {
	SessionID string
	// TotalTools が負の場合は内訳の合計を使う
	TotalTools int
	DurationMS float64
}

// StatsManager は統計情報管理を提供する
type StatsManager struct {
	store storage.Store
	now   func() time.Time
	newID func() string
}

// NewStatsManager は新しいStatsManagerインスタンスを作成する
func NewStatsManager(store storage.Store, now func() time.Time) *StatsManager {
	if now == nil {
		now = time.Now
	}
	return &StatsManager{
		store: store,
		now:   now,
		newID: uuid.NewString,
	}
}

// Breakdown はレポート用のツール内訳を返す
// セッションの記録があればそれを、なければ累積のtool_countsを使う
func (sm *StatsManager) Breakdown(sessionID string) (map[string]int, error) {
	if sessionID != "" && sessionID != types.UnknownSessionID {
		counts, err := sm.store.SessionBreakdown(sessionID)
		if err != nil {
			return nil, fmt.Errorf("セッション内訳の取得に失敗: %w", err)
		}
		if len(counts) > 0 {
			return counts, nil
		}
	}

	stats, err := sm.store.LoadStats()
	if err != nil {
		return nil, fmt.Errorf("統計の読み込みに失敗: %w", err)
	}
	return stats.ToolCounts, nil
}

// BuildReport はセッションレポートを生成する
func (sm *StatsManager) BuildReport(input ReportInput) (*types.SessionReport, error) {
	breakdown, err := sm.Breakdown(input.SessionID)
	if err != nil {
		return nil, err
	}
	if breakdown == nil {
		breakdown = map[string]int{}
	}

	total := input.TotalTools
	if total < 0 {
		total = 0
		for _, count := range breakdown {
			total += count
		}
	}

	var durationMinutes float64
	if input.DurationMS > 0 {
		durationMinutes = input.DurationMS / 60000
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = types.UnknownSessionID
	}

	return &types.SessionReport{
		ReportID:        sm.newID(),
		SessionID:       sessionID,
		SessionEnd:      sm.now(),
		DurationMinutes: utils.Round1(durationMinutes),
		TotalToolsUsed:  total,
		ToolsPerMinute:  ToolsPerMinute(total, durationMinutes),
		ToolBreakdown:   breakdown,
		SessionSummary: types.SessionSummary{
			ProductivityScore:    ProductivityScore(total, durationMinutes),
			AutomationEfficiency: AutomationEfficiency(breakdown),
			MostUsedTool:         MostUsedTool(breakdown),
		},
	}, nil
}

// Overview は stats コマンドで表示する集計
type Overview struct {
	Stats                *types.UsageStats `json:"stats"`
	SuccessRate          float64           `json:"success_rate"`
	TopTools             []types.ToolCount `json:"top_tools"`
	AutomationEfficiency string            `json:"automation_efficiency"`
	ActiveSessions       int               `json:"active_sessions"`
	TotalSessions        int               `json:"total_sessions"`
}

// GetOverview は累積統計と履歴から概要を作成する
func (sm *StatsManager) GetOverview(top int) (*Overview, error) {
	stats, err := sm.store.LoadStats()
	if err != nil {
		return nil, fmt.Errorf("統計の読み込みに失敗: %w", err)
	}
	history, err := sm.store.LoadHistory()
	if err != nil {
		return nil, fmt.Errorf("セッション履歴の読み込みに失敗: %w", err)
	}

	sorted := types.SortedToolCounts(stats.ToolCounts)
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}

	return &Overview{
		Stats:                stats,
		SuccessRate:          stats.SuccessRate(),
		TopTools:             sorted,
		AutomationEfficiency: AutomationEfficiency(stats.ToolCounts),
		ActiveSessions:       len(stats.Sessions),
		TotalSessions:        history.TotalSessions,
	}, nil
}
