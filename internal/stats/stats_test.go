package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/storage"
	"github.com/y-hirakaw/cchook/pkg/types"
)

var fixedNow = time.Date(2025, 3, 1, 18, 0, 0, 0, time.Local)

func TestMain(m *testing.M) {
	i18n.SetLocale(i18n.LocaleEN)
	m.Run()
}

func TestToolsPerMinute(t *testing.T) {
	assert.Equal(t, 0.0, ToolsPerMinute(10, 0))
	assert.Equal(t, 3.3, ToolsPerMinute(10, 3))
	assert.Equal(t, 0.5, ToolsPerMinute(1, 2))
}

func TestProductivityScore(t *testing.T) {
	tests := []struct {
		name     string
		tools    int
		minutes  float64
		expected string
	}{
		{"Zero duration", 10, 0, ProductivityNone},
		{"Low", 2, 10, ProductivityLow},
		{"Moderate boundary", 5, 10, ProductivityModerate},
		{"High", 20, 10, ProductivityHigh},
		{"Very high boundary", 30, 10, ProductivityVeryHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProductivityScore(tt.tools, tt.minutes))
		})
	}
}

func TestAutomationEfficiency(t *testing.T) {
	tests := []struct {
		name      string
		breakdown map[string]int
		expected  string
	}{
		{"Empty", nil, AutomationNoData},
		{"Only unrelated tools", map[string]int{"WebFetch": 3}, AutomationNoData},
		{"Low", map[string]int{"Bash": 1, "Read": 9}, AutomationLow},
		{"Moderate", map[string]int{"Edit": 3, "Grep": 7}, AutomationModerate},
		{"High", map[string]int{"MultiEdit": 3, "multi_edit": 3, "Glob": 4}, AutomationHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AutomationEfficiency(tt.breakdown))
		})
	}
}

func TestMostUsedTool(t *testing.T) {
	assert.Equal(t, MostUsedNone, MostUsedTool(nil))
	assert.Equal(t, "Edit", MostUsedTool(map[string]int{"Edit": 4, "Bash": 2}))
	// 同数は名前の昇順
	assert.Equal(t, "Bash", MostUsedTool(map[string]int{"Read": 3, "Bash": 3}))
}

func TestSummaryMessage(t *testing.T) {
	quick := &types.SessionReport{DurationMinutes: 0.5, TotalToolsUsed: 4}
	assert.Equal(t, "Quick session: 4 tools used", SummaryMessage(quick))

	long := &types.SessionReport{
		DurationMinutes: 12.5,
		TotalToolsUsed:  30,
		SessionSummary:  types.SessionSummary{ProductivityScore: "high"},
	}
	assert.Equal(t, "Session: 30 tools in 12.5m (high productivity)", SummaryMessage(long))
}

func newManager(t *testing.T) (*StatsManager, storage.Store) {
	t.Helper()
	store, err := storage.NewJSONLStore(storage.StorageConfig{
		Dir: filepath.Join(t.TempDir(), "logs"),
		Now: func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	sm := NewStatsManager(store, func() time.Time { return fixedNow })
	sm.newID = func() string { return "report-1" }
	return sm, store
}

func record(t *testing.T, store storage.Store, tool, session string) {
	t.Helper()
	_, err := store.RecordUsage(&types.UsageEntry{
		Timestamp: fixedNow, ToolName: tool, Success: true, SessionID: session,
	})
	require.NoError(t, err)
}

func TestBuildReport_UsesSessionBreakdown(t *testing.T) {
	sm, store := newManager(t)
	record(t, store, "Edit", "s1")
	record(t, store, "Edit", "s1")
	record(t, store, "Read", "s1")
	record(t, store, "Bash", "s2")

	report, err := sm.BuildReport(ReportInput{SessionID: "s1", TotalTools: 12, DurationMS: 360000})
	require.NoError(t, err)

	assert.Equal(t, "report-1", report.ReportID)
	assert.Equal(t, "s1", report.SessionID)
	assert.Equal(t, fixedNow, report.SessionEnd)
	assert.Equal(t, 6.0, report.DurationMinutes)
	assert.Equal(t, 12, report.TotalToolsUsed)
	assert.Equal(t, 2.0, report.ToolsPerMinute)
	assert.Equal(t, map[string]int{"Edit": 2, "Read": 1}, report.ToolBreakdown)
	assert.Equal(t, ProductivityHigh, report.SessionSummary.ProductivityScore)
	assert.Equal(t, AutomationHigh, report.SessionSummary.AutomationEfficiency)
	assert.Equal(t, "Edit", report.SessionSummary.MostUsedTool)
}

func TestBuildReport_FallsBackToCumulative(t *testing.T) {
	sm, store := newManager(t)
	record(t, store, "Grep", "s1")
	record(t, store, "Bash", "s2")

	report, err := sm.BuildReport(ReportInput{SessionID: "", TotalTools: -1})
	require.NoError(t, err)

	assert.Equal(t, types.UnknownSessionID, report.SessionID)
	assert.Equal(t, map[string]int{"Grep": 1, "Bash": 1}, report.ToolBreakdown)
	assert.Equal(t, 2, report.TotalToolsUsed)
	assert.Equal(t, 0.0, report.ToolsPerMinute)
	assert.Equal(t, ProductivityNone, report.SessionSummary.ProductivityScore)
	assert.Equal(t, "Bash", report.SessionSummary.MostUsedTool)
}

func TestBuildReport_EmptyStore(t *testing.T) {
	sm, _ := newManager(t)

	report, err := sm.BuildReport(ReportInput{SessionID: "s1", TotalTools: 0})
	require.NoError(t, err)
	assert.NotNil(t, report.ToolBreakdown)
	assert.Equal(t, AutomationNoData, report.SessionSummary.AutomationEfficiency)
	assert.Equal(t, MostUsedNone, report.SessionSummary.MostUsedTool)
}

func TestGetOverview(t *testing.T) {
	sm, store := newManager(t)
	for _, tool := range []string{"Bash", "Bash", "Read", "Edit", "Glob"} {
		record(t, store, tool, "s1")
	}

	overview, err := sm.GetOverview(2)
	require.NoError(t, err)
	assert.Equal(t, 5, overview.Stats.TotalTools)
	assert.Equal(t, 100.0, overview.SuccessRate)
	require.Len(t, overview.TopTools, 2)
	assert.Equal(t, types.ToolCount{Name: "Bash", Count: 2}, overview.TopTools[0])
	assert.Equal(t, "Edit", overview.TopTools[1].Name)
	assert.Equal(t, 1, overview.ActiveSessions)
	assert.Equal(t, AutomationHigh, overview.AutomationEfficiency)
}
