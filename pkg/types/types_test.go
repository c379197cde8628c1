package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLogKind はLogKindの基本動作をテストする
func TestLogKind(t *testing.T) {
	day := time.Date(2025, 3, 7, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		kind     LogKind
		isValid  bool
		fileName string
	}{
		{"Usage", LogKindUsage, true, "usage_20250307.log"},
		{"Notifications", LogKindNotifications, true, "notifications_20250307.log"},
		{"Sessions", LogKindSessions, true, "sessions_20250307.log"},
		{"Invalid", LogKind("tool_usage"), false, "tool_usage_20250307.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.kind.IsValid())
			assert.Equal(t, tt.fileName, tt.kind.FileName(day))
		})
	}
}

// TestUsageEntry_Validate はUsageEntryの検証をテストする
func TestUsageEntry_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		entry   UsageEntry
		wantErr bool
	}{
		{"Valid", UsageEntry{Timestamp: now, ToolName: "bash"}, false},
		{"Empty tool", UsageEntry{Timestamp: now}, true},
		{"Zero timestamp", UsageEntry{ToolName: "bash"}, true},
		{"Negative duration", UsageEntry{Timestamp: now, ToolName: "bash", DurationMS: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestUsageEntry_NullExitCode は終了コード未指定時にnullで出力されることをテストする
func TestUsageEntry_NullExitCode(t *testing.T) {
	entry := UsageEntry{Timestamp: time.Now(), ToolName: "read", Success: true}

	line, err := entry.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))

	value, present := decoded["exit_code"]
	assert.True(t, present)
	assert.Nil(t, value)
	assert.NotContains(t, decoded, "encrypted_parameters")
}

// TestUsageStats_Record は統計の累積をテストする
func TestUsageStats_Record(t *testing.T) {
	stats := NewUsageStats()
	now := time.Now()

	stats.Record(&UsageEntry{ToolName: "bash", Success: true, SessionID: "s1"}, now)
	stats.Record(&UsageEntry{ToolName: "bash", Success: false, SessionID: "s1"}, now)
	stats.Record(&UsageEntry{ToolName: "edit", Success: true, SessionID: UnknownSessionID}, now)

	assert.Equal(t, 3, stats.TotalTools)
	assert.Equal(t, 2, stats.SuccessfulTools)
	assert.Equal(t, map[string]int{"bash": 2, "edit": 1}, stats.ToolCounts)
	assert.Equal(t, map[string]int{"bash": 2}, stats.Sessions["s1"])
	assert.NotContains(t, stats.Sessions, UnknownSessionID)
	require.NotNil(t, stats.LastUpdated)
	assert.InDelta(t, 66.66, stats.SuccessRate(), 0.1)
}

// TestUsageStats_RecordOnDecodedZeroValue はJSONから復元した統計（マップ未初期化）にも記録できることをテストする
func TestUsageStats_RecordOnDecodedZeroValue(t *testing.T) {
	var stats UsageStats
	require.NoError(t, json.Unmarshal([]byte(`{"total_tools":1,"successful_tools":1}`), &stats))

	stats.Record(&UsageEntry{ToolName: "write", Success: true, SessionID: "abc"}, time.Now())

	assert.Equal(t, 2, stats.TotalTools)
	assert.Equal(t, 1, stats.ToolCounts["write"])
}

func TestSortedToolCounts(t *testing.T) {
	got := SortedToolCounts(map[string]int{"read": 3, "bash": 3, "edit": 5, "glob": 1})

	require.Len(t, got, 4)
	assert.Equal(t, []ToolCount{
		{Name: "edit", Count: 5},
		{Name: "bash", Count: 3},
		{Name: "read", Count: 3},
		{Name: "glob", Count: 1},
	}, got)
}

// TestSessionHistory_Append は履歴の上限と累計カウントをテストする
func TestSessionHistory_Append(t *testing.T) {
	history := &SessionHistory{}

	for i := 0; i < 55; i++ {
		history.Append(&SessionReport{
			SessionEnd:     time.Unix(int64(i), 0),
			TotalToolsUsed: i,
		}, 50)
	}

	assert.Len(t, history.Sessions, 50)
	assert.Equal(t, 55, history.TotalSessions)
	assert.Equal(t, 5, history.Sessions[0].TotalTools)
	assert.Equal(t, 54, history.Sessions[49].TotalTools)
}
