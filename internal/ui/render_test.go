package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/y-hirakaw/cchook/internal/stats"
	"github.com/y-hirakaw/cchook/pkg/types"
)

func TestTable_Render(t *testing.T) {
	table := NewTable("Tool", "Count")
	assert.Empty(t, table.Render(PlainStyles()))

	table.AddRow("Bash", "12")
	table.AddRow("MultiEdit", "3")

	out := table.Render(PlainStyles())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Tool")
	assert.Contains(t, lines[2], "Bash")
	assert.Contains(t, lines[3], "MultiEdit")
}

func TestTable_RenderShortRow(t *testing.T) {
	table := NewTable("A", "B", "C")
	table.AddRow("only")

	out := table.Render(PlainStyles())
	assert.Contains(t, out, "only")
}

func TestRenderer_OverviewEmpty(t *testing.T) {
	r := NewRenderer(false)
	out := r.Overview(&stats.Overview{Stats: types.NewUsageStats()})
	assert.Contains(t, out, "No tool usage recorded yet")
}

func TestRenderer_Overview(t *testing.T) {
	updated := time.Date(2025, 1, 15, 10, 30, 0, 0, time.Local)
	s := types.NewUsageStats()
	s.TotalTools = 1200
	s.SuccessfulTools = 1100
	s.ToolCounts = map[string]int{"Bash": 900, "Read": 300}
	s.LastUpdated = &updated

	out := NewRenderer(false).Overview(&stats.Overview{
		Stats:                s,
		SuccessRate:          s.SuccessRate(),
		TopTools:             types.SortedToolCounts(s.ToolCounts),
		AutomationEfficiency: stats.AutomationHigh,
		ActiveSessions:       2,
		TotalSessions:        7,
	})

	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "91.7%")
	assert.Contains(t, out, "high_automation")
	assert.Contains(t, out, "2025-01-15 10:30:00")
	assert.Contains(t, out, "Top tools")
	assert.Contains(t, out, "75.0%")
	assert.Less(t, strings.Index(out, "Bash"), strings.Index(out, "Read"))
}

func TestRenderer_HistoryEmpty(t *testing.T) {
	out := NewRenderer(false).History(&types.SessionHistory{}, 0)
	assert.Contains(t, out, "No sessions recorded yet")
}

func TestRenderer_HistoryNewestFirstWithLimit(t *testing.T) {
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.Local)
	h := &types.SessionHistory{TotalSessions: 60}
	for i, id := range []string{"first", "second", "third"} {
		h.Sessions = append(h.Sessions, types.HistoryEntry{
			Timestamp:            base.Add(time.Duration(i) * time.Hour),
			SessionID:            id,
			DurationMinutes:      12.5,
			TotalTools:           30,
			ProductivityScore:    stats.ProductivityHigh,
			AutomationEfficiency: stats.AutomationModerate,
		})
	}

	out := NewRenderer(false).History(h, 2)
	assert.Contains(t, out, "third")
	assert.Contains(t, out, "second")
	assert.NotContains(t, out, "first")
	assert.Less(t, strings.Index(out, "third"), strings.Index(out, "second"))
	assert.Contains(t, out, "12.5m")
	assert.Contains(t, out, "Showing 2 of 3 sessions (60 total)")
}
