package ui

import (
	"fmt"
	"strings"

	"github.com/y-hirakaw/cchook/internal/stats"
	"github.com/y-hirakaw/cchook/internal/utils"
	"github.com/y-hirakaw/cchook/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// Renderer は統計と履歴を端末向けに整形する
type Renderer struct {
	styles Styles
}

// NewRenderer は新しいRendererを作成する
func NewRenderer(color bool) *Renderer {
	if color {
		return &Renderer{styles: DefaultStyles()}
	}
	return &Renderer{styles: PlainStyles()}
}

func (r *Renderer) row(label, value string) string {
	return r.styles.Label.Render(label) + r.styles.Value.Render(value) + "\n"
}

// level は生産性・自動化の評価に応じた色を返す
func (r *Renderer) level(value string) string {
	switch value {
	case stats.ProductivityHigh, stats.ProductivityVeryHigh, stats.AutomationHigh:
		return r.styles.Good.Render(value)
	case stats.ProductivityModerate, stats.AutomationModerate:
		return r.styles.Warn.Render(value)
	case stats.ProductivityLow, stats.AutomationLow:
		return r.styles.Bad.Render(value)
	default:
		return r.styles.Muted.Render(value)
	}
}

// Overview は stats コマンドの出力を作成する
func (r *Renderer) Overview(o *stats.Overview) string {
	var sb strings.Builder
	sb.WriteString(r.styles.Title.Render("📊 Claude Code Usage"))
	sb.WriteString("\n\n")

	if o.Stats.TotalTools == 0 {
		sb.WriteString(r.styles.Muted.Render("No tool usage recorded yet"))
		sb.WriteString("\n")
		return sb.String()
	}

	var body strings.Builder
	body.WriteString(r.row("Total tools", utils.FormatNumber(o.Stats.TotalTools)))
	body.WriteString(r.row("Successful", utils.FormatNumber(o.Stats.SuccessfulTools)))
	body.WriteString(r.row("Success rate", utils.FormatPercentage(o.SuccessRate)))
	body.WriteString(r.styles.Label.Render("Automation") + r.level(o.AutomationEfficiency) + "\n")
	lastUpdated := "-"
	if o.Stats.LastUpdated != nil {
		lastUpdated = o.Stats.LastUpdated.Format(timeLayout)
	}
	body.WriteString(r.row("Active sessions", fmt.Sprintf("%d", o.ActiveSessions)))
	body.WriteString(r.row("Completed sessions", fmt.Sprintf("%d", o.TotalSessions)))
	body.WriteString(r.row("Last updated", lastUpdated))

	sb.WriteString(r.styles.Box.Render(strings.TrimRight(body.String(), "\n")))
	sb.WriteString("\n")

	if len(o.TopTools) > 0 {
		sb.WriteString(r.styles.Section.Render("Top tools"))
		sb.WriteString("\n")
		table := NewTable("Tool", "Count", "Share")
		for _, tc := range o.TopTools {
			share := float64(tc.Count) / float64(o.Stats.TotalTools) * 100
			table.AddRow(tc.Name, utils.FormatNumber(tc.Count), utils.FormatPercentage(share))
		}
		sb.WriteString(table.Render(r.styles))
	}

	return sb.String()
}

// History は history コマンドの出力を作成する
// limit が正の場合は新しい順に limit 件まで表示する
func (r *Renderer) History(h *types.SessionHistory, limit int) string {
	var sb strings.Builder
	sb.WriteString(r.styles.Title.Render("🕘 Session History"))
	sb.WriteString("\n\n")

	if len(h.Sessions) == 0 {
		sb.WriteString(r.styles.Muted.Render("No sessions recorded yet"))
		sb.WriteString("\n")
		return sb.String()
	}

	table := NewTable("Ended", "Session", "Duration", "Tools", "Productivity", "Automation")
	shown := 0
	for i := len(h.Sessions) - 1; i >= 0; i-- {
		if limit > 0 && shown >= limit {
			break
		}
		entry := h.Sessions[i]
		session := entry.SessionID
		if session == "" {
			session = types.UnknownSessionID
		}
		table.AddRow(
			entry.Timestamp.Format(timeLayout),
			utils.TruncateString(session, 12),
			utils.FormatMinutes(entry.DurationMinutes),
			utils.FormatNumber(entry.TotalTools),
			r.level(entry.ProductivityScore),
			r.level(entry.AutomationEfficiency),
		)
		shown++
	}
	sb.WriteString(table.Render(r.styles))
	sb.WriteString(r.styles.Muted.Render(fmt.Sprintf("Showing %d of %d sessions (%d total)", shown, len(h.Sessions), h.TotalSessions)))
	sb.WriteString("\n")

	return sb.String()
}
