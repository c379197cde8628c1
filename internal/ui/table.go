package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table は固定データを表示する単純な表
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable は新しいTableを作成する
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// AddRow は行を追加する
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render は表を文字列にする。行が無い場合は空文字列を返す
func (t *Table) Render(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	// 左右のパディング分
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	sep := styles.Muted.Render("│")

	cells := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		cells[i] = styles.Header.Width(widths[i]).Render(h)
	}
	sb.WriteString(strings.Join(cells, sep))
	sb.WriteString("\n")

	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(styles.Muted.Render(strings.Repeat("─", total)))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		cells = cells[:0]
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells = append(cells, styles.Cell.Width(widths[i]).Render(cell))
		}
		sb.WriteString(strings.Join(cells, sep))
		sb.WriteString("\n")
	}

	return sb.String()
}
