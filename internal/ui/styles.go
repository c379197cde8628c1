// Package ui は stats・history コマンドの端末表示を扱う
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent  = lipgloss.Color("#8BC34A")
	colorInfo    = lipgloss.Color("#2196F3")
	colorWarning = lipgloss.Color("#FFC107")
	colorDanger  = lipgloss.Color("#e53935")
	colorMuted   = lipgloss.Color("#8a8f98")
)

// Styles は表示に使うスタイルの組
type Styles struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Good    lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
	Box     lipgloss.Style
}

// DefaultStyles はデフォルトのスタイルを返す
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Section: lipgloss.NewStyle().Bold(true).Foreground(colorInfo).MarginTop(1),
		Label:   lipgloss.NewStyle().Foreground(colorMuted).Width(22),
		Value:   lipgloss.NewStyle().Bold(true),
		Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted),
		Good:    lipgloss.NewStyle().Foreground(colorAccent),
		Warn:    lipgloss.NewStyle().Foreground(colorWarning),
		Bad:     lipgloss.NewStyle().Foreground(colorDanger),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1),
	}
}

// PlainStyles は装飾なしのスタイルを返す（--no-color 用）
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:   plain,
		Section: plain.MarginTop(1),
		Label:   plain.Width(22),
		Value:   plain,
		Header:  plain.Padding(0, 1),
		Cell:    plain.Padding(0, 1),
		Muted:   plain,
		Good:    plain,
		Warn:    plain,
		Bad:     plain,
		Box:     plain,
	}
}
