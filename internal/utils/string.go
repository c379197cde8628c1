package utils

import (
	"fmt"
	"strings"
)

// TruncateString は文字列を指定された長さで切り詰め、必要に応じて省略記号を追加する
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	if maxLength <= 3 {
		return strings.Repeat(".", maxLength)
	}

	return string(runes[:maxLength-3]) + "..."
}

// Preview は先頭maxLength文字に省略記号を付けた通知用の文字列を返す
// 短い文字列にも省略記号を付ける
func Preview(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) > maxLength {
		runes = runes[:maxLength]
	}
	return string(runes) + "..."
}

// FormatPercentage はパーセンテージを適切にフォーマットする
func FormatPercentage(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
