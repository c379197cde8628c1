package utils

import (
	"fmt"
	"math"
)

// Round1 は小数点以下1桁に丸める
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatMinutes は分数を表示用にフォーマットする
func FormatMinutes(minutes float64) string {
	if minutes < 1 {
		return fmt.Sprintf("%.0fs", minutes*60)
	}
	if minutes < 60 {
		return fmt.Sprintf("%.1fm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", int(minutes)/60, int(minutes)%60)
}

// FormatNumber は数値を3桁区切りでフォーマットする
func FormatNumber(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return sign + str
	}

	length := len(str)
	result := make([]byte, 0, length+length/3)
	for i := 0; i < length; i++ {
		if i > 0 && (length-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}

	return sign + string(result)
}
