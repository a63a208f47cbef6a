package itunes

import (
	"strings"
	"unicode/utf8"
)

// MaxTermLength は検索語の最大文字数（トリム後）。
const MaxTermLength = 100

// IsValidTerm は検索語がトリム後に1文字以上100文字以下であるかを判定する。
func IsValidTerm(term string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(term))
	return n > 0 && n <= MaxTermLength
}

// SanitizeTerm は検索語をトリムして小文字化する。冪等。
func SanitizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
