package utils

import (
	"strconv"
	"strings"
	"unicode"
)

// CapitalInfo records which runes of a typed prefix were upper case.
type CapitalInfo struct {
	upper []bool
	any   bool
}

// ProcessCapitals returns the lower-cased string and its capitalisation.
func ProcessCapitals(s string) (string, CapitalInfo) {
	var info CapitalInfo
	for _, r := range s {
		up := unicode.IsUpper(r)
		info.upper = append(info.upper, up)
		info.any = info.any || up
	}
	return strings.ToLower(s), info
}

// ApplyCapitals upper-cases the runes of word at the positions that were
// upper case in the original prefix.
func ApplyCapitals(word string, info CapitalInfo) string {
	if !info.any {
		return word
	}
	runes := []rune(word)
	for i := 0; i < len(runes) && i < len(info.upper); i++ {
		if info.upper[i] {
			runes[i] = unicode.ToUpper(runes[i])
		}
	}
	return string(runes)
}

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n int) string {
	s := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String()
}
