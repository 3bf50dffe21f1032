// Package lang decides whether a piece of text reads as English or as the
// primary (Chinese) language.
//
// IsEnglish is the strict check used by the content audit: three or more CJK
// characters always mean "not English". IsEnglishSlot relaxes it for short
// all-Latin text sitting in an English slot. IsEnglishTitle is the quick
// title audit check and only looks at the Latin share of meaningful
// characters. IsEnglish and IsEnglishTitle disagree on mixed input such as
// "OpenAI 发布新模型".
package lang

import (
	"unicode"
	"unicode/utf8"
)

const (
	minStrictLen      = 5
	cjkOverride       = 3
	strictLatinRatio  = 0.4
	titleLatinRatio   = 0.5
	MinPrimarySummary = 30
)

// IsEnglish is the strict content classifier.
func IsEnglish(s string) bool {
	total := utf8.RuneCountInString(s)
	if total < minStrictLen {
		return false
	}

	cjk, latin := 0, 0
	for _, r := range s {
		switch {
		case isCJK(r):
			cjk++
		case isLatin(r):
			latin++
		}
	}
	if cjk >= cjkOverride {
		return false
	}
	return float64(latin)/float64(total) > strictLatinRatio
}

// IsEnglishTitle is the quick title-only classifier.
func IsEnglishTitle(s string) bool {
	meaningful, latin := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		meaningful++
		if isLatin(r) {
			latin++
		}
	}
	if meaningful == 0 {
		return false
	}
	return float64(latin)/float64(meaningful) > titleLatinRatio
}

// IsEnglishSlot reports whether s may stay in an English slot. Beyond the
// strict check it accepts short names such as "Meta" or "Sora" that carry no
// CJK characters at all.
func IsEnglishSlot(s string) bool {
	if IsEnglish(s) {
		return true
	}
	if CountCJK(s) > 0 || utf8.RuneCountInString(s) >= minStrictLen {
		return false
	}
	for _, r := range s {
		if isLatin(r) {
			return true
		}
	}
	return false
}

// CountCJK returns the number of CJK unified ideographs in s.
func CountCJK(s string) int {
	n := 0
	for _, r := range s {
		if isCJK(r) {
			n++
		}
	}
	return n
}

func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isLatin(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
