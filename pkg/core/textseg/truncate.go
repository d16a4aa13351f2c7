// Package textseg bounds text to a character budget at natural boundaries.
// Speech synthesis backends enforce hard input limits, so replies are cut at
// a sentence end when one is close enough, then at a word boundary, then at
// the raw budget.
package textseg

import "unicode/utf8"

// Ellipsis is appended whenever a cut does not land on a sentence end.
const Ellipsis = "..."

const ellipsisLen = len(Ellipsis)

const (
	// A sentence terminator is only used when it keeps at least this share
	// of the budget.
	sentenceShare = 0.8
	// A word boundary is only used when it keeps at least this share.
	wordShare = 0.9
)

// Truncate bounds text to at most max characters, preferring a complete
// final sentence. The budget counts characters, not bytes, so multi-byte
// text is never cut mid-rune. Text within budget is returned unchanged.
// It is pure, total, and idempotent.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}

	window := []rune(text)[:max]

	if i := lastIndexAny(window, '.', '!', '?'); i >= 0 && float64(i) >= sentenceShare*float64(max) {
		return string(window[:i+1])
	}

	// The word cut must leave room for the ellipsis within the budget, or
	// a second pass would shorten the result again.
	if i := lastIndexAny(window, ' '); i >= 0 && float64(i) >= wordShare*float64(max) && i+ellipsisLen <= max {
		return string(window[:i]) + Ellipsis
	}

	return string(window) + Ellipsis
}

func lastIndexAny(window []rune, chars ...rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		for _, c := range chars {
			if window[i] == c {
				return i
			}
		}
	}
	return -1
}
