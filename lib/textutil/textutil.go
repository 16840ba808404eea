package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Narrow folds full-width forms (ex. "１２．５０", "：") into their ASCII
// equivalents, pages in Chinese mix both freely.
func Narrow(text string) string {
	return width.Narrow.String(text)
}

// CollapseWhitespace trims `text` and replaces every run of whitespace with
// a single space.
func CollapseWhitespace(text string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(text), " ")
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// KeepDigits returns the ASCII digits of `text` in their original order.
func KeepDigits(text string) string {
	var out strings.Builder
	for _, c := range text {
		if isDigit(c) {
			out.WriteRune(c)
		}
	}
	return out.String()
}

// KeepDecimal returns the ASCII digits and decimal points of `text` in their
// original order. The result is not guaranteed to be a valid number, ex.
// "1.2.3" or ".".
func KeepDecimal(text string) string {
	var out strings.Builder
	for _, c := range text {
		if isDigit(c) || c == '.' {
			out.WriteRune(c)
		}
	}
	return out.String()
}
