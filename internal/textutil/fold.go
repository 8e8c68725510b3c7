package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s in a form suitable for case-insensitive comparison: NFKC
// normalized, Unicode case folded, with runs of whitespace collapsed to a
// single space.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// Casers carry state and must not be shared between goroutines.
	folded := cases.Fold().String(norm.NFKC.String(s))
	return CollapseSpace(folded)
}

// CollapseSpace trims s and replaces every run of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits the folded form of s on whitespace, dropping tokens shorter
// than two runes.
func Tokens(s string) []string {
	fields := strings.Fields(Fold(s))
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// ContainsFold reports whether needle occurs in haystack ignoring case.
// An empty needle never matches.
func ContainsFold(haystack, needle string) bool {
	needle = Fold(needle)
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), needle)
}

// EqualFold reports whether a and b are equal after folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Title renders a machine label ("elevated", "queued") for display.
func Title(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(s)
}

// StripControl removes non-printing runes from free-form user input such as
// donation messages.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != ' ' {
			return ' '
		}
		return r
	}, s)
}
