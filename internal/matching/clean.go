package matching

import (
	"regexp"
	"strings"

	"songline/internal/textutil"
)

var (
	bracketPattern   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}|【[^】]*】`)
	marketingPattern = regexp.MustCompile(`(?i)\b(?:official\s+(?:music\s+)?(?:lyric\s+video|video|audio|visualizer)|lyrics?\s+video|lyrics|visualizer|remastered(?:\s+\d{4})?|remaster(?:\s+\d{4})?|\d{4}\s+remaster(?:ed)?|hd|hq|4k|mv|audio|video)\b`)
	quotePattern     = regexp.MustCompile(`["“”„«»]|(?:^|\s)'|'(?:\s|$)`)
	separatorPattern = regexp.MustCompile(`(?:^|\s)[-–—|~•:/]+(?:\s|$)`)
)

// Clean strips annotations, marketing tokens, quotes and separator
// punctuation from s and collapses whitespace.
func Clean(s string) string {
	s = bracketPattern.ReplaceAllString(s, " ")
	s = marketingPattern.ReplaceAllString(s, " ")
	s = quotePattern.ReplaceAllString(s, " ")
	s = separatorPattern.ReplaceAllString(s, " ")
	// A second pass catches separators exposed by the removals above.
	s = separatorPattern.ReplaceAllString(s, " ")
	return textutil.CollapseSpace(s)
}

func degenerate(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(" -–—|~•:/\"'", r) {
			return false
		}
	}
	return true
}
