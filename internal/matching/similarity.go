package matching

import (
	"strings"

	"songline/internal/textutil"
)

// Similarity scores two strings in [0, 1] by the Jaccard index of their
// folded token sets, plus 0.1 when one contains the other. Folded equality
// scores 1.
func Similarity(a, b string) float64 {
	fa, fb := textutil.Fold(a), textutil.Fold(b)
	if fa == fb {
		return 1
	}
	if fa == "" || fb == "" {
		return 0
	}

	ta, tb := tokenSet(fa), tokenSet(fb)
	union := len(ta)
	inter := 0
	for tok := range tb {
		if _, ok := ta[tok]; ok {
			inter++
		} else {
			union++
		}
	}
	score := 0.0
	if union > 0 {
		score = float64(inter) / float64(union)
	}
	if strings.Contains(fa, fb) || strings.Contains(fb, fa) {
		score += 0.1
	}
	return min(score, 1)
}

func tokenSet(folded string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range textutil.Tokens(folded) {
		set[tok] = struct{}{}
	}
	return set
}
