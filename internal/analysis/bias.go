package analysis

import (
	"strings"

	"github.com/dyike/MacroAgent/consts"
)

var (
	positiveKeywords = []string{"성장", "회복", "상승", "개선", "완화", "호조", "확대", "증가"}
	negativeKeywords = []string{"위험", "하락", "침체", "악화", "긴축", "부담", "위축", "감소"}
)

// DetermineBias compares how many distinct optimistic keywords appear in
// the positive summary against distinct pessimistic keywords in the
// negative one.
func DetermineBias(positive, negative string) string {
	pos := countPresent(positive, positiveKeywords)
	neg := countPresent(negative, negativeKeywords)

	total := pos + neg
	if total == 0 {
		return consts.BiasUncertain
	}

	ratio := float64(pos) / float64(total)
	switch {
	case ratio > 0.6:
		return consts.BiasBullish
	case ratio < 0.4:
		return consts.BiasBearish
	default:
		return consts.BiasNeutral
	}
}

func countPresent(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
