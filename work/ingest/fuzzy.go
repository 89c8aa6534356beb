package ingest

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// TokenSortRatio scores the similarity of two channel names on a 0-100
// scale. Both names are lowercased, split into tokens and re-joined in
// sorted order before the edit distance is taken, so "HBO 2 HD" and
// "HD HBO 2" compare as identical. This mirrors the token-sort scorer the
// grouping stage has always used for folding provider name variants into one
// channel.
func TokenSortRatio(a, b string) int {
	na := normalizeTokens(a)
	nb := normalizeTokens(b)

	if na == nb {
		return 100
	}
	if na == "" || nb == "" {
		return 0
	}

	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}

	dist := levenshtein.ComputeDistance(na, nb)
	return (longest - dist) * 100 / longest
}

func normalizeTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
