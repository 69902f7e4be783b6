package matching

import (
	"strings"
	"unicode/utf8"
)

const (
	// containmentScore is the floor applied when one name contains the other.
	containmentScore = 0.9
	// minContainedLen is the shortest name eligible for the containment floor.
	minContainedLen = 3
	// autojunkMinLen mirrors the sequence matcher's popularity heuristic, which
	// only kicks in for long second sequences.
	autojunkMinLen = 200
)

// Score returns how alike two normalized team names are, in [0,1]. Equal
// names score 1. Otherwise the sequence-matcher ratio is used, raised to at
// least 0.9 when one name of three or more characters appears inside the
// other. Score(a, b) == Score(b, a).
func Score(a, b string) float64 {
	if a == b {
		return 1
	}
	s := Ratio(a, b)
	s = BoostContained(s, a, b, minContainedLen)
	s = BoostContained(s, b, a, minContainedLen)
	return s
}

// BoostContained raises score to 0.9 when needle has at least minLen runes
// and occurs in haystack.
func BoostContained(score float64, needle, haystack string, minLen int) float64 {
	if utf8.RuneCountInString(needle) >= minLen && strings.Contains(haystack, needle) && score < containmentScore {
		return containmentScore
	}
	return score
}

// Ratio is the classic sequence-matcher similarity: twice the number of
// characters in matching blocks divided by the combined length. Arguments are
// put in a fixed order first so the result does not depend on which name is
// passed first.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	if b < a {
		a, b = b, a
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	sm := newSequenceMatcher(ra, rb)
	return 2 * float64(sm.matchedChars(0, len(ra), 0, len(rb))) / float64(total)
}

// ---------------------------------------------------------------------------
// Longest-matching-block sequence matcher
// ---------------------------------------------------------------------------

type sequenceMatcher struct {
	a, b []rune
	// b2j lists, for every rune of b, the ascending positions where it occurs.
	b2j map[rune][]int
}

func newSequenceMatcher(a, b []rune) *sequenceMatcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	if n := len(b); n >= autojunkMinLen {
		limit := n/100 + 1
		for r, idx := range b2j {
			if len(idx) > limit {
				delete(b2j, r)
			}
		}
	}
	return &sequenceMatcher{a: a, b: b, b2j: b2j}
}

// matchedChars sums the sizes of the matching blocks in a[alo:ahi] and
// b[blo:bhi], found by taking the longest block and recursing on both sides.
func (m *sequenceMatcher) matchedChars(alo, ahi, blo, bhi int) int {
	i, j, k := m.longestMatch(alo, ahi, blo, bhi)
	if k == 0 {
		return 0
	}
	total := k
	if alo < i && blo < j {
		total += m.matchedChars(alo, i, blo, j)
	}
	if i+k < ahi && j+k < bhi {
		total += m.matchedChars(i+k, ahi, j+k, bhi)
	}
	return total
}

// longestMatch finds the longest common block; ties go to the block that
// starts earliest in a, then earliest in b.
func (m *sequenceMatcher) longestMatch(alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	// Runes dropped by the popularity heuristic can still extend a block.
	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}
	return besti, bestj, bestsize
}
