// ABOUTME: Term expansion for fuzzy (~N) and wildcard (*) clauses
// ABOUTME: Bounded optimal-string-alignment distance over the lexicon

package fulltext

// Distance returns the optimal string alignment distance between a and b:
// insertions, deletions, substitutions and adjacent transpositions each
// cost one. It stops early and returns limit+1 once the distance exceeds limit.
func Distance(a, b string, limit int) int {
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > limit {
		return limit + 1
	}

	prev2 := make([]int, len(rb)+1)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d := min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d = min(d, prev2[j-2]+1)
			}
			cur[j] = d
			rowMin = min(rowMin, d)
		}
		if rowMin > limit {
			return limit + 1
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return min(prev[len(rb)], limit+1)
}

// Glob reports whether s matches pattern, where "*" matches any run of
// characters, including none.
func Glob(pattern, s string) bool {
	p, t := []rune(pattern), []rune(s)
	pi, ti := 0, 0
	star, mark := -1, 0
	for ti < len(t) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, ti
			pi++
		case pi < len(p) && p[pi] == t[ti]:
			pi++
			ti++
		case star >= 0:
			pi = star + 1
			mark++
			ti = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

// expansion is a lexicon term a clause matches, with its score factor.
type expansion struct {
	term   string
	factor float64
}

const wildcardFactor = 0.5

// expand lists the lexicon terms matched by term under the clause rules.
func (ix *Index) expand(term string, editDistance int, wildcard bool) []expansion {
	if wildcard {
		var out []expansion
		for _, t := range ix.lexicon {
			if Glob(term, t) {
				f := wildcardFactor
				if t == term {
					f = 1
				}
				out = append(out, expansion{term: t, factor: f})
			}
		}
		return out
	}

	if editDistance <= 0 {
		if _, ok := ix.terms[term]; ok {
			return []expansion{{term: term, factor: 1}}
		}
		return nil
	}

	var out []expansion
	for _, t := range ix.lexicon {
		if d := Distance(term, t, editDistance); d <= editDistance {
			out = append(out, expansion{term: t, factor: 1 / float64(1+d)})
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
