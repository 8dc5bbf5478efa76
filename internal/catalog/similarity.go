// internal/catalog/similarity.go
package catalog

import "strings"

// SimilarityFunc scores the closeness of two terms in [0, 1]. The catalog's
// fuzzy lookups are defined entirely in terms of this function, so the
// metric can be swapped without touching extraction.
type SimilarityFunc func(a, b string) float64

// Similarity is the default metric: the best of normalized Levenshtein
// similarity, whole-word containment and word-overlap ratio. Terms are
// compared case-insensitively.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	best := levenshteinRatio(a, b)

	if strings.Contains(a, b) || strings.Contains(b, a) {
		if best < 0.8 {
			best = 0.8
		}
	}

	if overlap := wordOverlap(a, b); overlap > best {
		best = overlap
	}

	return best
}

func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}

	matching := 0
	for _, w := range wordsB {
		if _, ok := setA[w]; ok {
			matching++
		}
	}

	total := len(wordsA)
	if len(wordsB) > total {
		total = len(wordsB)
	}
	return float64(matching) / float64(total)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
