package ui

import (
	"sort"
	"strings"
)

const (
	maxDistance    = 3
	maxSuggestions = 3
)

// Suggest returns up to three candidates within a small edit distance of
// target, closest first. Matching is case-insensitive; candidates keep
// their original spelling.
func Suggest(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	lower := strings.ToLower(target)
	for _, candidate := range candidates {
		d := editDistance(lower, strings.ToLower(candidate))
		if d <= maxDistance {
			matches = append(matches, match{value: candidate, distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// editDistance is the Levenshtein distance between a and b, computed over
// two rolling rows.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
