package command

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestions caps the "did you mean" list.
const maxSuggestions = 4

// Match resolves input against candidates. An exact case-insensitive match
// wins, then a unique prefix. Otherwise ok is false and suggestions holds the
// ambiguous prefix matches or, failing those, the candidates within edit
// distance, closest first.
//
// Postcondition: when ok is true, value is one of candidates.
func Match(input string, candidates []string) (value string, suggestions []string, ok bool) {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return "", nil, false
	}
	var prefixed []string
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc == in {
			return c, nil, true
		}
		if strings.HasPrefix(lc, in) {
			prefixed = append(prefixed, c)
		}
	}
	switch len(prefixed) {
	case 1:
		return prefixed[0], nil, true
	case 0:
	default:
		sort.Strings(prefixed)
		return "", capSuggestions(prefixed), false
	}
	return "", Suggest(in, candidates), false
}

// Suggest returns the candidates within edit distance of input, closest first.
// Inputs shorter than three characters get no fuzzy suggestions.
func Suggest(input string, candidates []string) []string {
	in := strings.ToLower(strings.TrimSpace(input))
	if len(in) < 3 {
		return nil
	}
	type scored struct {
		val  string
		dist int
	}
	var hits []scored
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		lc := strings.ToLower(c)
		dist := levenshtein.ComputeDistance(in, lc)
		if dist > levenshteinLimit(len(lc)) {
			continue
		}
		hits = append(hits, scored{val: c, dist: dist})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist == hits[j].dist {
			return hits[i].val < hits[j].val
		}
		return hits[i].dist < hits[j].dist
	})
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.val)
	}
	return capSuggestions(out)
}

func capSuggestions(s []string) []string {
	if len(s) > maxSuggestions {
		return s[:maxSuggestions]
	}
	return s
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
