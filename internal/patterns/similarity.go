package patterns

import (
	"regexp"
	"strings"
)

// Jaccard computes set similarity between two token slices:
// |intersection| / |union| over the token sets. The result is in [0,1],
// symmetric, and reflexive (Jaccard(a,a) == 1). Two empty sets are
// considered identical.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, tok := range a {
		setA[tok] = true
	}
	setB := make(map[string]bool, len(b))
	for _, tok := range b {
		setB[tok] = true
	}

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render expands {{name}} placeholders in a pattern's fix text from vars.
// Text without placeholders passes through verbatim; unknown placeholders
// are left in place so the miss is visible in the output. Pure function.
func Render(fixText string, vars map[string]string) string {
	if !strings.Contains(fixText, "{{") {
		return fixText
	}
	return placeholderRe.ReplaceAllStringFunc(fixText, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
