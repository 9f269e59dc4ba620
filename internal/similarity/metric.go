// Package similarity scores how close two pieces of text are and finds the
// line window of a file that best matches a search block.
package similarity

import (
	"fmt"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/pmezard/go-difflib/difflib"
)

// Metric names accepted in configuration.
const (
	MetricRatio       = "ratio"
	MetricLevenshtein = "levenshtein"
	MetricJaroWinkler = "jaro-winkler"
)

// Metric returns a similarity in [0,1]; identical strings score 1.
type Metric func(a, b string) float64

// MetricByName resolves a configured metric name. An empty name selects Ratio.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "", MetricRatio:
		return Ratio, nil
	case MetricLevenshtein:
		return Levenshtein, nil
	case MetricJaroWinkler:
		return JaroWinkler, nil
	default:
		return nil, fmt.Errorf("unknown similarity metric %q", name)
	}
}

// Ratio is the Ratcliff/Obershelp ratio 2*M/T, where M is the number of
// characters in matching blocks and T the combined length of both strings.
// Junk heuristics are disabled so long code blocks are not penalised for
// repeated whitespace.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return difflib.NewMatcherWithJunk(runes(a), runes(b), false, nil).Ratio()
}

// Levenshtein is 1 - distance/maxLen.
func Levenshtein(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return strutil.Similarity(a, b, metrics.NewLevenshtein())
}

// JaroWinkler favours strings sharing a common prefix.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return strutil.Similarity(a, b, metrics.NewJaroWinkler())
}

// runes splits s into one element per character for the sequence matcher.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
