package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Match is the best window found for a needle.
type Match struct {
	Similarity float64 `json:"similarity"`
	Window     string  `json:"window"`
	StartLine  int     `json:"start_line"` // 0-based, inclusive
	EndLine    int     `json:"end_line"`   // 0-based, exclusive
	Ties       int     `json:"ties"`       // other windows sharing the best score
}

// Matcher slides a window the height of the needle over the haystack.
type Matcher struct {
	Metric Metric
}

// NewMatcher returns a matcher using metric, or Ratio when metric is nil.
func NewMatcher(metric Metric) *Matcher {
	return &Matcher{Metric: metric}
}

// BestWindow returns the window of haystack with the highest similarity to
// needle. The earliest window wins ties. An empty needle scores 0.
func (m *Matcher) BestWindow(needle, haystack string) Match {
	if needle == "" {
		return Match{}
	}

	needleLines := strings.Split(needle, "\n")
	hayLines := strings.Split(haystack, "\n")
	k := len(needleLines)

	if len(hayLines) < k {
		return Match{
			Similarity: m.score(needle, haystack),
			Window:     haystack,
			StartLine:  0,
			EndLine:    len(hayLines),
		}
	}

	if m.Metric == nil {
		return bestRatioWindow(needle, hayLines, k)
	}

	best := Match{Similarity: -1}
	for i := 0; i+k <= len(hayLines); i++ {
		window := strings.Join(hayLines[i:i+k], "\n")
		r := m.Metric(window, needle)
		switch {
		case r > best.Similarity:
			best = Match{Similarity: r, Window: window, StartLine: i, EndLine: i + k}
		case r == best.Similarity:
			best.Ties++
		}
	}
	return best
}

// score compares a candidate with the needle, candidate first. The sequence
// matcher is not symmetric, so every path uses this order.
func (m *Matcher) score(needle, candidate string) float64 {
	if m.Metric == nil {
		return Ratio(candidate, needle)
	}
	return m.Metric(candidate, needle)
}

// bestRatioWindow is the Ratio search with the needle indexed once and
// windows whose upper bound cannot reach the current best skipped.
func bestRatioWindow(needle string, hayLines []string, k int) Match {
	sm := difflib.NewMatcherWithJunk(nil, runes(needle), false, nil)

	best := Match{Similarity: -1}
	for i := 0; i+k <= len(hayLines); i++ {
		window := strings.Join(hayLines[i:i+k], "\n")

		var r float64
		if window == needle {
			r = 1.0
		} else {
			sm.SetSeq1(runes(window))
			if sm.RealQuickRatio() < best.Similarity || sm.QuickRatio() < best.Similarity {
				continue
			}
			r = sm.Ratio()
		}

		switch {
		case r > best.Similarity:
			best = Match{Similarity: r, Window: window, StartLine: i, EndLine: i + k}
		case r == best.Similarity:
			best.Ties++
		}
	}
	return best
}
