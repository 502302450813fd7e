package similarity

import (
	"fmt"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Metric is the base string similarity every statistic is built on. Ratio
// returns a score in [0,100]; 100 means identical.
type Metric interface {
	Name() string
	Ratio(a, b string) float64
}

// NewMetric returns the metric registered under name.
func NewMetric(name string) (Metric, error) {
	switch name {
	case "", "indel":
		return Indel{}, nil
	case "levenshtein":
		return Levenshtein{}, nil
	case "jaro_winkler":
		return JaroWinkler{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity metric %q", name)
	}
}

// Indel scores 2*LCS/(|a|+|b|), the insert/delete edit similarity.
type Indel struct{}

func (Indel) Name() string { return "indel" }

func (Indel) Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(ra, rb)) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Levenshtein scores 1 - distance/max(|a|,|b|).
type Levenshtein struct{}

func (Levenshtein) Name() string { return "levenshtein" }

func (Levenshtein) Ratio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	distance := matchr.Levenshtein(a, b)
	return 100 * (1 - float64(distance)/float64(longest))
}

// JaroWinkler scores the Jaro-Winkler similarity.
type JaroWinkler struct{}

func (JaroWinkler) Name() string { return "jaro_winkler" }

func (JaroWinkler) Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	return 100 * clamp01(matchr.JaroWinkler(a, b, false))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
