package similarity

import (
	"math"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scorer computes the fuzzy statistics over a base Metric. All statistics
// are whole numbers in [0,100] and return 0 when either input is empty.
type Scorer struct {
	metric Metric
}

// NewScorer wraps m; a nil metric falls back to Indel.
func NewScorer(m Metric) *Scorer {
	if m == nil {
		m = Indel{}
	}
	return &Scorer{metric: m}
}

// Metric returns the base metric.
func (s *Scorer) Metric() Metric { return s.metric }

// Ratio compares the lowercased strings without further processing.
func (s *Scorer) Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return round(s.metric.Ratio(strings.ToLower(a), strings.ToLower(b)))
}

// PartialRatio scores the best alignment of the shorter string against every
// equally long window of the longer one, ignoring case.
func (s *Scorer) PartialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	short, long := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	if len(short) > len(long) {
		short, long = long, short
	}
	shortText := string(short)
	best := 0.0
	for start := 0; start+len(short) <= len(long); start++ {
		score := s.metric.Ratio(shortText, string(long[start:start+len(short)]))
		if score > 99.5 {
			return 100
		}
		best = max(best, score)
	}
	return round(best)
}

// TokenSortRatio compares the alphabetically sorted tokens.
func (s *Scorer) TokenSortRatio(a, b string) float64 {
	return s.tokenSort(a, b, false, true)
}

// PartialTokenSortRatio is TokenSortRatio using PartialRatio.
func (s *Scorer) PartialTokenSortRatio(a, b string) float64 {
	return s.tokenSort(a, b, true, true)
}

// TokenSetRatio compares the shared tokens against each side's remainder.
func (s *Scorer) TokenSetRatio(a, b string) float64 {
	return s.tokenSet(a, b, false, true)
}

// PartialTokenSetRatio is TokenSetRatio using PartialRatio. Any shared token
// yields 100.
func (s *Scorer) PartialTokenSetRatio(a, b string) float64 {
	return s.tokenSet(a, b, true, true)
}

// WRatio is the weighted best-of composite on ASCII-processed input.
func (s *Scorer) WRatio(a, b string) float64 {
	return s.weighted(a, b, true)
}

// UWRatio is WRatio keeping non-ASCII letters.
func (s *Scorer) UWRatio(a, b string) float64 {
	return s.weighted(a, b, false)
}

func (s *Scorer) tokenSort(a, b string, partial, forceASCII bool) float64 {
	sa := sortedTokens(process(a, forceASCII))
	sb := sortedTokens(process(b, forceASCII))
	if partial {
		return s.PartialRatio(sa, sb)
	}
	return s.Ratio(sa, sb)
}

func (s *Scorer) tokenSet(a, b string, partial, forceASCII bool) float64 {
	pa, pb := process(a, forceASCII), process(b, forceASCII)
	if pa == "" || pb == "" {
		return 0
	}
	setA, setB := tokenSet(pa), tokenSet(pb)

	var shared, onlyA, onlyB []string
	for token := range setA {
		if _, ok := setB[token]; ok {
			shared = append(shared, token)
		} else {
			onlyA = append(onlyA, token)
		}
	}
	for token := range setB {
		if _, ok := setA[token]; !ok {
			onlyB = append(onlyB, token)
		}
	}
	slices.Sort(shared)
	slices.Sort(onlyA)
	slices.Sort(onlyB)

	sect := strings.Join(shared, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	ratio := s.Ratio
	if partial {
		ratio = s.PartialRatio
	}
	return max(ratio(sect, combinedA), ratio(sect, combinedB), ratio(combinedA, combinedB))
}

func (s *Scorer) weighted(a, b string, forceASCII bool) float64 {
	pa, pb := process(a, forceASCII), process(b, forceASCII)
	if pa == "" || pb == "" {
		return 0
	}
	const unbaseScale = 0.95
	partialScale := 0.90

	base := s.Ratio(pa, pb)
	la, lb := float64(utf8.RuneCountInString(pa)), float64(utf8.RuneCountInString(pb))
	lenRatio := max(la, lb) / min(la, lb)
	if lenRatio > 8 {
		partialScale = 0.6
	}

	if lenRatio < 1.5 {
		tsor := s.tokenSort(pa, pb, false, forceASCII) * unbaseScale
		tser := s.tokenSet(pa, pb, false, forceASCII) * unbaseScale
		return round(max(base, tsor, tser))
	}
	partial := s.PartialRatio(pa, pb) * partialScale
	ptsor := s.tokenSort(pa, pb, true, forceASCII) * unbaseScale * partialScale
	ptser := s.tokenSet(pa, pb, true, forceASCII) * unbaseScale * partialScale
	return round(max(base, partial, ptsor, ptser))
}

// process lowercases, replaces every rune that is not a letter, digit or
// underscore with a space, and trims. forceASCII drops non-ASCII runes first.
func process(s string, forceASCII bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if forceASCII && r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func round(v float64) float64 {
	return math.RoundToEven(v)
}
