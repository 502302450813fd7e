package normalize

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"cpelink/internal/linkage"
)

// Name is a raw name together with its cleaned form and tokens.
type Name struct {
	Raw        string
	Normalized string
	Tokens     []string
}

// Empty reports whether normalization removed every token.
func (n Name) Empty() bool { return len(n.Tokens) == 0 }

// Normalizer cleans names for comparison: case folding, separator replacement,
// stop-word and short-token removal. It is safe for concurrent use.
type Normalizer struct {
	separators  map[rune]struct{}
	stopWords   map[string]struct{}
	minTokenLen int
}

// New builds a Normalizer. Stop words are folded the same way names are.
func New(separators string, stopWords []string, minTokenLen int) *Normalizer {
	n := &Normalizer{
		separators:  make(map[rune]struct{}, len(separators)),
		stopWords:   make(map[string]struct{}, len(stopWords)),
		minTokenLen: max(minTokenLen, 1),
	}
	for _, r := range separators {
		n.separators[r] = struct{}{}
	}
	for _, word := range stopWords {
		if folded := strings.TrimSpace(Fold(word)); folded != "" {
			n.stopWords[folded] = struct{}{}
		}
	}
	return n
}

// Normalize cleans raw. Applying Normalize to its own output is a no-op.
func (n *Normalizer) Normalize(raw string) Name {
	folded := Fold(raw)
	replaced := strings.Map(func(r rune) rune {
		if _, ok := n.separators[r]; ok {
			return ' '
		}
		return r
	}, folded)

	fields := strings.Fields(replaced)
	tokens := make([]string, 0, len(fields))
	for _, token := range fields {
		if len([]rune(token)) < n.minTokenLen {
			continue
		}
		if _, stop := n.stopWords[token]; stop {
			continue
		}
		tokens = append(tokens, token)
	}
	return Name{Raw: raw, Normalized: strings.Join(tokens, " "), Tokens: tokens}
}

// NormalizePtr is Normalize for nullable inputs; nil yields ErrEmptyName.
func (n *Normalizer) NormalizePtr(raw *string) (Name, error) {
	if raw == nil {
		return Name{}, linkage.Wrap(linkage.ErrEmptyName, "", "normalize", "nil name", nil)
	}
	return n.Normalize(*raw), nil
}

// maxFoldPasses bounds the fixed-point iteration in Fold.
const maxFoldPasses = 4

// Fold applies compatibility normalization and Unicode case folding until the
// result is stable, so Fold(Fold(s)) == Fold(s).
func Fold(s string) string {
	cur := foldPass(s)
	for range maxFoldPasses {
		next := foldPass(cur)
		if next == cur {
			break
		}
		cur = next
	}
	return cur
}

func foldPass(s string) string {
	return strings.Map(stableRune, foldOnce(s))
}

func foldOnce(s string) string {
	// cases.Caser is stateful, so each call gets its own.
	return norm.NFKC.String(cases.Fold().String(norm.NFKC.String(s)))
}

var stableRunes sync.Map // rune -> rune

// stableRune maps a rune whose fold alternates between two code points (the
// Cherokee blocks) to the lower of the pair. Other runes pass through.
func stableRune(r rune) rune {
	if r < utf8.RuneSelf {
		return r
	}
	if v, ok := stableRunes.Load(r); ok {
		return v.(rune)
	}
	out := r
	if folded := []rune(foldOnce(string(r))); len(folded) == 1 && folded[0] != r {
		if back := []rune(foldOnce(string(folded[0]))); len(back) == 1 && back[0] == r {
			out = min(r, folded[0])
		}
	}
	stableRunes.Store(r, out)
	return out
}

// JoinKey is the form used to join inventory publishers onto vendor linkage
// rows: folded, whitespace collapsed to single underscores.
func JoinKey(raw string) string {
	return strings.Join(strings.Fields(Fold(raw)), "_")
}
