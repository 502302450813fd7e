package similarity

import (
	"fmt"
	"unicode/utf8"

	"cpelink/internal/linkage"
)

// Inputs are the texts a candidate pair is scored on. Left is always the
// catalog side, Right the inventory side.
type Inputs struct {
	Left, Right       string // primary comparison text (cleaned names or titles)
	LeftAux, RightAux string // secondary comparison text (release vs version)
	LeftRaw, RightRaw string // raw names, measured by the length statistics
}

// Statistic names accepted in feature bindings.
const (
	StatRatio                 = "ratio"
	StatPartialRatio          = "partial_ratio"
	StatTokenSortRatio        = "token_sort_ratio"
	StatPartialTokenSortRatio = "partial_token_sort_ratio"
	StatTokenSetRatio         = "token_set_ratio"
	StatPartialTokenSetRatio  = "partial_token_set_ratio"
	StatWRatio                = "wratio"
	StatUWRatio               = "uwratio"
	StatAuxRatio              = "aux_ratio"
	StatAuxPartialRatio       = "aux_partial_ratio"
	StatLeftLength            = "left_length"
	StatRightLength           = "right_length"
)

// VendorBindings maps the vendor stage feature columns onto statistics.
var VendorBindings = map[string]string{
	"fz_ptl_ratio":          StatPartialRatio,
	"fz_ptl_tok_sort_ratio": StatPartialTokenSortRatio,
	"fz_ratio":              StatRatio,
	"fz_tok_set_ratio":      StatTokenSetRatio,
	"fz_uwratio":            StatUWRatio,
	"ven_len":               StatLeftLength,
	"pu0_len":               StatRightLength,
}

// SoftwareBindings maps the software stage feature columns onto statistics.
// In this stage fz_tok_set_ratio holds the partial token-set score and
// fz_ptl_tok_sort_ratio the plain token-sort score; software classifiers are
// trained on that assignment.
var SoftwareBindings = map[string]string{
	"fz_ratio":              StatRatio,
	"fz_ptl_ratio":          StatPartialRatio,
	"fz_tok_set_ratio":      StatPartialTokenSetRatio,
	"fz_ptl_tok_sort_ratio": StatTokenSortRatio,
	"fz_uwratio":            StatUWRatio,
	"fz_rel_ratio":          StatAuxRatio,
	"fz_rel_ptl_ratio":      StatAuxPartialRatio,
	"titlX_len":             StatLeftLength,
	"DsplyNm0_len":          StatRightLength,
}

type statFunc func(*Scorer, Inputs) float64

var statistics = map[string]statFunc{
	StatRatio:                 func(s *Scorer, in Inputs) float64 { return s.Ratio(in.Left, in.Right) },
	StatPartialRatio:          func(s *Scorer, in Inputs) float64 { return s.PartialRatio(in.Left, in.Right) },
	StatTokenSortRatio:        func(s *Scorer, in Inputs) float64 { return s.TokenSortRatio(in.Left, in.Right) },
	StatPartialTokenSortRatio: func(s *Scorer, in Inputs) float64 { return s.PartialTokenSortRatio(in.Left, in.Right) },
	StatTokenSetRatio:         func(s *Scorer, in Inputs) float64 { return s.TokenSetRatio(in.Left, in.Right) },
	StatPartialTokenSetRatio:  func(s *Scorer, in Inputs) float64 { return s.PartialTokenSetRatio(in.Left, in.Right) },
	StatWRatio:                func(s *Scorer, in Inputs) float64 { return s.WRatio(in.Left, in.Right) },
	StatUWRatio:               func(s *Scorer, in Inputs) float64 { return s.UWRatio(in.Left, in.Right) },
	StatAuxRatio:              func(s *Scorer, in Inputs) float64 { return s.Ratio(in.LeftAux, in.RightAux) },
	StatAuxPartialRatio:       func(s *Scorer, in Inputs) float64 { return s.PartialRatio(in.LeftAux, in.RightAux) },
	StatLeftLength:            func(_ *Scorer, in Inputs) float64 { return float64(utf8.RuneCountInString(in.LeftRaw)) },
	StatRightLength:           func(_ *Scorer, in Inputs) float64 { return float64(utf8.RuneCountInString(in.RightRaw)) },
}

// FeatureSet evaluates a stage's feature columns, in schema order.
type FeatureSet struct {
	scorer *Scorer
	names  []string
	funcs  []statFunc
}

// NewFeatureSet binds each column to a statistic. A column may name a
// statistic directly; otherwise it must appear in bindings.
func NewFeatureSet(scorer *Scorer, columns []string, bindings map[string]string) (*FeatureSet, error) {
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	fs := &FeatureSet{scorer: scorer, names: append([]string(nil), columns...)}
	for _, column := range columns {
		stat := column
		if bound, ok := bindings[column]; ok {
			stat = bound
		}
		fn, ok := statistics[stat]
		if !ok {
			return nil, linkage.Wrap(linkage.ErrSchemaMismatch, "", "feature set",
				fmt.Sprintf("no statistic for feature column %q", column), nil)
		}
		fs.funcs = append(fs.funcs, fn)
	}
	return fs, nil
}

// Names returns the feature column names in order.
func (f *FeatureSet) Names() []string { return append([]string(nil), f.names...) }

// Scorer returns the scorer the set evaluates with.
func (f *FeatureSet) Scorer() *Scorer { return f.scorer }

// Compute returns the feature vector for one pair.
func (f *FeatureSet) Compute(in Inputs) []float64 {
	out := make([]float64, len(f.funcs))
	for i, fn := range f.funcs {
		out[i] = fn(f.scorer, in)
	}
	return out
}
