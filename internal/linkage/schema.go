package linkage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Schema is the ordered column layout of a stage's candidate table. Feature
// order is significant: classifier artifacts are trained against it.
type Schema struct {
	Stage          string
	KeyColumns     []string
	FeatureColumns []string
	AttrColumns    []string
}

// NewSchema validates and copies a column layout.
func NewSchema(stage string, keys, features, attrs []string) (Schema, error) {
	s := Schema{
		Stage:          strings.TrimSpace(stage),
		KeyColumns:     slices.Clone(keys),
		FeatureColumns: slices.Clone(features),
		AttrColumns:    slices.Clone(attrs),
	}
	if len(s.KeyColumns) == 0 {
		return Schema{}, Wrap(ErrSchemaMismatch, s.Stage, "schema", "no key columns", nil)
	}
	seen := make(map[string]struct{}, len(keys)+len(features)+len(attrs))
	for _, group := range [][]string{s.KeyColumns, s.FeatureColumns, s.AttrColumns} {
		for _, name := range group {
			if strings.TrimSpace(name) == "" {
				return Schema{}, Wrap(ErrSchemaMismatch, s.Stage, "schema", "blank column name", nil)
			}
			if _, dup := seen[name]; dup {
				return Schema{}, Wrap(ErrSchemaMismatch, s.Stage, "schema", fmt.Sprintf("duplicate column %q", name), nil)
			}
			seen[name] = struct{}{}
		}
	}
	return s, nil
}

// Clone returns a deep copy.
func (s Schema) Clone() Schema {
	return Schema{
		Stage:          s.Stage,
		KeyColumns:     slices.Clone(s.KeyColumns),
		FeatureColumns: slices.Clone(s.FeatureColumns),
		AttrColumns:    slices.Clone(s.AttrColumns),
	}
}

// Equal compares stage name and every column list in order.
func (s Schema) Equal(other Schema) bool {
	return s.Stage == other.Stage &&
		slices.Equal(s.KeyColumns, other.KeyColumns) &&
		slices.Equal(s.FeatureColumns, other.FeatureColumns) &&
		slices.Equal(s.AttrColumns, other.AttrColumns)
}

// Fingerprint is a stable digest of the stage name and ordered feature columns.
func (s Schema) Fingerprint() string {
	sum := sha256.Sum256([]byte(s.Stage + "\x00" + strings.Join(s.FeatureColumns, "\x1f")))
	return hex.EncodeToString(sum[:8])
}

// CheckFeatures returns ErrSchemaMismatch when names differ from the feature columns.
func (s Schema) CheckFeatures(names []string) error {
	if slices.Equal(s.FeatureColumns, names) {
		return nil
	}
	return Wrap(ErrSchemaMismatch, s.Stage, "features",
		fmt.Sprintf("expected [%s], got [%s]", strings.Join(s.FeatureColumns, ","), strings.Join(names, ",")), nil)
}

// ColumnKind identifies which column group a ColumnRef points into.
type ColumnKind int

const (
	KeyColumn ColumnKind = iota
	FeatureColumn
	AttrColumn
)

// ColumnRef addresses a named column of a Schema.
type ColumnRef struct {
	Name  string
	Kind  ColumnKind
	Index int
}

// Resolve maps column names onto references, failing with ErrSchemaMismatch on unknown names.
func (s Schema) Resolve(names ...string) ([]ColumnRef, error) {
	refs := make([]ColumnRef, 0, len(names))
	for _, name := range names {
		ref, ok := s.lookup(name)
		if !ok {
			return nil, Wrap(ErrSchemaMismatch, s.Stage, "resolve", fmt.Sprintf("unknown column %q", name), nil)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s Schema) lookup(name string) (ColumnRef, bool) {
	if i := slices.Index(s.KeyColumns, name); i >= 0 {
		return ColumnRef{Name: name, Kind: KeyColumn, Index: i}, true
	}
	if i := slices.Index(s.FeatureColumns, name); i >= 0 {
		return ColumnRef{Name: name, Kind: FeatureColumn, Index: i}, true
	}
	if i := slices.Index(s.AttrColumns, name); i >= 0 {
		return ColumnRef{Name: name, Kind: AttrColumn, Index: i}, true
	}
	return ColumnRef{}, false
}

// FeatureIndex returns the position of a feature column or -1.
func (s Schema) FeatureIndex(name string) int {
	return slices.Index(s.FeatureColumns, name)
}

// TupleKey joins column values into a single map key.
func TupleKey(values []string) string {
	return strings.Join(values, "\x1f")
}
