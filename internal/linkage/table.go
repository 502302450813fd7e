package linkage

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Row is a single candidate pair or labelled example.
type Row struct {
	Key       []string
	Partition string
	Features  []float64
	Attrs     []string
	Label     Label
	Source    Source
}

// Clone returns a deep copy.
func (r Row) Clone() Row {
	r.Key = slices.Clone(r.Key)
	r.Features = slices.Clone(r.Features)
	r.Attrs = slices.Clone(r.Attrs)
	return r
}

// Table is an immutable columnar set of rows sharing one Schema. Every
// transformation returns a new Table; accessors hand out copies.
type Table struct {
	schema     Schema
	n          int
	keys       []string
	partitions []string
	features   []float64
	attrs      []string
	labels     []Label
	sources    []Source
}

// Empty returns a table with no rows.
func Empty(schema Schema) *Table {
	return &Table{schema: schema.Clone()}
}

// Schema returns a copy of the table schema.
func (t *Table) Schema() Schema { return t.schema.Clone() }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.n
}

func (t *Table) nk() int { return len(t.schema.KeyColumns) }
func (t *Table) nf() int { return len(t.schema.FeatureColumns) }
func (t *Table) na() int { return len(t.schema.AttrColumns) }

// Key returns a copy of row i's key tuple.
func (t *Table) Key(i int) []string {
	return slices.Clone(t.keys[i*t.nk() : (i+1)*t.nk()])
}

// Partition returns row i's partition key.
func (t *Table) Partition(i int) string { return t.partitions[i] }

// Feature returns feature j of row i.
func (t *Table) Feature(i, j int) float64 { return t.features[i*t.nf()+j] }

// FeatureRow returns a copy of row i's feature vector.
func (t *Table) FeatureRow(i int) []float64 {
	return slices.Clone(t.features[i*t.nf() : (i+1)*t.nf()])
}

// Attrs returns a copy of row i's attribute values.
func (t *Table) Attrs(i int) []string {
	return slices.Clone(t.attrs[i*t.na() : (i+1)*t.na()])
}

// Label returns row i's label.
func (t *Table) Label(i int) Label { return t.labels[i] }

// Source returns row i's label provenance.
func (t *Table) Source(i int) Source { return t.sources[i] }

// Row materializes row i.
func (t *Table) Row(i int) Row {
	return Row{
		Key:       t.Key(i),
		Partition: t.partitions[i],
		Features:  t.FeatureRow(i),
		Attrs:     t.Attrs(i),
		Label:     t.labels[i],
		Source:    t.sources[i],
	}
}

// Rows materializes every row.
func (t *Table) Rows() []Row {
	rows := make([]Row, t.Len())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// FeatureMatrix returns a copy of the feature columns, one slice per row.
func (t *Table) FeatureMatrix() [][]float64 {
	matrix := make([][]float64, t.Len())
	for i := range matrix {
		matrix[i] = t.FeatureRow(i)
	}
	return matrix
}

// Value renders the referenced column of row i as text.
func (t *Table) Value(i int, ref ColumnRef) string {
	switch ref.Kind {
	case KeyColumn:
		return t.keys[i*t.nk()+ref.Index]
	case AttrColumn:
		return t.attrs[i*t.na()+ref.Index]
	default:
		return strconv.FormatFloat(t.Feature(i, ref.Index), 'f', -1, 64)
	}
}

// Tuple returns the referenced column values of row i.
func (t *Table) Tuple(i int, refs []ColumnRef) []string {
	out := make([]string, len(refs))
	for j, ref := range refs {
		out[j] = t.Value(i, ref)
	}
	return out
}

// Counts tallies rows per label.
func (t *Table) Counts() map[Label]int {
	counts := make(map[Label]int, 3)
	for i := 0; i < t.Len(); i++ {
		counts[t.labels[i]]++
	}
	return counts
}

// Filter returns the rows for which keep returns true, preserving order.
func (t *Table) Filter(keep func(i int) bool) *Table {
	indices := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return t.Select(indices)
}

// WithLabel keeps only rows carrying label.
func (t *Table) WithLabel(label Label) *Table {
	return t.Filter(func(i int) bool { return t.labels[i] == label })
}

// Select returns the rows at indices, in the given order.
func (t *Table) Select(indices []int) *Table {
	b := NewBuilder(t.schema, len(indices))
	for _, i := range indices {
		b.appendFrom(t, i)
	}
	return b.Build()
}

// Relabel returns a copy whose labels and sources are produced by fn.
func (t *Table) Relabel(fn func(i int, label Label, source Source) (Label, Source)) *Table {
	out := t.clone()
	for i := 0; i < out.n; i++ {
		out.labels[i], out.sources[i] = fn(i, out.labels[i], out.sources[i])
	}
	return out
}

// SortedBy returns a copy ordered by the referenced columns (text comparison),
// with the full key tuple as the final tie-break. The sort is stable.
func (t *Table) SortedBy(refs []ColumnRef) *Table {
	indices := make([]int, t.Len())
	for i := range indices {
		indices[i] = i
	}
	slices.SortStableFunc(indices, func(a, b int) int {
		if c := slices.Compare(t.Tuple(a, refs), t.Tuple(b, refs)); c != 0 {
			return c
		}
		return slices.Compare(t.keys[a*t.nk():(a+1)*t.nk()], t.keys[b*t.nk():(b+1)*t.nk()])
	})
	return t.Select(indices)
}

// Concat appends tables sharing one schema, preserving order.
func Concat(schema Schema, tables ...*Table) (*Table, error) {
	total := 0
	for _, table := range tables {
		if table == nil {
			continue
		}
		if !table.schema.Equal(schema) {
			return nil, Wrap(ErrSchemaMismatch, schema.Stage, "concat", "tables have different schemas", nil)
		}
		total += table.Len()
	}
	b := NewBuilder(schema, total)
	for _, table := range tables {
		for i := 0; i < table.Len(); i++ {
			b.appendFrom(table, i)
		}
	}
	return b.Build(), nil
}

func (t *Table) clone() *Table {
	return &Table{
		schema:     t.schema.Clone(),
		n:          t.n,
		keys:       slices.Clone(t.keys),
		partitions: slices.Clone(t.partitions),
		features:   slices.Clone(t.features),
		attrs:      slices.Clone(t.attrs),
		labels:     slices.Clone(t.labels),
		sources:    slices.Clone(t.sources),
	}
}

// Builder accumulates rows and materializes them into a Table once.
type Builder struct {
	t *Table
}

// NewBuilder starts a table for schema with room for capacity rows.
func NewBuilder(schema Schema, capacity int) *Builder {
	s := schema.Clone()
	return &Builder{t: &Table{
		schema:     s,
		keys:       make([]string, 0, capacity*len(s.KeyColumns)),
		partitions: make([]string, 0, capacity),
		features:   make([]float64, 0, capacity*len(s.FeatureColumns)),
		attrs:      make([]string, 0, capacity*len(s.AttrColumns)),
		labels:     make([]Label, 0, capacity),
		sources:    make([]Source, 0, capacity),
	}}
}

// Append validates the row arity against the schema and adds it.
func (b *Builder) Append(r Row) error {
	t := b.t
	if len(r.Key) != t.nk() {
		return Wrap(ErrSchemaMismatch, t.schema.Stage, "append", fmt.Sprintf("key has %d values, schema has %d", len(r.Key), t.nk()), nil)
	}
	if len(r.Features) != t.nf() {
		return Wrap(ErrSchemaMismatch, t.schema.Stage, "append", fmt.Sprintf("feature vector has %d values, schema has %d", len(r.Features), t.nf()), nil)
	}
	if len(r.Attrs) != t.na() {
		return Wrap(ErrSchemaMismatch, t.schema.Stage, "append", fmt.Sprintf("attrs have %d values, schema has %d", len(r.Attrs), t.na()), nil)
	}
	source := r.Source
	if source == "" {
		source = SourceGenerated
	}
	t.keys = append(t.keys, r.Key...)
	t.partitions = append(t.partitions, r.Partition)
	t.features = append(t.features, r.Features...)
	t.attrs = append(t.attrs, r.Attrs...)
	t.labels = append(t.labels, r.Label)
	t.sources = append(t.sources, source)
	t.n++
	return nil
}

func (b *Builder) appendFrom(src *Table, i int) {
	t := b.t
	t.keys = append(t.keys, src.keys[i*src.nk():(i+1)*src.nk()]...)
	t.partitions = append(t.partitions, src.partitions[i])
	t.features = append(t.features, src.features[i*src.nf():(i+1)*src.nf()]...)
	t.attrs = append(t.attrs, src.attrs[i*src.na():(i+1)*src.na()]...)
	t.labels = append(t.labels, src.labels[i])
	t.sources = append(t.sources, src.sources[i])
	t.n++
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return b.t.n }

// Build returns the table and resets the builder.
func (b *Builder) Build() *Table {
	out := b.t
	b.t = &Table{schema: out.schema.Clone()}
	return out
}

// Finite reports whether every feature of row i is a finite number.
func (t *Table) Finite(i int) bool {
	for _, v := range t.features[i*t.nf() : (i+1)*t.nf()] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CompareTuples orders two rows by a float statistic descending, then key
// tuple ascending, then attribute tuple ascending.
func CompareTuples(t *Table, a, b int, stat int) int {
	if c := cmp.Compare(t.Feature(b, stat), t.Feature(a, stat)); c != 0 {
		return c
	}
	if c := slices.Compare(t.keys[a*t.nk():(a+1)*t.nk()], t.keys[b*t.nk():(b+1)*t.nk()]); c != 0 {
		return c
	}
	return slices.Compare(t.attrs[a*t.na():(a+1)*t.na()], t.attrs[b*t.na():(b+1)*t.na()])
}
