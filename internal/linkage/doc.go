// Package linkage defines the shared data model of the record-linkage engine:
// the ordered stage Schema, match Labels and their provenance, candidate Rows,
// and the immutable columnar Table every component consumes and produces.
//
// Tables are built once per stage through a Builder and never mutated
// afterwards; filtering, relabelling and concatenation all return new tables.
// The package also owns the error taxonomy (ErrSchemaMismatch,
// ErrMissingPartition, ...) and Wrap, which tags errors with stage context.
package linkage
