// Package labelled loads human-curated ground truth and merges it into a
// stage's candidate table.
//
// A labelled source is CSV with a header naming every key column of the
// stage plus a 0/1 match column. Sources that fail that check are reported
// as linkage.ErrMalformedLabelledSource and the stage continues with no
// examples.
package labelled
