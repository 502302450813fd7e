// Package matcher drives the two linkage stages end to end.
//
// A VendorMatcher pairs catalog vendors with inventory publishers; a
// SoftwareMatcher then pairs catalog products with inventory software
// inside each vendor resolved by the first stage (see ResolveVendors). Both
// run the same sequence: candidate generation, reconciliation with labelled
// data, classification of the remaining candidates, per-slice duplicate
// resolution, and consolidation into the stage's linkage table. Get returns
// the latest table; Save and Load move it through a TableStore keyed by
// stage name.
//
// Missing labelled data or a missing classifier degrade the stage and are
// logged; a schema mismatch between configuration, labelled data, model or
// stored table fails it.
package matcher
