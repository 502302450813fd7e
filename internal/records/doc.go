// Package records reads the clean catalog and inventory record sets produced
// by the upstream ingesters. Both are CSV with a header row; column names are
// matched case-insensitively and unknown columns are ignored.
package records
