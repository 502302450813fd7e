// Package normalize turns raw vendor, publisher and product names into
// comparable token strings.
//
// Names are NFKC-normalized and case folded, configured separator characters
// become spaces, and stop words plus tokens shorter than the minimum length
// are dropped. The result is deterministic and idempotent.
package normalize
