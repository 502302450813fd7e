// Package candidates forms the pruned cartesian product of two record sets.
//
// Generate is stage agnostic: it partitions nothing itself but looks each
// left record's partition key up in a pre-grouped right side, applies the
// stage's cheap reject rules, and only then computes full feature vectors.
// VendorRules and SoftwareRules supply the two linkage stages' heuristics.
package candidates
