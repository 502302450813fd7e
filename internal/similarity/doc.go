// Package similarity provides the fuzzy string statistics used as classifier
// features: ratio, partial ratio, token-sort and token-set ratios (plain and
// partial), and the weighted composites WRatio/UWRatio.
//
// Every statistic sits on a pluggable base Metric. Indel (longest common
// subsequence) is the default; Levenshtein and Jaro-Winkler are available for
// experimentation. A FeatureSet binds a stage's ordered feature columns to
// statistics and computes one vector per candidate pair.
package similarity
