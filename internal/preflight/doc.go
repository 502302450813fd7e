// Package preflight provides readiness checks for the files and directories
// a cpelink run depends on.
//
// The CLI "cpelink check" command runs every check and exits non-zero when a
// blocking check fails. Missing classifiers and labelled sources are
// advisory: the run still completes with fewer links.
package preflight
