// Package pipeline runs the vendor and software linkage stages against the
// configured record sets and persists both tables.
//
// A run holds an exclusive file lock in the data directory, so a second
// concurrent run fails fast with ErrRunInProgress. Every stage gets its own
// run id, carried through context and attached to each log line.
package pipeline
