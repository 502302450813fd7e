// Package main hosts the cpelink CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the vendor and software linkage stages,
// renders and exports the tables saved in the store, runs preflight checks,
// and scaffolds configuration. It centralizes configuration resolution,
// logger construction, and store access so subcommands stay declarative.
//
// Add new functionality to the internal packages first, then surface it
// through a command or flag here.
package main
