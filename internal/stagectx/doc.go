// Package stagectx carries the stage name and run identifier of a linkage run
// through context.Context so loggers and stores can tag their output without
// threading extra parameters through every call.
package stagectx
