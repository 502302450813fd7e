// Package dedupe reduces Positive rows to the single best match per group.
package dedupe
