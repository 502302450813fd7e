package candidates

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"cpelink/internal/linkage"
	"cpelink/internal/logging"
)

// Rule names a reject heuristic.
type Rule string

// RuleMissingPartition counts left records whose partition has no right-hand group.
const RuleMissingPartition Rule = "missing_partition"

// PairRules supplies the stage-specific parts of candidate generation.
// Admit and Screen return the rule that rejected the record or pair, or ""
// when it survives. Screen must be cheap; Build runs only for survivors.
type PairRules[L, R any] interface {
	Partition(left L) string
	Admit(left L) Rule
	Screen(left L, right R) Rule
	Build(left L, right R) linkage.Row
}

// Options tune a Generate call.
type Options struct {
	// Workers splits the left set into this many contiguous chunks.
	Workers int
	Logger  *slog.Logger
}

// Stats summarizes one generation pass.
type Stats struct {
	Left       int
	Pairs      int
	Candidates int
	Rejected   map[Rule]int
	// MissingPartitions lists partition keys with no right-hand group, sorted.
	MissingPartitions []string
}

// Total returns the number of rejections across every rule.
func (s Stats) Total() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

// GroupBy partitions records by key, preserving input order within each group.
func GroupBy[R any](records []R, key func(R) string) map[string][]R {
	groups := make(map[string][]R)
	for _, record := range records {
		k := key(record)
		groups[k] = append(groups[k], record)
	}
	return groups
}

type chunkResult struct {
	rows    []linkage.Row
	pairs   int
	reject  map[Rule]int
	missing map[string]struct{}
	err     error
}

// Generate forms the pruned cartesian product of each left record with the
// right-hand group sharing its partition key. Output order follows the left
// slice, then the right group order, regardless of the worker count.
func Generate[L, R any](ctx context.Context, schema linkage.Schema, left []L, right map[string][]R, rules PairRules[L, R], opts Options) (*linkage.Table, Stats, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "candidates"))
	stats := Stats{Left: len(left), Rejected: make(map[Rule]int)}

	if len(left) == 0 || len(right) == 0 {
		logger.Info("no candidate pairs to generate",
			logging.Int("left", len(left)),
			logging.Int("partitions", len(right)),
		)
		return linkage.Empty(schema), stats, nil
	}

	workers := max(1, min(opts.Workers, len(left)))
	chunk := (len(left) + workers - 1) / workers
	results := make([]chunkResult, workers)

	var wg sync.WaitGroup
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(left))
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(slot int, part []L) {
			defer wg.Done()
			results[slot] = generateChunk(ctx, part, right, rules)
		}(w, left[lo:hi])
	}
	wg.Wait()

	missing := make(map[string]struct{})
	total := 0
	for _, res := range results {
		if res.err != nil {
			return nil, stats, res.err
		}
		total += len(res.rows)
	}

	builder := linkage.NewBuilder(schema, total)
	for _, res := range results {
		stats.Pairs += res.pairs
		for rule, n := range res.reject {
			stats.Rejected[rule] += n
		}
		for key := range res.missing {
			missing[key] = struct{}{}
		}
		for _, row := range res.rows {
			if err := builder.Append(row); err != nil {
				return nil, stats, err
			}
		}
	}
	table := builder.Build()
	stats.Candidates = table.Len()
	stats.MissingPartitions = slices.Sorted(maps.Keys(missing))

	if len(stats.MissingPartitions) > 0 {
		logging.WarnWithContext(logger, "left records reference partitions with no right-hand group",
			"missing_partition",
			logging.Int("partitions", len(stats.MissingPartitions)),
			logging.Int("records_skipped", stats.Rejected[RuleMissingPartition]),
			logging.Strings("missing_partitions", firstN(stats.MissingPartitions, 5)),
			logging.Error(linkage.Wrap(linkage.ErrMissingPartition, schema.Stage, "generate", "", nil)),
			logging.String(logging.FieldErrorHint, "check that every resolved vendor exists in the catalog"),
			logging.String(logging.FieldImpact, "records were skipped"),
		)
	}
	attrs := []logging.Attr{
		logging.Int("left", stats.Left),
		logging.Int("pairs_screened", stats.Pairs),
		logging.Int("candidates", stats.Candidates),
	}
	for _, rule := range slices.Sorted(maps.Keys(stats.Rejected)) {
		attrs = append(attrs, logging.Int("rejected_"+string(rule), stats.Rejected[rule]))
	}
	logger.Info("candidate generation complete", logging.Args(attrs...)...)
	return table, stats, nil
}

func generateChunk[L, R any](ctx context.Context, left []L, right map[string][]R, rules PairRules[L, R]) chunkResult {
	res := chunkResult{reject: make(map[Rule]int), missing: make(map[string]struct{})}
	for _, l := range left {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}
		if rule := rules.Admit(l); rule != "" {
			res.reject[rule]++
			continue
		}
		key := rules.Partition(l)
		group, ok := right[key]
		if !ok {
			res.reject[RuleMissingPartition]++
			res.missing[key] = struct{}{}
			continue
		}
		for _, r := range group {
			res.pairs++
			if rule := rules.Screen(l, r); rule != "" {
				res.reject[rule]++
				continue
			}
			res.rows = append(res.rows, rules.Build(l, r))
		}
	}
	return res
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
