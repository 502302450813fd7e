package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"cpelink/internal/linkage"
	"cpelink/internal/logging"
)

// Resolver keeps the best Positive row of every group.
type Resolver struct {
	groupBy  []string
	tieBreak string
	logger   *slog.Logger
}

// New returns a resolver grouping on groupBy and ranking by the tieBreak feature.
func New(groupBy []string, tieBreak string, logger *slog.Logger) *Resolver {
	return &Resolver{
		groupBy:  slices.Clone(groupBy),
		tieBreak: tieBreak,
		logger:   logging.NewComponentLogger(logger, "dedupe"),
	}
}

// Resolve drops non-Positive rows, then keeps one row per group: the highest
// tie-break statistic, then the smallest key tuple, then the smallest
// attribute tuple. Output is sorted by group.
func (r *Resolver) Resolve(ctx context.Context, t *linkage.Table) (*linkage.Table, error) {
	logger := logging.WithContext(ctx, r.logger)
	schema := t.Schema()
	refs, err := schema.Resolve(r.groupBy...)
	if err != nil {
		return nil, err
	}
	stat := schema.FeatureIndex(r.tieBreak)
	if stat < 0 {
		return nil, linkage.Wrap(linkage.ErrSchemaMismatch, schema.Stage, "dedupe",
			fmt.Sprintf("tie-break feature %q is not a feature column", r.tieBreak), nil)
	}

	positives := t.WithLabel(linkage.Positive)
	best := make(map[string]int, positives.Len())
	order := make([]string, 0, positives.Len())
	for i := 0; i < positives.Len(); i++ {
		group := linkage.TupleKey(positives.Tuple(i, refs))
		current, seen := best[group]
		if !seen {
			best[group] = i
			order = append(order, group)
			continue
		}
		if linkage.CompareTuples(positives, i, current, stat) < 0 {
			best[group] = i
		}
	}

	indices := make([]int, 0, len(order))
	for _, group := range order {
		indices = append(indices, best[group])
	}
	out := positives.Select(indices).SortedBy(refs)

	logger.Info("duplicates resolved",
		logging.Int("input", t.Len()),
		logging.Int("positive", positives.Len()),
		logging.Int("output", out.Len()),
		logging.Int("duplicates_removed", positives.Len()-out.Len()),
	)
	return out, nil
}
