package labelled

import (
	"context"
	"log/slog"
	"slices"

	"cpelink/internal/linkage"
	"cpelink/internal/logging"
)

// Drop reasons counted by Reconcile.
const (
	DropEmptyKey  = "empty_key"
	DropNonFinite = "non_finite_features"
)

// Stats summarizes one reconciliation.
type Stats struct {
	Candidates int
	Labelled   int
	Unlabelled int
	Dropped    map[string]int
}

// Reconcile overwrites candidate labels with ground truth for key tuples the
// examples know, and drops rows with an empty key value or a non-finite
// feature. The input table is not modified.
func Reconcile(ctx context.Context, candidates *linkage.Table, examples *Examples, logger *slog.Logger) (*linkage.Table, Stats) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "labelled"))
	stats := Stats{Candidates: candidates.Len(), Dropped: map[string]int{}}

	kept := candidates.Filter(func(i int) bool {
		if slices.Contains(candidates.Key(i), "") {
			stats.Dropped[DropEmptyKey]++
			return false
		}
		if !candidates.Finite(i) {
			stats.Dropped[DropNonFinite]++
			return false
		}
		return true
	})

	out := kept.Relabel(func(i int, label linkage.Label, source linkage.Source) (linkage.Label, linkage.Source) {
		if ex, ok := examples.Lookup(kept.Key(i)); ok {
			return ex.Label, linkage.SourceLabelled
		}
		return label, source
	})

	for i := 0; i < out.Len(); i++ {
		if out.Label(i).Known() {
			stats.Labelled++
		} else {
			stats.Unlabelled++
		}
	}

	logger.Info("candidates reconciled with labelled data",
		logging.Int("candidates", stats.Candidates),
		logging.Int("labelled", stats.Labelled),
		logging.Int("unlabelled", stats.Unlabelled),
		logging.Int("dropped_empty_key", stats.Dropped[DropEmptyKey]),
		logging.Int("dropped_non_finite", stats.Dropped[DropNonFinite]),
	)
	return out, stats
}

// Split separates rows carrying a verdict from rows still Unknown.
func Split(t *linkage.Table) (labelled, unlabelled *linkage.Table) {
	return t.Filter(func(i int) bool { return t.Label(i).Known() }),
		t.WithLabel(linkage.Unknown)
}

// Table materializes every example as a row of the stage schema. Features and
// attributes come from the source when it carries them, otherwise from the
// candidate with the same key, otherwise zero values. Examples with an empty
// key value are skipped.
func (e *Examples) Table(candidates *linkage.Table) (*linkage.Table, error) {
	b := linkage.NewBuilder(e.schema, e.Len())
	if e.Len() == 0 {
		return b.Build(), nil
	}

	byKey := make(map[string]int, candidates.Len())
	for i := 0; i < candidates.Len(); i++ {
		tuple := linkage.TupleKey(candidates.Key(i))
		if _, seen := byKey[tuple]; !seen {
			byKey[tuple] = i
		}
	}

	for _, ex := range e.examples {
		if slices.Contains(ex.Key, "") {
			continue
		}
		row := linkage.Row{
			Key:      slices.Clone(ex.Key),
			Features: slices.Clone(ex.Features),
			Attrs:    slices.Clone(ex.Attrs),
			Label:    ex.Label,
			Source:   linkage.SourceLabelled,
		}
		if i, ok := byKey[linkage.TupleKey(ex.Key)]; ok {
			row.Partition = candidates.Partition(i)
			if row.Features == nil {
				row.Features = candidates.FeatureRow(i)
			}
			if row.Attrs == nil {
				row.Attrs = candidates.Attrs(i)
			}
		}
		if row.Features == nil {
			row.Features = make([]float64, len(e.schema.FeatureColumns))
		}
		if row.Attrs == nil {
			row.Attrs = make([]string, len(e.schema.AttrColumns))
		}
		if err := b.Append(row); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
