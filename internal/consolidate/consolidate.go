// Package consolidate merges a stage's labelled and classified matches into
// its linkage table.
package consolidate

import (
	"context"
	"log/slog"

	"cpelink/internal/linkage"
	"cpelink/internal/logging"
)

// Consolidate concatenates labelled rows ahead of classified rows, keeps the
// first row per linkage key so ground truth wins, retains Positive rows only,
// and sorts by linkage key.
func Consolidate(ctx context.Context, schema linkage.Schema, linkageKey []string, labelled, classified *linkage.Table, logger *slog.Logger) (*linkage.Table, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "consolidate"))
	refs, err := schema.Resolve(linkageKey...)
	if err != nil {
		return nil, err
	}

	combined, err := linkage.Concat(schema, labelled, classified)
	if err != nil {
		return nil, err
	}
	if combined.Len() == 0 {
		logger.Info("no matches to consolidate", logging.Int("labelled", labelled.Len()), logging.Int("classified", classified.Len()))
		return linkage.Empty(schema), nil
	}

	seen := make(map[string]struct{}, combined.Len())
	unique := combined.Filter(func(i int) bool {
		key := linkage.TupleKey(combined.Tuple(i, refs))
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
	out := unique.WithLabel(linkage.Positive).SortedBy(refs)

	logger.Info("linkage table consolidated",
		logging.Int("labelled", labelled.Len()),
		logging.Int("classified", classified.Len()),
		logging.Int("duplicates_removed", combined.Len()-unique.Len()),
		logging.Int("matches", out.Len()),
	)
	return out, nil
}
