package labelled

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"cpelink/internal/linkage"
	"cpelink/internal/logging"
	"cpelink/internal/normalize"
	"cpelink/internal/records"
)

// MatchColumn holds the 0/1 ground truth in a labelled source.
const MatchColumn = "match"

// Example is one human-verified verdict. Features and Attrs are nil when the
// source does not carry every schema feature or attribute column.
type Example struct {
	Key      []string
	Label    linkage.Label
	Features []float64
	Attrs    []string
}

// Examples is the ground truth for one stage, indexed by key tuple.
type Examples struct {
	schema     linkage.Schema
	examples   []Example
	index      map[string]int
	duplicates int
	incomplete int
}

// Empty returns a ground truth with no examples.
func Empty(schema linkage.Schema) *Examples {
	return &Examples{schema: schema.Clone(), index: map[string]int{}}
}

// Len returns the number of distinct examples.
func (e *Examples) Len() int {
	if e == nil {
		return 0
	}
	return len(e.examples)
}

// Duplicates returns how many repeated key tuples were ignored while reading.
func (e *Examples) Duplicates() int { return e.duplicates }

// IncompleteFeatures returns how many examples had a blank or NaN feature
// cell. Their verdict is kept but their features are dropped, so Table takes
// them from the matching candidate.
func (e *Examples) IncompleteFeatures() int { return e.incomplete }

// Lookup returns the example for a key tuple.
func (e *Examples) Lookup(key []string) (Example, bool) {
	if e == nil {
		return Example{}, false
	}
	i, ok := e.index[linkage.TupleKey(key)]
	if !ok {
		return Example{}, false
	}
	return e.examples[i], true
}

// Counts tallies examples per label.
func (e *Examples) Counts() map[linkage.Label]int {
	counts := make(map[linkage.Label]int, 2)
	for _, ex := range e.examples {
		counts[ex.Label]++
	}
	return counts
}

// ReadOptions adjust how key values are read.
type ReadOptions struct {
	// FoldColumns are key columns passed through normalize.JoinKey, matching
	// how candidate keys are built for those columns.
	FoldColumns []string
}

// Read parses a labelled CSV source. Every schema key column and the match
// column must be present, and every match value must be 0 or 1; otherwise the
// error is marked ErrMalformedLabelledSource. A missing feature value only
// drops that example's features.
func Read(r io.Reader, schema linkage.Schema, opts ReadOptions) (*Examples, error) {
	reader := records.NewReader(r)
	header, err := records.ReadHeader(reader)
	if err != nil {
		return nil, malformed(schema, "read header", err)
	}
	required := append(slices.Clone(schema.KeyColumns), MatchColumn)
	if missing := header.Missing(required); len(missing) > 0 {
		return nil, malformed(schema, fmt.Sprintf("missing columns: %s", strings.Join(missing, ", ")), nil)
	}
	withFeatures := len(header.Missing(schema.FeatureColumns)) == 0 && len(schema.FeatureColumns) > 0
	withAttrs := len(header.Missing(schema.AttrColumns)) == 0 && len(schema.AttrColumns) > 0

	fold := make([]bool, len(schema.KeyColumns))
	for i, column := range schema.KeyColumns {
		fold[i] = slices.Contains(opts.FoldColumns, column)
	}

	out := Empty(schema)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, malformed(schema, fmt.Sprintf("line %d", line), err)
		}
		label, err := linkage.ParseLabel(header.Get(record, MatchColumn))
		if err != nil {
			return nil, malformed(schema, fmt.Sprintf("line %d", line), err)
		}
		if !label.Known() {
			return nil, malformed(schema, fmt.Sprintf("line %d: empty match value", line), nil)
		}

		ex := Example{Key: make([]string, len(schema.KeyColumns)), Label: label}
		for i, column := range schema.KeyColumns {
			value := header.Get(record, column)
			if fold[i] {
				value = normalize.JoinKey(value)
			}
			ex.Key[i] = value
		}
		if withFeatures {
			features, complete, err := parseFeatures(header, record, schema.FeatureColumns)
			if err != nil {
				return nil, malformed(schema, fmt.Sprintf("line %d", line), err)
			}
			if complete {
				ex.Features = features
			} else {
				out.incomplete++
			}
		}
		if withAttrs {
			ex.Attrs = make([]string, len(schema.AttrColumns))
			for i, column := range schema.AttrColumns {
				ex.Attrs[i] = header.Get(record, column)
			}
		}

		tuple := linkage.TupleKey(ex.Key)
		if _, dup := out.index[tuple]; dup {
			out.duplicates++
			continue
		}
		out.index[tuple] = len(out.examples)
		out.examples = append(out.examples, ex)
	}
	return out, nil
}

// parseFeatures reads the feature cells of one record. complete is false when
// any cell is blank or NaN; a cell that is not a number is an error.
func parseFeatures(header records.Header, record []string, columns []string) (values []float64, complete bool, err error) {
	values = make([]float64, len(columns))
	complete = true
	for i, column := range columns {
		raw := strings.TrimSpace(header.Get(record, column))
		if raw == "" {
			complete = false
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false, fmt.Errorf("feature %s: %w", column, err)
		}
		if math.IsNaN(v) {
			complete = false
		}
		values[i] = v
	}
	return values, complete, nil
}

func malformed(schema linkage.Schema, message string, err error) error {
	return linkage.Wrap(linkage.ErrMalformedLabelledSource, schema.Stage, "labelled source", message, err)
}

// Load reads the labelled source at path. A missing or malformed source is
// logged as critical and yields empty ground truth together with the marked
// error, which callers treat as recoverable.
func Load(ctx context.Context, path string, schema linkage.Schema, opts ReadOptions, logger *slog.Logger) (*Examples, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "labelled"))

	examples, err := readFile(path, schema, opts)
	if err != nil {
		logging.ErrorWithContext(logger, "labelled source unusable; continuing without ground truth",
			"labelled_source_malformed",
			logging.String("path", path),
			logging.Error(err),
			logging.Alert("critical"),
			logging.String(logging.FieldErrorHint, "check the labelled CSV header and match column"),
			logging.String(logging.FieldImpact, "every candidate is classified by the model"),
		)
		return Empty(schema), err
	}

	counts := examples.Counts()
	logger.Info("labelled source loaded",
		logging.String("path", path),
		logging.Int("examples", examples.Len()),
		logging.Int("positive", counts[linkage.Positive]),
		logging.Int("negative", counts[linkage.Negative]),
		logging.Int("duplicates_ignored", examples.Duplicates()),
		logging.Int("incomplete_features", examples.IncompleteFeatures()),
	)
	return examples, nil
}

func readFile(path string, schema linkage.Schema, opts ReadOptions) (*Examples, error) {
	if strings.TrimSpace(path) == "" {
		return nil, malformed(schema, "no labelled source configured", nil)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, malformed(schema, "open", err)
	}
	defer file.Close()
	return Read(file, schema, opts)
}
