package labelled

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"cpelink/internal/linkage"
)

func vendorSchema(t *testing.T) linkage.Schema {
	t.Helper()
	schema, err := linkage.NewSchema("vendor",
		[]string{"publisher0", "vendor_X"},
		[]string{"fz_ratio", "fz_uwratio"},
		[]string{"pub0_cln", "ven_cln"},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}

func candidateTable(t *testing.T, schema linkage.Schema, rows ...linkage.Row) *linkage.Table {
	t.Helper()
	b := linkage.NewBuilder(schema, len(rows))
	for _, row := range rows {
		if err := b.Append(row); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return b.Build()
}

func TestReadFoldsKeysAndIgnoresDuplicates(t *testing.T) {
	schema := vendorSchema(t)
	input := ",publisher0,vendor_X,match\n" +
		"0,oracle_corporation,Oracle,1\n" +
		"1,adobe_systems,adobe,0.0\n" +
		"2,oracle_corporation,oracle,0\n"
	examples, err := Read(strings.NewReader(input), schema, ReadOptions{FoldColumns: []string{"vendor_X"}})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if examples.Len() != 2 || examples.Duplicates() != 1 {
		t.Fatalf("expected 2 examples and 1 duplicate, got %d/%d", examples.Len(), examples.Duplicates())
	}
	ex, ok := examples.Lookup([]string{"oracle_corporation", "oracle"})
	if !ok || ex.Label != linkage.Positive {
		t.Fatalf("expected positive oracle example, got %+v (found=%v)", ex, ok)
	}
	if ex.Features != nil || ex.Attrs != nil {
		t.Fatalf("source without feature columns should not carry features: %+v", ex)
	}
}

func TestReadMalformed(t *testing.T) {
	schema := vendorSchema(t)
	cases := map[string]string{
		"empty":              "",
		"missing key":        "publisher0,match\nacme,1\n",
		"missing match":      "publisher0,vendor_X\nacme,acme\n",
		"bad match":          "publisher0,vendor_X,match\nacme,acme,yes\n",
		"out of range":       "publisher0,vendor_X,match\nacme,acme,2\n",
		"blank match":        "publisher0,vendor_X,match\nacme,acme,\n",
		"bad feature":        "publisher0,vendor_X,match,fz_ratio,fz_uwratio\nacme,acme,1,abc,90\n",
		"unterminated quote": "publisher0,vendor_X,match\n\"acme,acme,1\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(input), schema, ReadOptions{}); !errors.Is(err, linkage.ErrMalformedLabelledSource) {
				t.Fatalf("expected ErrMalformedLabelledSource, got %v", err)
			}
		})
	}
}

func TestLoadMissingFileDegrades(t *testing.T) {
	schema := vendorSchema(t)
	examples, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.csv"), schema, ReadOptions{}, nil)
	if !errors.Is(err, linkage.ErrMalformedLabelledSource) {
		t.Fatalf("expected ErrMalformedLabelledSource, got %v", err)
	}
	if !linkage.Recoverable(err) {
		t.Fatal("malformed labelled source should be recoverable")
	}
	if examples == nil || examples.Len() != 0 {
		t.Fatalf("expected empty examples, got %v", examples)
	}
}

func TestLoadFile(t *testing.T) {
	schema := vendorSchema(t)
	path := filepath.Join(t.TempDir(), "label_vendors.csv")
	content := "publisher0,vendor_X,match,fz_ratio,fz_uwratio,pub0_cln,ven_cln\n" +
		"oracle_corporation,oracle,1,55,90,oracle,oracle\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write labelled: %v", err)
	}
	examples, err := Load(context.Background(), path, schema, ReadOptions{}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ex, ok := examples.Lookup([]string{"oracle_corporation", "oracle"})
	if !ok || !slices.Equal(ex.Features, []float64{55, 90}) || !slices.Equal(ex.Attrs, []string{"oracle", "oracle"}) {
		t.Fatalf("unexpected example %+v", ex)
	}
}

func TestReconcile(t *testing.T) {
	schema := vendorSchema(t)
	candidates := candidateTable(t, schema,
		linkage.Row{Key: []string{"oracle_corporation", "oracle"}, Features: []float64{100, 100}, Attrs: []string{"oracle", "oracle"}},
		linkage.Row{Key: []string{"oracle_america", "oracle"}, Features: []float64{80, 90}, Attrs: []string{"oracle america", "oracle"}},
		linkage.Row{Key: []string{"", "oracle"}, Features: []float64{80, 90}, Attrs: []string{"", "oracle"}},
		linkage.Row{Key: []string{"nan_corp", "nan"}, Features: []float64{math.NaN(), 90}, Attrs: []string{"nan", "nan"}},
	)
	examples, err := Read(strings.NewReader("publisher0,vendor_X,match\noracle_corporation,oracle,1\n"), schema, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	out, stats := Reconcile(context.Background(), candidates, examples, nil)
	if out.Len() != 2 {
		t.Fatalf("expected 2 rows after drops, got %d", out.Len())
	}
	if stats.Dropped[DropEmptyKey] != 1 || stats.Dropped[DropNonFinite] != 1 {
		t.Fatalf("unexpected drop counts %v", stats.Dropped)
	}
	if out.Label(0) != linkage.Positive || out.Source(0) != linkage.SourceLabelled {
		t.Fatalf("expected labelled positive, got %v/%v", out.Label(0), out.Source(0))
	}
	if out.Label(1) != linkage.Unknown {
		t.Fatalf("expected unknown for unlabelled candidate, got %v", out.Label(1))
	}
	if candidates.Label(0) != linkage.Unknown {
		t.Fatal("input table must not be modified")
	}

	labelledRows, unlabelledRows := Split(out)
	if labelledRows.Len() != 1 || unlabelledRows.Len() != 1 {
		t.Fatalf("unexpected split %d/%d", labelledRows.Len(), unlabelledRows.Len())
	}
	if stats.Labelled != 1 || stats.Unlabelled != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestExamplesTable(t *testing.T) {
	schema := vendorSchema(t)
	candidates := candidateTable(t, schema,
		linkage.Row{Key: []string{"oracle_corporation", "oracle"}, Features: []float64{100, 95}, Attrs: []string{"oracle", "oracle"}},
	)
	input := "publisher0,vendor_X,match\n" +
		"oracle_corporation,oracle,1\n" +
		"sun_microsystems,sun,1\n" +
		",empty,1\n"
	examples, err := Read(strings.NewReader(input), schema, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	table, err := examples.Table(candidates)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	if !slices.Equal(table.FeatureRow(0), []float64{100, 95}) {
		t.Fatalf("expected features from matching candidate, got %v", table.FeatureRow(0))
	}
	if !slices.Equal(table.FeatureRow(1), []float64{0, 0}) || !slices.Equal(table.Attrs(1), []string{"", ""}) {
		t.Fatalf("expected zero values for unmatched example, got %v %v", table.FeatureRow(1), table.Attrs(1))
	}
	for i := 0; i < table.Len(); i++ {
		if table.Source(i) != linkage.SourceLabelled || table.Label(i) != linkage.Positive {
			t.Fatalf("row %d: unexpected label/source %v/%v", i, table.Label(i), table.Source(i))
		}
	}
	if empty, err := Empty(schema).Table(candidates); err != nil || empty.Len() != 0 {
		t.Fatalf("empty examples should produce an empty table, got %v", err)
	}
}

func TestExamplesTableRejectsCandidatesOfAnotherLayout(t *testing.T) {
	schema := vendorSchema(t)
	other, err := linkage.NewSchema("vendor", []string{"publisher0", "vendor_X"}, []string{"fz_ratio"}, []string{"pub0_cln", "ven_cln"})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	candidates := candidateTable(t, other,
		linkage.Row{Key: []string{"oracle_corporation", "oracle"}, Features: []float64{100}, Attrs: []string{"oracle", "oracle"}},
	)
	examples, err := Read(strings.NewReader("publisher0,vendor_X,match\noracle_corporation,oracle,1\n"), schema, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, err := examples.Table(candidates); !errors.Is(err, linkage.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReadKeepsVerdictWhenFeatureIsBlank(t *testing.T) {
	schema := vendorSchema(t)
	input := "publisher0,vendor_X,match,fz_ratio,fz_uwratio\n" +
		"oracle_corporation,oracle,1,55,90\n" +
		"adobe_systems,adobe,1,,88\n" +
		"sun_microsystems,sun,0,NaN,40\n"
	examples, err := Read(strings.NewReader(input), schema, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if examples.Len() != 3 || examples.IncompleteFeatures() != 2 {
		t.Fatalf("expected 3 examples with 2 incomplete, got %d/%d", examples.Len(), examples.IncompleteFeatures())
	}
	ex, ok := examples.Lookup([]string{"adobe_systems", "adobe"})
	if !ok || ex.Label != linkage.Positive || ex.Features != nil {
		t.Fatalf("expected a positive adobe example without features, got %+v (found=%v)", ex, ok)
	}
	if ex, _ := examples.Lookup([]string{"oracle_corporation", "oracle"}); !slices.Equal(ex.Features, []float64{55, 90}) {
		t.Fatalf("complete rows keep their features, got %v", ex.Features)
	}

	candidates := candidateTable(t, schema,
		linkage.Row{Key: []string{"adobe_systems", "adobe"}, Features: []float64{70, 88}, Attrs: []string{"adobe", "adobe"}},
	)
	table, err := examples.Table(candidates)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	for i := 0; i < table.Len(); i++ {
		if table.Key(i)[0] == "adobe_systems" && !slices.Equal(table.FeatureRow(i), []float64{70, 88}) {
			t.Fatalf("expected candidate features for the incomplete example, got %v", table.FeatureRow(i))
		}
	}
}
