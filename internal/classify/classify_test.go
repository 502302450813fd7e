package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"cpelink/internal/linkage"
)

const stumpForest = `{
  "name": "vendor-stump",
  "stage": "vendor",
  "schema_version": 1,
  "features": ["fz_ratio", "fz_uwratio"],
  "trees": [
    {"nodes": [
      {"feature": 1, "threshold": 80, "left": 1, "right": 2},
      {"feature": -1, "value": [9, 1]},
      {"feature": -1, "value": [1, 9]}
    ]},
    {"nodes": [
      {"feature": 0, "threshold": 50, "left": 1, "right": 2},
      {"feature": -1, "value": [1, 0]},
      {"feature": -1, "value": [0, 1]}
    ]}
  ]
}`

func testSchema(t *testing.T, stage string, features ...string) linkage.Schema {
	t.Helper()
	schema, err := linkage.NewSchema(stage, []string{"publisher0", "vendor_X"}, features, nil)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}

func table(t *testing.T, schema linkage.Schema, features ...[]float64) *linkage.Table {
	t.Helper()
	b := linkage.NewBuilder(schema, len(features))
	for i, f := range features {
		key := []string{"pub", string(rune('a' + i))}
		if err := b.Append(linkage.Row{Key: key, Features: f}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return b.Build()
}

func TestForestPredict(t *testing.T) {
	forest, err := DecodeForest(strings.NewReader(stumpForest))
	if err != nil {
		t.Fatalf("DecodeForest: %v", err)
	}
	labels, err := forest.Predict([][]float64{
		{90, 95}, // both trees positive
		{10, 20}, // both negative
		{90, 20}, // tree0 .1 positive, tree1 1.0 positive: mean .55
		{10, 95}, // tree0 .9, tree1 0: mean .45
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []linkage.Label{linkage.Positive, linkage.Negative, linkage.Positive, linkage.Negative}
	if !slices.Equal(labels, want) {
		t.Fatalf("Predict = %v, want %v", labels, want)
	}
	if _, err := forest.Predict([][]float64{{1}}); err == nil {
		t.Fatal("expected arity error")
	}
}

func TestForestTieIsNegative(t *testing.T) {
	forest := &Forest{
		SchemaVersion: ForestSchemaVersion,
		FeatureNames:  []string{"fz_ratio"},
		Trees:         []Tree{{Nodes: []Node{{Feature: -1, Value: [2]float64{5, 5}}}}},
	}
	if err := forest.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	labels, err := forest.Predict([][]float64{{50}})
	if err != nil || labels[0] != linkage.Negative {
		t.Fatalf("expected negative on tie, got %v, %v", labels, err)
	}
}

func TestForestValidate(t *testing.T) {
	cases := map[string]string{
		"version":       `{"schema_version": 2, "features": ["a"], "trees": [{"nodes": [{"feature": -1, "value": [1, 0]}]}]}`,
		"no features":   `{"schema_version": 1, "features": [], "trees": [{"nodes": [{"feature": -1, "value": [1, 0]}]}]}`,
		"no trees":      `{"schema_version": 1, "features": ["a"], "trees": []}`,
		"empty tree":    `{"schema_version": 1, "features": ["a"], "trees": [{"nodes": []}]}`,
		"feature range": `{"schema_version": 1, "features": ["a"], "trees": [{"nodes": [{"feature": 3, "left": 1, "right": 2}, {"feature": -1, "value": [1, 0]}, {"feature": -1, "value": [0, 1]}]}]}`,
		"cycle":         `{"schema_version": 1, "features": ["a"], "trees": [{"nodes": [{"feature": 0, "left": 0, "right": 1}, {"feature": -1, "value": [1, 0]}]}]}`,
		"dangling":      `{"schema_version": 1, "features": ["a"], "trees": [{"nodes": [{"feature": 0, "left": 1, "right": 5}, {"feature": -1, "value": [1, 0]}]}]}`,
		"zero leaf":     `{"schema_version": 1, "features": ["a"], "trees": [{"nodes": [{"feature": -1, "value": [0, 0]}]}]}`,
		"unknown field": `{"schema_version": 1, "features": ["a"], "extra": true, "trees": [{"nodes": [{"feature": -1, "value": [1, 0]}]}]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeForest(strings.NewReader(input)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

type recordingModel struct {
	features []string
	calls    int
	label    linkage.Label
}

func (m *recordingModel) Features() []string { return m.features }

func (m *recordingModel) Predict(rows [][]float64) ([]linkage.Label, error) {
	m.calls++
	out := make([]linkage.Label, len(rows))
	for i := range out {
		out[i] = m.label
	}
	return out, nil
}

func TestAdapterSchemaMismatch(t *testing.T) {
	schema := testSchema(t, "vendor", "fz_ratio", "fz_uwratio")
	model := &recordingModel{features: []string{"fz_uwratio", "fz_ratio"}}
	if _, err := New(model, schema); !errors.Is(err, linkage.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for reordered features, got %v", err)
	}
	if linkage.Recoverable(linkage.ErrSchemaMismatch) {
		t.Fatal("schema mismatch must not be recoverable")
	}

	forest, err := DecodeForest(strings.NewReader(stumpForest))
	if err != nil {
		t.Fatalf("DecodeForest: %v", err)
	}
	if _, err := New(forest, testSchema(t, "software", "fz_ratio", "fz_uwratio")); !errors.Is(err, linkage.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for other stage, got %v", err)
	}
}

func TestAdapterClassify(t *testing.T) {
	schema := testSchema(t, "vendor", "fz_ratio", "fz_uwratio")
	model := &recordingModel{features: schema.FeatureColumns, label: linkage.Positive}
	adapter, err := New(model, schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	empty := linkage.Empty(schema)
	out, err := adapter.Classify(context.Background(), empty)
	if err != nil || out.Len() != 0 {
		t.Fatalf("unexpected result for empty input: %d rows, %v", out.Len(), err)
	}
	if model.calls != 0 {
		t.Fatalf("model must not be called for empty input, got %d calls", model.calls)
	}

	in := table(t, schema, []float64{1, 2}, []float64{3, 4})
	out, err = adapter.Classify(context.Background(), in)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("expected a single batch call, got %d", model.calls)
	}
	for i := 0; i < out.Len(); i++ {
		if out.Label(i) != linkage.Positive || out.Source(i) != linkage.SourceClassified {
			t.Fatalf("row %d: got %v/%v", i, out.Label(i), out.Source(i))
		}
	}
	if in.Label(0) != linkage.Unknown {
		t.Fatal("input table must not be modified")
	}
}

func TestAdapterWithoutModel(t *testing.T) {
	schema := testSchema(t, "vendor", "fz_ratio")
	adapter, err := New(nil, schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if adapter.HasModel() {
		t.Fatal("expected no model")
	}
	in := table(t, schema, []float64{1})
	out, err := adapter.Classify(context.Background(), in)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Label(0) != linkage.Unknown {
		t.Fatalf("expected unknown label without a model, got %v", out.Label(0))
	}
}

func TestLoadModel(t *testing.T) {
	schema := testSchema(t, "vendor", "fz_ratio", "fz_uwratio")
	dir := t.TempDir()

	model, err := LoadModel(context.Background(), filepath.Join(dir, "missing.json"), schema, nil)
	if !errors.Is(err, linkage.ErrModelLoad) || model != nil {
		t.Fatalf("expected ErrModelLoad and nil model, got %v, %v", model, err)
	}
	if !linkage.Recoverable(err) {
		t.Fatal("model load failure should be recoverable")
	}

	path := filepath.Join(dir, "vendor.json")
	if err := os.WriteFile(path, []byte(stumpForest), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	model, err = LoadModel(context.Background(), path, schema, nil)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if !slices.Equal(model.Features(), schema.FeatureColumns) {
		t.Fatalf("unexpected features %v", model.Features())
	}
}
