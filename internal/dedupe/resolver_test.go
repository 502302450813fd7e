package dedupe

import (
	"context"
	"errors"
	"slices"
	"testing"

	"cpelink/internal/linkage"
)

func softwareSchema(t *testing.T) linkage.Schema {
	t.Helper()
	schema, err := linkage.NewSchema("software",
		[]string{"vendor_X", "software_X", "DisplayName0", "Version0"},
		[]string{"fz_ratio", "fz_uwratio"},
		[]string{"t_cve_name"},
	)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}

func build(t *testing.T, schema linkage.Schema, rows ...linkage.Row) *linkage.Table {
	t.Helper()
	b := linkage.NewBuilder(schema, len(rows))
	for _, row := range rows {
		if err := b.Append(row); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return b.Build()
}

func row(software string, uw float64, label linkage.Label) linkage.Row {
	return linkage.Row{
		Key:      []string{"adobe", software, "Adobe Reader XI", "11.0"},
		Features: []float64{50, uw},
		Attrs:    []string{"cpe:/a:adobe:" + software},
		Label:    label,
	}
}

func TestResolveKeepsHighestStatistic(t *testing.T) {
	schema := softwareSchema(t)
	in := build(t, schema,
		row("acrobat", 90, linkage.Positive),
		row("acrobat_reader", 95, linkage.Positive),
	)
	out, err := New([]string{"vendor_X", "DisplayName0", "Version0"}, "fz_uwratio", nil).Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("expected one row, got %d", out.Len())
	}
	if got := out.Key(0)[1]; got != "acrobat_reader" {
		t.Fatalf("expected the 95 scoring row, got %q", got)
	}
}

func TestResolveDropsNonPositive(t *testing.T) {
	schema := softwareSchema(t)
	in := build(t, schema,
		row("acrobat", 99, linkage.Negative),
		row("reader", 10, linkage.Unknown),
		row("acrobat_reader", 50, linkage.Positive),
	)
	out, err := New([]string{"vendor_X", "DisplayName0", "Version0"}, "fz_uwratio", nil).Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Len() != 1 || out.Key(0)[1] != "acrobat_reader" {
		t.Fatalf("unexpected rows %v", out.Rows())
	}
}

func TestResolveTieBreakIsOrderIndependent(t *testing.T) {
	schema := softwareSchema(t)
	a := row("reader", 95, linkage.Positive)
	b := row("acrobat", 95, linkage.Positive)
	resolver := New([]string{"vendor_X", "DisplayName0", "Version0"}, "fz_uwratio", nil)

	first, err := resolver.Resolve(context.Background(), build(t, schema, a, b))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), build(t, schema, b, a))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !slices.Equal(first.Key(0), second.Key(0)) {
		t.Fatalf("tie-break depends on input order: %v vs %v", first.Key(0), second.Key(0))
	}
	if first.Key(0)[1] != "acrobat" {
		t.Fatalf("expected lexicographically smallest key to win, got %v", first.Key(0))
	}
}

func TestResolveSortsGroupsAndNeverGrows(t *testing.T) {
	schema := softwareSchema(t)
	zulu := linkage.Row{Key: []string{"zulu", "z", "Zulu", "1"}, Features: []float64{1, 1}, Attrs: []string{""}, Label: linkage.Positive}
	alpha := linkage.Row{Key: []string{"alpha", "a", "Alpha", "1"}, Features: []float64{1, 1}, Attrs: []string{""}, Label: linkage.Positive}
	in := build(t, schema, zulu, alpha, row("acrobat", 90, linkage.Positive))
	out, err := New([]string{"vendor_X", "DisplayName0", "Version0"}, "fz_uwratio", nil).Resolve(context.Background(), in)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Len() > in.Len() {
		t.Fatalf("output grew from %d to %d", in.Len(), out.Len())
	}
	var vendors []string
	for i := 0; i < out.Len(); i++ {
		vendors = append(vendors, out.Key(i)[0])
	}
	if !slices.Equal(vendors, []string{"adobe", "alpha", "zulu"}) {
		t.Fatalf("unexpected order %v", vendors)
	}
}

func TestResolveUnknownColumns(t *testing.T) {
	schema := softwareSchema(t)
	in := build(t, schema, row("acrobat", 90, linkage.Positive))
	if _, err := New([]string{"nope"}, "fz_uwratio", nil).Resolve(context.Background(), in); !errors.Is(err, linkage.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for group column, got %v", err)
	}
	if _, err := New([]string{"vendor_X"}, "nope", nil).Resolve(context.Background(), in); !errors.Is(err, linkage.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for tie-break, got %v", err)
	}
}
