package testsupport

import (
	"testing"

	"cpelink/internal/config"
	"cpelink/internal/linkage"
	"cpelink/internal/store"
)

// MustOpenStore opens the configured store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg.Paths.StorePath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// MustTable builds a table from rows, failing the test on arity errors.
func MustTable(t testing.TB, schema linkage.Schema, rows ...linkage.Row) *linkage.Table {
	t.Helper()

	b := linkage.NewBuilder(schema, len(rows))
	for _, row := range rows {
		if err := b.Append(row); err != nil {
			t.Fatalf("append row %v: %v", row.Key, err)
		}
	}
	return b.Build()
}
