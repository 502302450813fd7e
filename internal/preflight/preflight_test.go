package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cpelink/internal/config"
	"cpelink/internal/linkage"
	"cpelink/internal/records"
	"cpelink/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRecordSet(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "catalog.csv")
	testsupport.WriteText(t, good, testsupport.SampleCatalogCSV)
	short := filepath.Join(dir, "short.csv")
	testsupport.WriteText(t, short, "vendor_X,software_X\noracle,jre\n")
	empty := filepath.Join(dir, "empty.csv")
	testsupport.WriteText(t, empty, "")

	tests := []struct {
		name   string
		path   string
		passed bool
		detail string
	}{
		{name: "valid", path: good, passed: true, detail: "header ok"},
		{name: "missing columns", path: short, detail: "missing columns"},
		{name: "empty", path: empty, detail: "no header row"},
		{name: "absent", path: filepath.Join(dir, "nope.csv"), detail: "not readable"},
		{name: "unset", path: "", detail: "not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckRecordSet("Catalog", tt.path, records.CatalogColumns())
			if result.Passed != tt.passed {
				t.Fatalf("passed = %v, want %v (%s)", result.Passed, tt.passed, result.Detail)
			}
			if !strings.Contains(result.Detail, tt.detail) {
				t.Fatalf("detail %q does not mention %q", result.Detail, tt.detail)
			}
		})
	}
}

func TestCheckModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	schema := vendorSchema(t, cfg)
	dir := t.TempDir()

	missing := CheckModel("Vendor model", filepath.Join(dir, "absent.json"), schema)
	if missing.Passed || missing.Blocking() {
		t.Fatalf("expected an advisory failure for a missing model, got %+v", missing)
	}

	good := filepath.Join(dir, "good.json")
	testsupport.WriteText(t, good, testsupport.ConstantForest("vendor", cfg.Vendor.Schema.FeatureColumns, true))
	if result := CheckModel("Vendor model", good, schema); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}

	mismatched := filepath.Join(dir, "mismatched.json")
	testsupport.WriteText(t, mismatched, testsupport.ConstantForest("vendor", []string{"other_feature"}, true))
	if result := CheckModel("Vendor model", mismatched, schema); !result.Blocking() {
		t.Fatalf("expected a blocking failure for a model trained on other features, got %+v", result)
	}
}

func TestCheckLabelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	schema := vendorSchema(t, cfg)
	dir := t.TempDir()
	fold := []string{"publisher0", "vendor_X"}

	good := filepath.Join(dir, "good.csv")
	testsupport.WriteText(t, good, "publisher0,vendor_X,match\nOracle Corporation,oracle,1\nAdobe,oracle,0\n")
	result := CheckLabelled("Vendor labelled data", good, schema, fold)
	if !result.Passed || !strings.Contains(result.Detail, "1 positive, 1 negative") {
		t.Fatalf("unexpected result %+v", result)
	}

	bad := filepath.Join(dir, "bad.csv")
	testsupport.WriteText(t, bad, "publisher0,vendor_X,match\nOracle Corporation,oracle,2\n")
	result = CheckLabelled("Vendor labelled data", bad, schema, fold)
	if result.Passed || result.Blocking() {
		t.Fatalf("expected an advisory failure for a malformed source, got %+v", result)
	}

	result = CheckLabelled("Vendor labelled data", filepath.Join(dir, "absent.csv"), schema, fold)
	if result.Passed || result.Blocking() {
		t.Fatalf("expected an advisory failure for a missing source, got %+v", result)
	}
}

func TestCheckStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckStore("Store", cfg.Paths.StorePath); !result.Passed || !strings.Contains(result.Detail, "created on first run") {
		t.Fatalf("expected a missing store to pass, got %+v", result)
	}
	testsupport.MustOpenStore(t, cfg)
	if result := CheckStore("Store", cfg.Paths.StorePath); !result.Passed || !strings.Contains(result.Detail, "schema ok") {
		t.Fatalf("expected an existing store to pass, got %+v", result)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSampleInputs(), testsupport.WithAcceptAllModels())
	testsupport.MustOpenStore(t, cfg)

	results := RunAll(cfg)
	if Failed(results) {
		t.Fatalf("expected all blocking checks to pass, got %+v", results)
	}
	names := make(map[string]Result, len(results))
	for _, r := range results {
		names[r.Name] = r
	}
	for _, name := range []string{"Data directory", "Catalog", "Inventory", "Store", "Vendor model", "Software model"} {
		if !names[name].Passed {
			t.Fatalf("expected %s to pass, got %+v", name, names[name])
		}
	}
	if r := names["Vendor labelled data"]; r.Passed || !r.Advisory {
		t.Fatalf("expected the missing vendor labels to be advisory, got %+v", r)
	}
}

func TestRunAllMissingInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(cfg)
	if !Failed(results) {
		t.Fatalf("expected a blocking failure without inputs, got %+v", results)
	}
	if RunAll(nil) != nil {
		t.Fatal("expected no results for a nil config")
	}
}

func vendorSchema(t *testing.T, cfg *config.Config) linkage.Schema {
	t.Helper()
	schema, err := linkage.NewSchema("vendor", cfg.Vendor.Schema.KeyColumns, cfg.Vendor.Schema.FeatureColumns, cfg.Vendor.Schema.AttrColumns)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}
