package matcher_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"cpelink/internal/candidates"
	"cpelink/internal/config"
	"cpelink/internal/linkage"
	"cpelink/internal/matcher"
	"cpelink/internal/records"
)

type stubModel struct {
	features []string
	label    linkage.Label
	calls    int
	rows     int
}

func (m *stubModel) Features() []string { return slices.Clone(m.features) }

func (m *stubModel) Predict(rows [][]float64) ([]linkage.Label, error) {
	m.calls++
	m.rows += len(rows)
	out := make([]linkage.Label, len(rows))
	for i := range out {
		out[i] = m.label
	}
	return out, nil
}

type memStore struct {
	tables map[string]*linkage.Table
	runIDs map[string]string
}

func newMemStore() *memStore {
	return &memStore{tables: map[string]*linkage.Table{}, runIDs: map[string]string{}}
}

func (s *memStore) SaveTable(_ context.Context, stage, runID string, t *linkage.Table) error {
	s.tables[stage] = t
	s.runIDs[stage] = runID
	return nil
}

func (s *memStore) LoadTable(_ context.Context, stage string) (*linkage.Table, error) {
	t, ok := s.tables[stage]
	if !ok {
		return nil, linkage.Wrap(linkage.ErrNotFound, stage, "load", "", nil)
	}
	return t, nil
}

var (
	catalog = []records.CatalogEntry{
		{Vendor: "oracle", Product: "jre", Release: "1.8.0", Title: "Oracle JRE 1.8.0 Update 181",
			Name23: "cpe:2.3:a:oracle:jre:1.8.0:update_181:*:*:*:*:*:*", Name: "cpe:/a:oracle:jre:1.8.0:update_181"},
		{Vendor: "adobe", Product: "flash_player", Release: "", Title: "Adobe Flash Player",
			Name23: "cpe:2.3:a:adobe:flash_player:-:*:*:*:*:*:*:*", Name: "cpe:/a:adobe:flash_player:-"},
	}
	inventory = []records.InventoryItem{
		{Publisher: "Oracle Corporation", DisplayName: "Java 8 Update 181", Version: "8.0.1810"},
		{Publisher: "Adobe Systems Incorporated", DisplayName: "Adobe Flash Player 32 NPAPI", Version: "32.0.0.453"},
		{Publisher: "Unknown Vendor Labs", DisplayName: "Widget", Version: ""},
	}
)

func vendorModel(label linkage.Label) *stubModel {
	return &stubModel{features: config.DefaultVendorSchema().FeatureColumns, label: label}
}

func softwareModel(label linkage.Label) *stubModel {
	return &stubModel{features: config.DefaultSoftwareSchema().FeatureColumns, label: label}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Vendor.LabelledPath = filepath.Join(dir, "missing_vendors.csv")
	cfg.Software.LabelledPath = filepath.Join(dir, "missing_software.csv")
	cfg.Vendor.ModelPath = filepath.Join(dir, "missing_vendor_model.json")
	cfg.Software.ModelPath = filepath.Join(dir, "missing_software_model.json")
	return &cfg
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labelled.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write labelled source: %v", err)
	}
	return path
}

func keys(t *linkage.Table) [][]string {
	var out [][]string
	for i := 0; i < t.Len(); i++ {
		out = append(out, t.Key(i))
	}
	return out
}

func TestVendorMatchLinksPublishers(t *testing.T) {
	model := vendorModel(linkage.Positive)
	m, err := matcher.NewVendorMatcher(testConfig(t), matcher.WithModel(model))
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	report, err := m.Match(context.Background(), catalog, inventory)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	want := [][]string{
		{"adobe_systems_incorporated", "adobe"},
		{"oracle_corporation", "oracle"},
	}
	if got := keys(m.Get()); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected links:\n got %v\nwant %v", got, want)
	}
	if report.Matches != 2 || report.Candidates != 2 || !report.ModelLoaded {
		t.Fatalf("unexpected report %+v", report)
	}
	if model.calls != 1 || model.rows != 2 {
		t.Fatalf("expected one predict call over 2 rows, got %d calls over %d rows", model.calls, model.rows)
	}
}

func TestLabelledDataTakesPrecedence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vendor.LabelledPath = writeFile(t, "publisher0,vendor_X,match\n"+
		"Oracle Corporation,oracle,0\n"+
		"Adobe Systems Incorporated,adobe,1\n"+
		"Mozilla Foundation,mozilla,1\n")
	model := vendorModel(linkage.Positive)
	m, err := matcher.NewVendorMatcher(cfg, matcher.WithModel(model))
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	report, err := m.Match(context.Background(), catalog, inventory)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("every candidate was labelled, model should not be consulted (calls=%d)", model.calls)
	}
	want := [][]string{
		{"adobe_systems_incorporated", "adobe"},
		{"mozilla_foundation", "mozilla"},
	}
	if got := keys(m.Get()); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected links:\n got %v\nwant %v", got, want)
	}
	for i := 0; i < m.Get().Len(); i++ {
		if m.Get().Source(i) != linkage.SourceLabelled {
			t.Fatalf("row %d should come from labelled data, got %s", i, m.Get().Source(i))
		}
	}
	if report.Labelled != 2 || report.Unlabelled != 0 {
		t.Fatalf("unexpected reconcile counts %+v", report)
	}
}

func TestEmptyInventoryAndLabelsYieldEmptyTable(t *testing.T) {
	model := vendorModel(linkage.Positive)
	m, err := matcher.NewVendorMatcher(testConfig(t), matcher.WithModel(model))
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	report, err := m.Match(context.Background(), catalog, nil)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if m.Get().Len() != 0 || report.Matches != 0 {
		t.Fatalf("expected empty linkage table, got %d rows", m.Get().Len())
	}
	if model.calls != 0 {
		t.Fatalf("model consulted for empty input")
	}
}

func TestMissingModelDegrades(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vendor.LabelledPath = writeFile(t, "publisher0,vendor_X,match\nOracle Corporation,oracle,1\n")
	m, err := matcher.NewVendorMatcher(cfg)
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	report, err := m.Match(context.Background(), catalog, inventory)
	if err != nil {
		t.Fatalf("missing model should not fail the stage: %v", err)
	}
	if report.ModelLoaded {
		t.Fatal("expected no model")
	}
	if got := keys(m.Get()); !reflect.DeepEqual(got, [][]string{{"oracle_corporation", "oracle"}}) {
		t.Fatalf("expected only the labelled link, got %v", got)
	}
}

func TestModelSchemaMismatchFailsStage(t *testing.T) {
	model := &stubModel{features: []string{"fz_ratio"}, label: linkage.Positive}
	m, err := matcher.NewVendorMatcher(testConfig(t), matcher.WithModel(model))
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	if _, err := m.Match(context.Background(), catalog, inventory); !errors.Is(err, linkage.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestMatchIsDeterministicAcrossWorkers(t *testing.T) {
	var base [][]string
	for _, workers := range []int{1, 2, 5} {
		cfg := testConfig(t)
		cfg.Matching.Workers = workers
		m, err := matcher.NewVendorMatcher(cfg, matcher.WithModel(vendorModel(linkage.Positive)))
		if err != nil {
			t.Fatalf("NewVendorMatcher: %v", err)
		}
		if _, err := m.Match(context.Background(), catalog, inventory); err != nil {
			t.Fatalf("Match: %v", err)
		}
		got := keys(m.Get())
		if base == nil {
			base = got
			continue
		}
		if !reflect.DeepEqual(base, got) {
			t.Fatalf("workers=%d changed the result: %v vs %v", workers, got, base)
		}
	}
}

func TestResolveVendors(t *testing.T) {
	vm, err := matcher.NewVendorMatcher(testConfig(t), matcher.WithModel(vendorModel(linkage.Positive)))
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	if _, err := vm.Match(context.Background(), catalog, inventory); err != nil {
		t.Fatalf("Match: %v", err)
	}
	groups, err := matcher.ResolveVendors(vm.Get(), append(slices.Clone(inventory),
		records.InventoryItem{Publisher: "ORACLE  corporation", DisplayName: "Java 8 Update 181", Version: "8.0.1810"},
		records.InventoryItem{Publisher: "Oracle Corporation", DisplayName: "MySQL Workbench"},
	))
	if err != nil {
		t.Fatalf("ResolveVendors: %v", err)
	}
	want := []candidates.InventoryGroup{
		{Vendor: "adobe", DisplayName: "Adobe Flash Player 32 NPAPI", Version: "32.0.0.453"},
		{Vendor: "oracle", DisplayName: "Java 8 Update 181", Version: "8.0.1810"},
		{Vendor: "oracle", DisplayName: "MySQL Workbench", Version: candidates.Unversioned},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("unexpected groups:\n got %v\nwant %v", groups, want)
	}
}

func TestSoftwareMatchEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	vm, err := matcher.NewVendorMatcher(cfg, matcher.WithModel(vendorModel(linkage.Positive)))
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	if _, err := vm.Match(context.Background(), catalog, inventory); err != nil {
		t.Fatalf("vendor Match: %v", err)
	}
	groups, err := matcher.ResolveVendors(vm.Get(), inventory)
	if err != nil {
		t.Fatalf("ResolveVendors: %v", err)
	}

	sm, err := matcher.NewSoftwareMatcher(cfg, matcher.WithModel(softwareModel(linkage.Positive)))
	if err != nil {
		t.Fatalf("NewSoftwareMatcher: %v", err)
	}
	report, err := sm.Match(context.Background(), catalog, groups)
	if err != nil {
		t.Fatalf("software Match: %v", err)
	}
	table := sm.Get()
	if table.Len() != 2 || report.Matches != 2 {
		t.Fatalf("expected two software links, got %v", keys(table))
	}
	schema := table.Schema()
	refs, err := schema.Resolve(sm.OutputColumns()...)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := [][]string{
		{"adobe", "Adobe Flash Player 32 NPAPI", "32.0.0.453", "cpe:/a:adobe:flash_player:-"},
		{"oracle", "Java 8 Update 181", "8.0.1810", "cpe:/a:oracle:jre:1.8.0:update_181"},
	}
	for i, w := range want {
		if got := table.Tuple(i, refs); !slices.Equal(got, w) {
			t.Fatalf("row %d = %v, want %v", i, got, w)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	cfg := testConfig(t)
	store := newMemStore()
	m, err := matcher.NewVendorMatcher(cfg, matcher.WithModel(vendorModel(linkage.Positive)))
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	if _, err := m.Match(context.Background(), catalog, inventory); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if err := m.Save(context.Background(), store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh, err := matcher.NewVendorMatcher(cfg)
	if err != nil {
		t.Fatalf("NewVendorMatcher: %v", err)
	}
	if fresh.Get().Len() != 0 {
		t.Fatal("expected a new matcher to start empty")
	}
	if err := fresh.Load(context.Background(), store); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(fresh.Get().Rows(), m.Get().Rows()) {
		t.Fatal("loaded table differs from saved table")
	}

	sm, err := matcher.NewSoftwareMatcher(cfg)
	if err != nil {
		t.Fatalf("NewSoftwareMatcher: %v", err)
	}
	if err := sm.Load(context.Background(), store); !errors.Is(err, linkage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	store.tables[matcher.StageSoftware] = m.Get()
	if err := sm.Load(context.Background(), store); !errors.Is(err, linkage.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
