package testsupport

import (
	"path/filepath"
	"testing"

	"cpelink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Every input, model and labelled path points inside the temp directory and
// does not exist until a test writes it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StorePath = filepath.Join(base, "data", "linkage.db")
	cfgVal.Paths.CatalogCSV = filepath.Join(base, "input", "cpe_catalog.csv")
	cfgVal.Paths.InventoryCSV = filepath.Join(base, "input", "inventory.csv")
	cfgVal.Vendor.ModelPath = filepath.Join(base, "models", "vendor_classifier.json")
	cfgVal.Vendor.LabelledPath = filepath.Join(base, "labelled", "label_vendors.csv")
	cfgVal.Software.ModelPath = filepath.Join(base, "models", "software_classifier.json")
	cfgVal.Software.LabelledPath = filepath.Join(base, "labelled", "label_software.csv")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers sets the candidate generation worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.Workers = n
	}
}

// WithSampleInputs writes the sample catalog and inventory to the configured
// input paths.
func WithSampleInputs() ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Paths.CatalogCSV, SampleCatalogCSV)
		WriteText(b.t, b.cfg.Paths.InventoryCSV, SampleInventoryCSV)
	}
}

// WithVendorLabels writes body as the vendor stage labelled source.
func WithVendorLabels(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Vendor.LabelledPath, body)
	}
}

// WithSoftwareLabels writes body as the software stage labelled source.
func WithSoftwareLabels(body string) ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Software.LabelledPath, body)
	}
}

// WithAcceptAllModels writes single-leaf forests that predict Positive for
// every candidate of both stages.
func WithAcceptAllModels() ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Vendor.ModelPath, ConstantForest("vendor", b.cfg.Vendor.Schema.FeatureColumns, true))
		WriteText(b.t, b.cfg.Software.ModelPath, ConstantForest("software", b.cfg.Software.Schema.FeatureColumns, true))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
