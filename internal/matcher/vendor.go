package matcher

import (
	"context"
	"time"

	"cpelink/internal/candidates"
	"cpelink/internal/config"
	"cpelink/internal/linkage"
	"cpelink/internal/logging"
	"cpelink/internal/normalize"
	"cpelink/internal/records"
	"cpelink/internal/similarity"
)

// VendorMatcher links catalog vendors to inventory publishers.
type VendorMatcher struct {
	*core
}

// NewVendorMatcher builds the vendor stage from cfg.
func NewVendorMatcher(cfg *config.Config, opts ...Option) (*VendorMatcher, error) {
	if cfg == nil {
		return nil, linkage.Wrap(nil, StageVendor, "matcher", "config is required", nil)
	}
	c, err := newCore(cfg, StageVendor, cfg.Vendor.Schema, cfg.Vendor.ModelPath, cfg.Vendor.LabelledPath,
		[]string{candidates.ColPublisher, candidates.ColVendor}, opts)
	if err != nil {
		return nil, err
	}
	return &VendorMatcher{core: c}, nil
}

// Match replaces the vendor linkage table with the links found between the
// catalog's vendors and the inventory's publishers.
func (m *VendorMatcher) Match(ctx context.Context, catalog []records.CatalogEntry, inventory []records.InventoryItem) (Report, error) {
	start := time.Now()
	ctx = m.stageContext(ctx)
	logger := logging.WithContext(ctx, m.logger)
	report := Report{Stage: m.stage}

	features, err := m.featureSet(similarity.VendorBindings)
	if err != nil {
		return report, err
	}
	rules, err := candidates.NewVendorRules(m.schema, features, candidates.VendorConfig{
		LengthFloor:       m.cfg.Vendor.LengthFloor,
		TokenOverlapFloor: m.cfg.Vendor.TokenOverlapFloor,
	})
	if err != nil {
		return report, err
	}
	vendorNames, publisherNames, err := normalizers(m.cfg.Normalization)
	if err != nil {
		return report, linkage.Wrap(nil, m.stage, "normalize", "", err)
	}

	vendors := candidates.CatalogVendors(catalog, vendorNames)
	publishers := candidates.InventoryPublishers(inventory, publisherNames)
	report.Left, report.Right = len(vendors), len(publishers)
	if len(vendors) == 0 || len(publishers) == 0 {
		logger.Info("vendor stage has an empty side",
			logging.Int("catalog_vendors", len(vendors)),
			logging.Int("inventory_publishers", len(publishers)),
		)
	}

	table, stats, err := candidates.Generate(ctx, m.schema, vendors, rules.Right(publishers), rules, candidates.Options{
		Workers: m.cfg.Matching.Workers,
		Logger:  m.opts.logger,
	})
	if err != nil {
		return report, err
	}
	report.Candidates = stats.Candidates
	report.Rejected = rejectedByName(stats.Rejected)

	if err := m.finish(ctx, logger, table, &report); err != nil {
		return report, err
	}
	report.Elapsed = time.Since(start)
	m.logReport(logger, report)
	return report, nil
}

// normalizers builds the catalog vendor and inventory publisher normalizers,
// merging the optional stop-word file into the configured list.
func normalizers(cfg config.Normalization) (vendors, publishers *normalize.Normalizer, err error) {
	stopWords := append([]string(nil), cfg.StopWords...)
	if cfg.StopWordsFile != "" {
		extra, err := normalize.LoadStopWords(cfg.StopWordsFile)
		if err != nil {
			return nil, nil, err
		}
		stopWords = append(stopWords, extra...)
	}
	vendors = normalize.New(cfg.VendorSeparators, stopWords, cfg.MinTokenLength)
	publishers = normalize.New(cfg.PublisherSeparators, stopWords, cfg.MinTokenLength)
	return vendors, publishers, nil
}
