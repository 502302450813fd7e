package matcher

import (
	"context"
	"time"

	"cpelink/internal/candidates"
	"cpelink/internal/config"
	"cpelink/internal/linkage"
	"cpelink/internal/logging"
	"cpelink/internal/records"
	"cpelink/internal/similarity"
)

// SoftwareMatcher links catalog products to inventory software within each
// resolved vendor.
type SoftwareMatcher struct {
	*core
}

// NewSoftwareMatcher builds the software stage from cfg.
func NewSoftwareMatcher(cfg *config.Config, opts ...Option) (*SoftwareMatcher, error) {
	if cfg == nil {
		return nil, linkage.Wrap(nil, StageSoftware, "matcher", "config is required", nil)
	}
	c, err := newCore(cfg, StageSoftware, cfg.Software.Schema, cfg.Software.ModelPath, cfg.Software.LabelledPath,
		[]string{candidates.ColVendor}, opts)
	if err != nil {
		return nil, err
	}
	return &SoftwareMatcher{core: c}, nil
}

// Match replaces the software linkage table. groups are the inventory's
// distinct software rows with their resolved vendor, see ResolveVendors.
func (m *SoftwareMatcher) Match(ctx context.Context, catalog []records.CatalogEntry, groups []candidates.InventoryGroup) (Report, error) {
	start := time.Now()
	ctx = m.stageContext(ctx)
	logger := logging.WithContext(ctx, m.logger)
	report := Report{Stage: m.stage}

	features, err := m.featureSet(similarity.SoftwareBindings)
	if err != nil {
		return report, err
	}
	families := make([]candidates.ExcludedFamily, len(m.cfg.Software.ExcludedFamilies))
	for i, family := range m.cfg.Software.ExcludedFamilies {
		families[i] = candidates.ExcludedFamily(family)
	}
	rules, err := candidates.NewSoftwareRules(m.schema, features, candidates.SoftwareConfig{
		TokenOverlapFloor:   m.cfg.Software.TokenOverlapFloor,
		ReleaseRatioFloor:   m.cfg.Software.ReleaseRatioFloor,
		ReleasePartialFloor: m.cfg.Software.ReleasePartialFloor,
		ExcludedVendors:     m.cfg.Software.ExcludedVendors,
		ExcludedFamilies:    families,
	})
	if err != nil {
		return report, err
	}

	products := candidates.CatalogProducts(catalog)
	report.Left, report.Right = len(groups), len(catalog)
	if len(groups) == 0 || len(products) == 0 {
		logger.Info("software stage has an empty side",
			logging.Int("inventory_groups", len(groups)),
			logging.Int("catalog_vendors", len(products)),
		)
	}

	table, stats, err := candidates.Generate(ctx, m.schema, groups, products, rules, candidates.Options{
		Workers: m.cfg.Matching.Workers,
		Logger:  m.opts.logger,
	})
	if err != nil {
		return report, err
	}
	report.Candidates = stats.Candidates
	report.Rejected = rejectedByName(stats.Rejected)
	report.MissingPartitions = stats.MissingPartitions

	if err := m.finish(ctx, logger, table, &report); err != nil {
		return report, err
	}
	report.Elapsed = time.Since(start)
	m.logReport(logger, report)
	return report, nil
}
