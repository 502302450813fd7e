package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"cpelink/internal/normalize"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNormalization()
	c.normalizeSimilarity()
	c.normalizeMatching()
	c.normalizeSchemas()
	c.normalizeSoftware()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	files := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.store_path", &c.Paths.StorePath, defaultStoreFile},
		{"paths.catalog_csv", &c.Paths.CatalogCSV, defaultCatalogFile},
		{"paths.inventory_csv", &c.Paths.InventoryCSV, defaultInventoryFile},
		{"vendor.model_path", &c.Vendor.ModelPath, defaultVendorModelFile},
		{"vendor.labelled_path", &c.Vendor.LabelledPath, defaultVendorLabelledFile},
		{"software.model_path", &c.Software.ModelPath, defaultSoftwareModelFile},
		{"software.labelled_path", &c.Software.LabelledPath, defaultSoftwareLabelled},
	}
	for _, file := range files {
		if err := c.resolveDataPath(file.value, file.fallback); err != nil {
			return fmt.Errorf("%s: %w", file.key, err)
		}
	}

	c.Normalization.StopWordsFile = strings.TrimSpace(c.Normalization.StopWordsFile)
	if c.Normalization.StopWordsFile != "" {
		if c.Normalization.StopWordsFile, err = expandPath(c.Normalization.StopWordsFile); err != nil {
			return fmt.Errorf("normalization.stop_words_file: %w", err)
		}
	}
	return nil
}

// resolveDataPath fills an empty value with a file under the data directory and
// resolves relative values against it.
func (c *Config) resolveDataPath(value *string, fallback string) error {
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		trimmed = fallback
	}
	if !strings.HasPrefix(trimmed, "~") && !filepath.IsAbs(trimmed) {
		trimmed = filepath.Join(c.Paths.DataDir, trimmed)
	}
	expanded, err := expandPath(trimmed)
	if err != nil {
		return err
	}
	*value = expanded
	return nil
}

func (c *Config) normalizeNormalization() {
	if c.Normalization.PublisherSeparators == "" {
		c.Normalization.PublisherSeparators = defaultPublisherSeparators
	}
	if c.Normalization.VendorSeparators == "" {
		c.Normalization.VendorSeparators = defaultVendorSeparators
	}
	if c.Normalization.MinTokenLength <= 0 {
		c.Normalization.MinTokenLength = defaultMinTokenLength
	}
	c.Normalization.StopWords = lowerUnique(c.Normalization.StopWords)
}

func (c *Config) normalizeSimilarity() {
	c.Similarity.Metric = strings.ToLower(strings.TrimSpace(c.Similarity.Metric))
	c.Similarity.Metric = strings.ReplaceAll(c.Similarity.Metric, "-", "_")
	if c.Similarity.Metric == "" {
		c.Similarity.Metric = defaultMetric
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = defaultWorkers
	}
	if c.Matching.SampleSize < 0 {
		c.Matching.SampleSize = 0
	}
}

func (c *Config) normalizeSchemas() {
	c.Vendor.Schema = normalizeSchema(c.Vendor.Schema, DefaultVendorSchema())
	c.Software.Schema = normalizeSchema(c.Software.Schema, DefaultSoftwareSchema())
}

func normalizeSchema(s, fallback Schema) Schema {
	s.KeyColumns = trimColumns(s.KeyColumns, fallback.KeyColumns)
	s.FeatureColumns = trimColumns(s.FeatureColumns, fallback.FeatureColumns)
	s.AttrColumns = trimColumns(s.AttrColumns, nil)
	s.DedupeColumns = trimColumns(s.DedupeColumns, s.KeyColumns)
	s.LinkageKey = trimColumns(s.LinkageKey, s.DedupeColumns)
	s.OutputColumns = trimColumns(s.OutputColumns, s.LinkageKey)
	s.TieBreakFeature = strings.TrimSpace(s.TieBreakFeature)
	if s.TieBreakFeature == "" {
		s.TieBreakFeature = defaultTieBreakFeature
	}
	return s
}

func trimColumns(columns, fallback []string) []string {
	out := make([]string, 0, len(columns))
	for _, column := range columns {
		if trimmed := strings.TrimSpace(column); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

// normalizeSoftware brings exclusion vendors to the join-key form the
// software stage partitions on, so "Adobe Systems" matches adobe_systems.
func (c *Config) normalizeSoftware() {
	c.Software.ExcludedVendors = joinKeyUnique(c.Software.ExcludedVendors)
	families := c.Software.ExcludedFamilies[:0]
	for _, family := range c.Software.ExcludedFamilies {
		family.Vendor = normalize.JoinKey(family.Vendor)
		family.DisplayContains = strings.ToLower(strings.TrimSpace(family.DisplayContains))
		if family.Vendor == "" {
			continue
		}
		families = append(families, family)
	}
	c.Software.ExcludedFamilies = families
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lowerUnique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func joinKeyUnique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		key := normalize.JoinKey(value)
		if key == "" {
			continue
		}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
