package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Metrics lists the accepted values of similarity.metric.
var Metrics = []string{"indel", "levenshtein", "jaro_winkler"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNormalization(); err != nil {
		return err
	}
	if !slices.Contains(Metrics, c.Similarity.Metric) {
		return fmt.Errorf("similarity.metric must be one of %s", strings.Join(Metrics, ", "))
	}
	if c.Matching.Workers <= 0 {
		return errors.New("matching.workers must be positive")
	}
	if err := c.validateVendor(); err != nil {
		return err
	}
	if err := c.validateSoftware(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StorePath) == "" {
		return errors.New("paths.store_path must be set")
	}
	return nil
}

func (c *Config) validateNormalization() error {
	if c.Normalization.MinTokenLength < 1 {
		return errors.New("normalization.min_token_length must be at least 1")
	}
	return nil
}

func (c *Config) validateVendor() error {
	if c.Vendor.LengthFloor < 0 {
		return errors.New("vendor.length_floor must not be negative")
	}
	if err := ensurePercentMap(map[string]float64{
		"vendor.token_overlap_floor": c.Vendor.TokenOverlapFloor,
	}); err != nil {
		return err
	}
	return c.Vendor.Schema.validate("vendor.schema")
}

func (c *Config) validateSoftware() error {
	if err := ensurePercentMap(map[string]float64{
		"software.token_overlap_floor":   c.Software.TokenOverlapFloor,
		"software.release_ratio_floor":   c.Software.ReleaseRatioFloor,
		"software.release_partial_floor": c.Software.ReleasePartialFloor,
	}); err != nil {
		return err
	}
	for i, family := range c.Software.ExcludedFamilies {
		if family.DisplayContains == "" {
			return fmt.Errorf("software.excluded_families[%d] (vendor %q): display_contains must be set", i, family.Vendor)
		}
	}
	return c.Software.Schema.validate("software.schema")
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func (s Schema) validate(prefix string) error {
	if len(s.KeyColumns) == 0 {
		return fmt.Errorf("%s.key_columns must not be empty", prefix)
	}
	if len(s.FeatureColumns) == 0 {
		return fmt.Errorf("%s.feature_columns must not be empty", prefix)
	}
	all := make([]string, 0, len(s.KeyColumns)+len(s.FeatureColumns)+len(s.AttrColumns))
	all = append(all, s.KeyColumns...)
	all = append(all, s.FeatureColumns...)
	all = append(all, s.AttrColumns...)
	if dup, ok := firstDuplicate(all); ok {
		return fmt.Errorf("%s: column %q appears more than once", prefix, dup)
	}
	if !slices.Contains(s.FeatureColumns, s.TieBreakFeature) {
		return fmt.Errorf("%s.tie_break_feature %q is not a feature column", prefix, s.TieBreakFeature)
	}
	for _, column := range s.DedupeColumns {
		if !slices.Contains(s.KeyColumns, column) {
			return fmt.Errorf("%s.dedupe_columns: %q is not a key column", prefix, column)
		}
	}
	for _, column := range s.LinkageKey {
		if !slices.Contains(s.KeyColumns, column) {
			return fmt.Errorf("%s.linkage_key: %q is not a key column", prefix, column)
		}
	}
	for _, column := range s.OutputColumns {
		if !slices.Contains(s.KeyColumns, column) && !slices.Contains(s.AttrColumns, column) {
			return fmt.Errorf("%s.output_columns: %q is neither a key nor an attribute column", prefix, column)
		}
	}
	return nil
}

func ensurePercentMap(values map[string]float64) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if value := values[key]; value < 0 || value > 100 {
			return fmt.Errorf("%s must be between 0 and 100", key)
		}
	}
	return nil
}

func firstDuplicate(values []string) (string, bool) {
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			return value, true
		}
		seen[value] = struct{}{}
	}
	return "", false
}
