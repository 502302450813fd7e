package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input, output, and state locations.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	StorePath    string `toml:"store_path"`
	CatalogCSV   string `toml:"catalog_csv"`
	InventoryCSV string `toml:"inventory_csv"`
}

// Normalization controls how raw names are cleaned before comparison.
type Normalization struct {
	// PublisherSeparators are replaced with spaces when tokenizing inventory publishers.
	PublisherSeparators string `toml:"publisher_separators"`
	// VendorSeparators are replaced with spaces when tokenizing catalog vendors.
	VendorSeparators string   `toml:"vendor_separators"`
	StopWords        []string `toml:"stop_words"`
	// StopWordsFile is an optional one-word-per-line (or single column CSV) list merged into StopWords.
	StopWordsFile  string `toml:"stop_words_file"`
	MinTokenLength int    `toml:"min_token_length"`
}

// Similarity selects the base string metric the fuzzy statistics are built on.
type Similarity struct {
	Metric string `toml:"metric"`
}

// Matching contains settings shared by both linkage stages.
type Matching struct {
	Workers    int `toml:"workers"`
	SampleSize int `toml:"sample_size"`
}

// Schema describes the ordered column layout of a stage's candidate table.
type Schema struct {
	KeyColumns      []string `toml:"key_columns"`
	FeatureColumns  []string `toml:"feature_columns"`
	AttrColumns     []string `toml:"attr_columns"`
	DedupeColumns   []string `toml:"dedupe_columns"`
	LinkageKey      []string `toml:"linkage_key"`
	OutputColumns   []string `toml:"output_columns"`
	TieBreakFeature string   `toml:"tie_break_feature"`
}

// Vendor contains configuration for catalog vendor to inventory publisher linkage.
type Vendor struct {
	ModelPath    string `toml:"model_path"`
	LabelledPath string `toml:"labelled_path"`
	// LengthFloor skips cleaned vendor names shorter than this many characters.
	LengthFloor       int     `toml:"length_floor"`
	TokenOverlapFloor float64 `toml:"token_overlap_floor"`
	Schema            Schema  `toml:"schema"`
}

// ExcludedFamily drops inventory software whose vendor and display name match.
type ExcludedFamily struct {
	Vendor          string `toml:"vendor"`
	DisplayContains string `toml:"display_contains"`
	UnversionedOnly bool   `toml:"unversioned_only"`
}

// Software contains configuration for catalog software to inventory software linkage.
type Software struct {
	ModelPath           string           `toml:"model_path"`
	LabelledPath        string           `toml:"labelled_path"`
	TokenOverlapFloor   float64          `toml:"token_overlap_floor"`
	ReleaseRatioFloor   float64          `toml:"release_ratio_floor"`
	ReleasePartialFloor float64          `toml:"release_partial_floor"`
	ExcludedVendors     []string         `toml:"excluded_vendors"`
	ExcludedFamilies    []ExcludedFamily `toml:"excluded_families"`
	Schema              Schema           `toml:"schema"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cpelink.
//
// Configuration sections:
//   - Paths: data directory, store, and input record sets
//   - Normalization: separators, stop words, minimum token length
//   - Similarity: base metric for the fuzzy statistics
//   - Matching: worker count and sample logging
//   - Vendor: vendor stage thresholds, model, labelled data, schema
//   - Software: software stage thresholds, exclusions, model, labelled data, schema
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Normalization Normalization `toml:"normalization"`
	Similarity    Similarity    `toml:"similarity"`
	Matching      Matching      `toml:"matching"`
	Vendor        Vendor        `toml:"vendor"`
	Software      Software      `toml:"software"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cpelink.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories plus the store's parent.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, filepath.Dir(c.Paths.StorePath)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the file used to serialize pipeline runs against one data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "cpelink.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
