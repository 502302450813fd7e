package config

const (
	defaultConfigPath          = "~/.config/cpelink/config.toml"
	defaultDataDir             = "~/.local/share/cpelink"
	defaultLogDir              = "~/.local/share/cpelink/logs"
	defaultStoreFile           = "linkage.db"
	defaultCatalogFile         = "input/cpe_catalog.csv"
	defaultInventoryFile       = "input/inventory.csv"
	defaultVendorModelFile     = "models/vendor_classifier.json"
	defaultSoftwareModelFile   = "models/software_classifier.json"
	defaultVendorLabelledFile  = "labelled/label_vendors.csv"
	defaultSoftwareLabelled    = "labelled/label_software.csv"
	defaultPublisherSeparators = "_.,()+!"
	defaultVendorSeparators    = "-_"
	defaultMinTokenLength      = 2
	defaultMetric              = "indel"
	defaultWorkers             = 1
	defaultSampleSize          = 10
	defaultVendorLengthFloor   = 2
	defaultVendorTokenFloor    = 100
	defaultSoftwareTokenFloor  = 70
	defaultReleaseRatioFloor   = 90
	defaultReleasePartialFloor = 100
	defaultTieBreakFeature     = "fz_uwratio"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultStopWords = []string{
	"inc", "incorporated", "corp", "corporation", "co", "company",
	"ltd", "limited", "llc", "gmbh", "ag", "sa", "srl", "bv", "plc", "pty",
	"the", "and", "of",
}

// DefaultVendorSchema returns the vendor stage column layout.
func DefaultVendorSchema() Schema {
	return Schema{
		KeyColumns: []string{"publisher0", "vendor_X"},
		FeatureColumns: []string{
			"fz_ptl_ratio",
			"fz_ptl_tok_sort_ratio",
			"fz_ratio",
			"fz_tok_set_ratio",
			"fz_uwratio",
			"ven_len",
			"pu0_len",
		},
		AttrColumns:     []string{"pub0_cln", "ven_cln"},
		DedupeColumns:   []string{"publisher0", "vendor_X"},
		LinkageKey:      []string{"publisher0", "vendor_X"},
		OutputColumns:   []string{"publisher0", "vendor_X"},
		TieBreakFeature: defaultTieBreakFeature,
	}
}

// DefaultSoftwareSchema returns the software stage column layout.
func DefaultSoftwareSchema() Schema {
	return Schema{
		KeyColumns: []string{"vendor_X", "software_X", "title_X", "DisplayName0", "release_X", "Version0"},
		FeatureColumns: []string{
			"fz_ratio",
			"fz_ptl_ratio",
			"fz_tok_set_ratio",
			"fz_ptl_tok_sort_ratio",
			"fz_uwratio",
			"fz_rel_ratio",
			"fz_rel_ptl_ratio",
			"titlX_len",
			"DsplyNm0_len",
		},
		AttrColumns:     []string{"t_cve_name"},
		DedupeColumns:   []string{"vendor_X", "DisplayName0", "Version0"},
		LinkageKey:      []string{"vendor_X", "DisplayName0", "Version0"},
		OutputColumns:   []string{"vendor_X", "DisplayName0", "Version0", "t_cve_name"},
		TieBreakFeature: defaultTieBreakFeature,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Normalization: Normalization{
			PublisherSeparators: defaultPublisherSeparators,
			VendorSeparators:    defaultVendorSeparators,
			StopWords:           append([]string(nil), defaultStopWords...),
			MinTokenLength:      defaultMinTokenLength,
		},
		Similarity: Similarity{
			Metric: defaultMetric,
		},
		Matching: Matching{
			Workers:    defaultWorkers,
			SampleSize: defaultSampleSize,
		},
		Vendor: Vendor{
			LengthFloor:       defaultVendorLengthFloor,
			TokenOverlapFloor: defaultVendorTokenFloor,
			Schema:            DefaultVendorSchema(),
		},
		Software: Software{
			TokenOverlapFloor:   defaultSoftwareTokenFloor,
			ReleaseRatioFloor:   defaultReleaseRatioFloor,
			ReleasePartialFloor: defaultReleasePartialFloor,
			ExcludedVendors:     []string{"microsoft"},
			ExcludedFamilies: []ExcludedFamily{
				{Vendor: "cisco", DisplayContains: "webex", UnversionedOnly: true},
			},
			Schema: DefaultSoftwareSchema(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
