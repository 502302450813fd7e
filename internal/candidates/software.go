package candidates

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"cpelink/internal/linkage"
	"cpelink/internal/normalize"
	"cpelink/internal/records"
	"cpelink/internal/similarity"
)

// Software stage reject rules, in evaluation order.
const (
	RuleExcludedVendor Rule = "excluded_vendor"
	RuleExcludedFamily Rule = "excluded_family"
	RuleRelease        Rule = "release"
)

// Software stage column names.
const (
	ColSoftware    = "software_X"
	ColTitle       = "title_X"
	ColDisplayName = "DisplayName0"
	ColRelease     = "release_X"
	ColVersion     = "Version0"
	ColCPEName     = "t_cve_name"
	ColCPE23Name   = "cpe23_name"
)

// Unversioned is the placeholder for a missing release or version.
const Unversioned = "-"

// InventoryGroup is one distinct (resolved vendor, display name, version)
// combination observed in the inventory.
type InventoryGroup struct {
	Vendor      string
	DisplayName string
	Version     string
}

// Product is one catalog entry prepared for software linkage.
type Product struct {
	Vendor  string
	Product string
	Release string
	Title   string
	Name23  string
	Name    string
}

// CatalogProducts groups catalog entries by vendor join key, preserving input order.
func CatalogProducts(catalog []records.CatalogEntry) map[string][]Product {
	products := make([]Product, 0, len(catalog))
	for _, entry := range catalog {
		vendor := normalize.JoinKey(entry.Vendor)
		if vendor == "" {
			continue
		}
		release := strings.TrimSpace(entry.Release)
		if release == "" {
			release = Unversioned
		}
		products = append(products, Product{
			Vendor:  vendor,
			Product: entry.Product,
			Release: release,
			Title:   entry.Title,
			Name23:  entry.Name23,
			Name:    entry.Name,
		})
	}
	return GroupBy(products, func(p Product) string { return p.Vendor })
}

// SortGroups orders inventory groups and removes duplicates.
func SortGroups(groups []InventoryGroup) []InventoryGroup {
	out := slices.Clone(groups)
	slices.SortFunc(out, func(a, b InventoryGroup) int {
		return cmp.Or(
			cmp.Compare(a.Vendor, b.Vendor),
			cmp.Compare(a.DisplayName, b.DisplayName),
			cmp.Compare(a.Version, b.Version),
		)
	})
	return slices.Compact(out)
}

// ExcludedFamily drops a vendor's products whose display name contains a marker.
type ExcludedFamily struct {
	Vendor          string
	DisplayContains string
	UnversionedOnly bool
}

// SoftwareConfig holds the software stage thresholds and exclusions.
type SoftwareConfig struct {
	TokenOverlapFloor   float64
	ReleaseRatioFloor   float64
	ReleasePartialFloor float64
	ExcludedVendors     []string
	ExcludedFamilies    []ExcludedFamily
}

// SoftwareRules pairs inventory groups (left) with the catalog products of
// their resolved vendor (right).
type SoftwareRules struct {
	cfg      SoftwareConfig
	features *similarity.FeatureSet
	columns  projector
}

// NewSoftwareRules validates that schema only names columns the software stage produces.
func NewSoftwareRules(schema linkage.Schema, features *similarity.FeatureSet, cfg SoftwareConfig) (*SoftwareRules, error) {
	columns, err := newProjector(schema,
		[]string{ColVendor, ColSoftware, ColTitle, ColDisplayName, ColRelease, ColVersion},
		[]string{ColCPEName, ColCPE23Name},
	)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckFeatures(features.Names()); err != nil {
		return nil, err
	}
	return &SoftwareRules{cfg: cfg, features: features, columns: columns}, nil
}

func (r *SoftwareRules) Partition(group InventoryGroup) string { return group.Vendor }

func (r *SoftwareRules) Admit(group InventoryGroup) Rule {
	if slices.Contains(r.cfg.ExcludedVendors, group.Vendor) {
		return RuleExcludedVendor
	}
	display := strings.ToLower(group.DisplayName)
	for _, family := range r.cfg.ExcludedFamilies {
		if family.Vendor != group.Vendor || family.DisplayContains == "" {
			continue
		}
		if family.UnversionedOnly && group.Version != Unversioned {
			continue
		}
		if strings.Contains(display, family.DisplayContains) {
			return RuleExcludedFamily
		}
	}
	return ""
}

func (r *SoftwareRules) Screen(group InventoryGroup, product Product) Rule {
	scorer := r.features.Scorer()
	release := effectiveRelease(product)
	if release != Unversioned && group.Version != Unversioned {
		if scorer.Ratio(release, group.Version) < r.cfg.ReleaseRatioFloor ||
			scorer.PartialRatio(release, group.Version) < r.cfg.ReleasePartialFloor {
			return RuleRelease
		}
	}
	title, display := withoutVendor(product.Title, product.Vendor), withoutVendor(group.DisplayName, product.Vendor)
	if scorer.PartialTokenSetRatio(title, display) < r.cfg.TokenOverlapFloor {
		return RuleTokenOverlap
	}
	return ""
}

func (r *SoftwareRules) Build(group InventoryGroup, product Product) linkage.Row {
	values := map[string]string{
		ColVendor:      product.Vendor,
		ColSoftware:    product.Product,
		ColTitle:       product.Title,
		ColDisplayName: group.DisplayName,
		ColRelease:     product.Release,
		ColVersion:     group.Version,
		ColCPEName:     product.Name,
		ColCPE23Name:   product.Name23,
	}
	return linkage.Row{
		Key:       r.columns.key(values),
		Partition: group.Vendor,
		Features: r.features.Compute(similarity.Inputs{
			Left:     withoutVendor(product.Title, product.Vendor),
			Right:    withoutVendor(group.DisplayName, product.Vendor),
			LeftAux:  effectiveRelease(product),
			RightAux: group.Version,
			LeftRaw:  product.Title,
			RightRaw: group.DisplayName,
		}),
		Attrs: r.columns.attrValues(values),
	}
}

// withoutVendor lower-cases s and blanks out every occurrence of vendor.
func withoutVendor(s, vendor string) string {
	s = strings.ToLower(s)
	if vendor == "" {
		return s
	}
	return strings.ReplaceAll(s, vendor, " ")
}

func effectiveRelease(p Product) string {
	if p.Vendor != "oracle" && p.Vendor != "sun" {
		return p.Release
	}
	switch strings.ToLower(p.Product) {
	case "jre", "jdk":
		return JavaRelease(p.Name23)
	default:
		return p.Release
	}
}

var (
	javaUpdatePattern  = regexp.MustCompile(`(?i)cpe:2\.3:a:(?:oracle|sun):(?P<sft>jdk|jre):1\.(?P<rel>[\d.]*):update_*(?P<upd>\d*)`)
	javaReleasePattern = regexp.MustCompile(`(?i)cpe:2\.3:a:(?:oracle|sun):(?P<sft>jdk|jre):1\.(?P<rel>[\d._]*):`)
)

// JavaRelease derives the version string Java installers report from an
// Oracle or Sun JRE/JDK CPE 2.3 name. Names that do not match yield "-".
func JavaRelease(name23 string) string {
	var sft, rel, release string
	if strings.Contains(name23, "update") {
		m := javaUpdatePattern.FindStringSubmatch(name23)
		if m == nil {
			return Unversioned
		}
		sft = m[javaUpdatePattern.SubexpIndex("sft")]
		rel = m[javaUpdatePattern.SubexpIndex("rel")]
		release = rel + "." + m[javaUpdatePattern.SubexpIndex("upd")] + "0"
	} else {
		m := javaReleasePattern.FindStringSubmatch(name23)
		if m == nil {
			return Unversioned
		}
		sft = m[javaReleasePattern.SubexpIndex("sft")]
		rel = m[javaReleasePattern.SubexpIndex("rel")]
		release = rel
	}

	switch {
	case strings.Contains(rel, "_"):
		return "1." + rel
	case strings.EqualFold(sft, "jre"):
		return release
	case strings.HasPrefix(rel, "8."):
		return release
	default:
		return "1." + release
	}
}
