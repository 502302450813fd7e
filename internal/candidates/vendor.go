package candidates

import (
	"unicode/utf8"

	"cpelink/internal/linkage"
	"cpelink/internal/normalize"
	"cpelink/internal/records"
	"cpelink/internal/similarity"
)

// Vendor stage reject rules, in evaluation order.
const (
	RuleMinLength    Rule = "min_length"
	RuleLength       Rule = "length"
	RuleTokenOverlap Rule = "token_overlap"
)

// Vendor stage column names.
const (
	ColPublisher      = "publisher0"
	ColVendor         = "vendor_X"
	ColPublisherClean = "pub0_cln"
	ColVendorClean    = "ven_cln"
)

// Entity is a distinct name on one side of the vendor stage. Key is the
// join key of the raw name; Clean is its normalized form.
type Entity struct {
	Key   string
	Clean normalize.Name
}

// CatalogVendors returns the distinct catalog vendors in first-seen order.
func CatalogVendors(catalog []records.CatalogEntry, n *normalize.Normalizer) []Entity {
	raw := make([]string, len(catalog))
	for i, entry := range catalog {
		raw[i] = entry.Vendor
	}
	return distinctEntities(raw, n)
}

// InventoryPublishers returns the distinct inventory publishers in first-seen order.
// Items without a publisher are dropped.
func InventoryPublishers(items []records.InventoryItem, n *normalize.Normalizer) []Entity {
	raw := make([]string, len(items))
	for i, item := range items {
		raw[i] = item.Publisher
	}
	return distinctEntities(raw, n)
}

func distinctEntities(raw []string, n *normalize.Normalizer) []Entity {
	seen := make(map[string]struct{}, len(raw))
	out := make([]Entity, 0, len(raw))
	for _, value := range raw {
		key := normalize.JoinKey(value)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Entity{Key: key, Clean: n.Normalize(key)})
	}
	return out
}

// VendorConfig holds the vendor stage thresholds.
type VendorConfig struct {
	LengthFloor       int
	TokenOverlapFloor float64
}

// VendorRules pairs catalog vendors (left) with inventory publishers (right)
// in a single partition.
type VendorRules struct {
	cfg      VendorConfig
	features *similarity.FeatureSet
	columns  projector
}

// NewVendorRules validates that schema only names columns the vendor stage produces.
func NewVendorRules(schema linkage.Schema, features *similarity.FeatureSet, cfg VendorConfig) (*VendorRules, error) {
	columns, err := newProjector(schema,
		[]string{ColPublisher, ColVendor},
		[]string{ColPublisherClean, ColVendorClean},
	)
	if err != nil {
		return nil, err
	}
	if err := schema.CheckFeatures(features.Names()); err != nil {
		return nil, err
	}
	return &VendorRules{cfg: cfg, features: features, columns: columns}, nil
}

// Right wraps the publishers as the single right-hand partition.
func (r *VendorRules) Right(publishers []Entity) map[string][]Entity {
	if len(publishers) == 0 {
		return nil
	}
	return map[string][]Entity{"": publishers}
}

func (r *VendorRules) Partition(Entity) string { return "" }

func (r *VendorRules) Admit(vendor Entity) Rule {
	if utf8.RuneCountInString(vendor.Clean.Normalized) < r.cfg.LengthFloor {
		return RuleMinLength
	}
	return ""
}

func (r *VendorRules) Screen(vendor, publisher Entity) Rule {
	if utf8.RuneCountInString(vendor.Clean.Normalized) > utf8.RuneCountInString(publisher.Clean.Normalized) {
		return RuleLength
	}
	if r.features.Scorer().PartialTokenSetRatio(vendor.Clean.Normalized, publisher.Clean.Normalized) < r.cfg.TokenOverlapFloor {
		return RuleTokenOverlap
	}
	return ""
}

func (r *VendorRules) Build(vendor, publisher Entity) linkage.Row {
	values := map[string]string{
		ColPublisher:      publisher.Key,
		ColVendor:         vendor.Key,
		ColPublisherClean: publisher.Clean.Normalized,
		ColVendorClean:    vendor.Clean.Normalized,
	}
	return linkage.Row{
		Key: r.columns.key(values),
		Features: r.features.Compute(similarity.Inputs{
			Left:     vendor.Clean.Normalized,
			Right:    publisher.Clean.Normalized,
			LeftRaw:  vendor.Key,
			RightRaw: publisher.Key,
		}),
		Attrs: r.columns.attrValues(values),
	}
}
