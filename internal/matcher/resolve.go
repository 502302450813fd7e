package matcher

import (
	"strings"

	"cpelink/internal/candidates"
	"cpelink/internal/linkage"
	"cpelink/internal/normalize"
	"cpelink/internal/records"
)

// ResolveVendors joins the vendor linkage table onto the inventory by
// publisher join key. Each inventory item yields one group per catalog vendor
// its publisher links to; items whose publisher has no link are dropped. A
// missing version becomes candidates.Unversioned.
func ResolveVendors(links *linkage.Table, inventory []records.InventoryItem) ([]candidates.InventoryGroup, error) {
	schema := links.Schema()
	refs, err := schema.Resolve(candidates.ColPublisher, candidates.ColVendor)
	if err != nil {
		return nil, err
	}
	vendorsOf := make(map[string][]string, links.Len())
	for i := 0; i < links.Len(); i++ {
		if links.Label(i) != linkage.Positive {
			continue
		}
		publisher, vendor := links.Value(i, refs[0]), links.Value(i, refs[1])
		vendorsOf[publisher] = append(vendorsOf[publisher], vendor)
	}

	var groups []candidates.InventoryGroup
	for _, item := range inventory {
		display := strings.TrimSpace(item.DisplayName)
		if display == "" {
			continue
		}
		version := strings.TrimSpace(item.Version)
		if version == "" {
			version = candidates.Unversioned
		}
		for _, vendor := range vendorsOf[normalize.JoinKey(item.Publisher)] {
			groups = append(groups, candidates.InventoryGroup{Vendor: vendor, DisplayName: display, Version: version})
		}
	}
	return candidates.SortGroups(groups), nil
}
