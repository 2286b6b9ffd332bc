// Package region classifies vendors into configured geographic regions by
// ZIP code.
package region

import (
	"github.com/akleaf/vendor-pipeline/internal/address"
	"github.com/akleaf/vendor-pipeline/internal/model"
)

// Classifier resolves vendors to regions over an ordered region list. The
// list order is preserved from the source lookup: when a ZIP is claimed by
// more than one region, the first region wins.
type Classifier struct {
	regions []model.Region
}

// NewClassifier builds a Classifier over the given regions.
func NewClassifier(regions []model.Region) *Classifier {
	return &Classifier{regions: regions}
}

// Regions returns the classifier's region list in lookup order.
func (c *Classifier) Regions() []model.Region {
	return c.regions
}

// zipFor resolves a vendor's ZIP: the dedicated zipCode field when present,
// otherwise extraction from the address. Empty string means unresolvable.
func zipFor(v model.Vendor) string {
	if v.Location.ZipCode != nil && *v.Location.ZipCode != "" {
		return *v.Location.ZipCode
	}
	if v.Location.Address == "" {
		return ""
	}
	if zip := address.ExtractZip(v.Location.Address); zip != nil {
		return *zip
	}
	return ""
}

// RegionFor returns the first region whose ZIP set contains the vendor's ZIP,
// or nil when no ZIP is resolvable or no region claims it.
func (c *Classifier) RegionFor(v model.Vendor) *model.Region {
	zip := zipFor(v)
	if zip == "" {
		return nil
	}
	for i := range c.regions {
		if c.regions[i].ContainsZip(zip) {
			return &c.regions[i]
		}
	}
	return nil
}

// IsPriority reports whether the vendor's ZIP falls in any priority region.
func (c *Classifier) IsPriority(v model.Vendor) bool {
	r := c.RegionFor(v)
	return r != nil && r.IsPriority
}

// IsActive reports whether the vendor's ZIP falls in any active region.
func (c *Classifier) IsActive(v model.Vendor) bool {
	r := c.RegionFor(v)
	return r != nil && r.IsActive
}
