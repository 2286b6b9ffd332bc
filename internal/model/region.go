package model

// Region is a configured geographic region keyed by its ZIP codes. Regions
// are externally persisted and treated as a read-only lookup table fetched
// once per run; list order is significant for classification.
type Region struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ZipCodes    []string `json:"zipCodes"`
	IsActive    bool     `json:"isActive"`
	IsPriority  bool     `json:"isPriority"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
}

// ContainsZip reports whether the region claims the given 5-digit ZIP.
func (r *Region) ContainsZip(zip string) bool {
	for _, z := range r.ZipCodes {
		if z == zip {
			return true
		}
	}
	return false
}

// DedupeZips removes duplicate ZIP codes in place, preserving order.
func (r *Region) DedupeZips() {
	seen := make(map[string]struct{}, len(r.ZipCodes))
	out := r.ZipCodes[:0]
	for _, z := range r.ZipCodes {
		if _, ok := seen[z]; ok {
			continue
		}
		seen[z] = struct{}{}
		out = append(out, z)
	}
	r.ZipCodes = out
}
