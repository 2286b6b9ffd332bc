// Package model defines the canonical vendor and region records that flow
// through the processing pipeline.
package model

// Coordinates is a latitude/longitude pair. Nil values mean "not geocoded".
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Location holds a vendor's address and geocoding state. Address carries the
// provider-formatted address after a successful geocode; OriginalAddress
// retains the pre-geocoding cleaned address.
type Location struct {
	Address         string      `json:"address"`
	OriginalAddress string      `json:"originalAddress,omitempty"`
	ZipCode         *string     `json:"zipCode"`
	Coordinates     Coordinates `json:"coordinates"`
}

// Social holds social media handles.
type Social struct {
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
}

// Contact holds vendor contact details. Fields default to empty, never
// omitted once normalized.
type Contact struct {
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Social Social `json:"social"`
}

// RegionInfo is attached during region enrichment; absent before that stage.
type RegionInfo struct {
	RegionID         *string `json:"regionId"`
	RegionName       string  `json:"regionName"`
	IsActiveRegion   bool    `json:"isActiveRegion"`
	IsPriorityRegion bool    `json:"isPriorityRegion"`
	LastRegionCheck  string  `json:"lastRegionCheck"`
}

// Vendor is the central entity of a processing run.
type Vendor struct {
	ID                  string         `json:"id"`
	BusinessLicense     string         `json:"business_license,omitempty"`
	Name                string         `json:"name"`
	LicenseType         string         `json:"license_type,omitempty"`
	Status              string         `json:"status,omitempty"`
	Location            Location       `json:"location"`
	Contact             Contact        `json:"contact"`
	RegionInfo          *RegionInfo    `json:"regionInfo,omitempty"`
	Hours               map[string]any `json:"hours"`
	Deals               []any          `json:"deals"`
	IsPartner           bool           `json:"isPartner"`
	Rating              *float64       `json:"rating,omitempty"`
	LastUpdated         string         `json:"lastUpdated,omitempty"`
	HasValidCoordinates bool           `json:"hasValidCoordinates"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (v *Vendor) HasCoordinates() bool {
	return v.Location.Coordinates.Latitude != nil && v.Location.Coordinates.Longitude != nil
}

// SetCoordinates assigns a coordinate pair and recomputes HasValidCoordinates.
func (v *Vendor) SetCoordinates(lat, lng float64) {
	v.Location.Coordinates = Coordinates{Latitude: &lat, Longitude: &lng}
	v.HasValidCoordinates = true
}

// ClearCoordinates resets the coordinate pair and the derived flag.
func (v *Vendor) ClearCoordinates() {
	v.Location.Coordinates = Coordinates{}
	v.HasValidCoordinates = false
}

// LedgerKey returns the key used for the revoked-vendor ledger: the business
// license when present, the vendor id otherwise.
func (v *Vendor) LedgerKey() string {
	if v.BusinessLicense != "" {
		return v.BusinessLicense
	}
	return v.ID
}
