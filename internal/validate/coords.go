// Package validate checks geocoded coordinates for range correctness and
// membership in the target bounding region.
package validate

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"

	"github.com/akleaf/vendor-pipeline/internal/model"
)

// nearZeroEpsilon flags coordinate pairs close enough to (0,0) to indicate a
// geocoding failure masquerading as success.
const nearZeroEpsilon = 0.001

// Bounds describes the target geographic region. When WrapsAntimeridian is
// set, the longitude window crosses ±180° and membership means
// lng >= MinLng OR lng <= MaxLng.
type Bounds struct {
	MinLat            float64 `mapstructure:"min_lat"`
	MaxLat            float64 `mapstructure:"max_lat"`
	MinLng            float64 `mapstructure:"min_lng"`
	MaxLng            float64 `mapstructure:"max_lng"`
	WrapsAntimeridian bool    `mapstructure:"wraps_antimeridian"`
}

// AlaskaBounds is the default deployment region. The configured window sits
// entirely west of the antimeridian, so the plain AND box applies.
var AlaskaBounds = Bounds{
	MinLat: 51.0,
	MaxLat: 71.5,
	MinLng: -179.0,
	MaxLng: -130.0,
}

// Result is the outcome of validating one vendor's coordinates.
type Result struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
	Lat    float64  `json:"lat,omitempty"`
	Lng    float64  `json:"lng,omitempty"`
}

// Validator validates coordinates against a bounding region.
type Validator struct {
	boxes []*geom.Bounds
	b     Bounds
}

// New builds a Validator for the given bounds. A wrapping region becomes the
// union of two boxes split at ±180°.
func New(b Bounds) *Validator {
	v := &Validator{b: b}
	if b.WrapsAntimeridian {
		v.boxes = []*geom.Bounds{
			geom.NewBounds(geom.XY).Set(b.MinLng, b.MinLat, 180.0, b.MaxLat),
			geom.NewBounds(geom.XY).Set(-180.0, b.MinLat, b.MaxLng, b.MaxLat),
		}
	} else {
		v.boxes = []*geom.Bounds{
			geom.NewBounds(geom.XY).Set(b.MinLng, b.MinLat, b.MaxLng, b.MaxLat),
		}
	}
	return v
}

// inRegion reports whether the point falls in any of the region boxes.
func (v *Validator) inRegion(lat, lng float64) bool {
	pt := geom.Coord{lng, lat}
	for _, box := range v.boxes {
		if box.OverlapsPoint(geom.XY, pt) {
			return true
		}
	}
	return false
}

// Validate checks a vendor's coordinates. All issues are collected rather
// than short-circuited, except the initial presence check.
func (v *Validator) Validate(vendor model.Vendor) Result {
	coords := vendor.Location.Coordinates
	if coords.Latitude == nil || coords.Longitude == nil {
		return Result{Valid: false, Issues: []string{"missing or invalid coordinates"}}
	}

	lat := *coords.Latitude
	lng := *coords.Longitude
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return Result{Valid: false, Issues: []string{"missing or invalid coordinates"}}
	}

	var issues []string
	if lat < -90 || lat > 90 {
		issues = append(issues, fmt.Sprintf("latitude out of range: %v", lat))
	}
	if lng < -180 || lng > 180 {
		issues = append(issues, fmt.Sprintf("longitude out of range: %v", lng))
	}
	if !v.inRegion(lat, lng) {
		issues = append(issues, fmt.Sprintf("coordinates outside region bounds: %v, %v", lat, lng))
	}
	if math.Abs(lat) < nearZeroEpsilon && math.Abs(lng) < nearZeroEpsilon {
		issues = append(issues, "near-zero coordinates (likely geocoding failure)")
	}

	return Result{
		Valid:  len(issues) == 0,
		Issues: issues,
		Lat:    lat,
		Lng:    lng,
	}
}
