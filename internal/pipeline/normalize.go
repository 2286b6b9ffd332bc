// Package pipeline orchestrates the vendor normalization, geocoding, and
// categorization workflow.
package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/akleaf/vendor-pipeline/internal/address"
	"github.com/akleaf/vendor-pipeline/internal/model"
)

// Normalize coerces a heterogeneous raw record into the canonical vendor
// shape. It is total: unresolvable or missing fields get schema-conformant
// defaults, never errors. Legacy records with flat latitude/longitude on the
// location are migrated into the nested coordinates object.
func Normalize(raw map[string]any) model.Vendor {
	v := model.Vendor{
		ID:              coerceID(raw["id"]),
		BusinessLicense: asString(raw["business_license"]),
		Name:            asString(raw["name"]),
		LicenseType:     asString(raw["license_type"]),
		Status:          asString(raw["status"]),
		Hours:           map[string]any{},
		Deals:           []any{},
	}

	loc := asMap(raw["location"])
	v.Location.Address = asString(loc["address"])
	v.Location.OriginalAddress = asString(loc["originalAddress"])

	coords := asMap(loc["coordinates"])
	lat, latOK := asFloat(coords["latitude"])
	lng, lngOK := asFloat(coords["longitude"])

	// Legacy flat shape: coordinates directly on the location object.
	if _, hasFlat := loc["latitude"]; hasFlat {
		if flatLat, ok := asFloat(loc["latitude"]); ok {
			lat, latOK = flatLat, true
		}
		if flatLng, ok := asFloat(loc["longitude"]); ok {
			lng, lngOK = flatLng, true
		}
	}

	// Both coordinates must be present and nonzero to count as geocoded;
	// zero values are treated as unset, the way the legacy data used them.
	if latOK && lngOK && lat != 0 && lng != 0 {
		v.SetCoordinates(lat, lng)
	} else {
		v.ClearCoordinates()
	}

	if zipRaw, ok := loc["zipCode"]; ok {
		if zip := asString(zipRaw); zip != "" {
			v.Location.ZipCode = &zip
		}
	} else if v.Location.Address != "" {
		v.Location.ZipCode = address.ExtractZip(v.Location.Address)
	}

	contact := asMap(raw["contact"])
	v.Contact.Phone = asString(contact["phone"])
	v.Contact.Email = asString(contact["email"])
	social := asMap(contact["social"])
	v.Contact.Social.Instagram = asString(social["instagram"])
	v.Contact.Social.Facebook = asString(social["facebook"])

	if hours := asMap(raw["hours"]); hours != nil {
		v.Hours = hours
	}
	if deals, ok := raw["deals"].([]any); ok {
		v.Deals = deals
	}
	if partner, ok := raw["isPartner"].(bool); ok {
		v.IsPartner = partner
	}
	if rating, ok := asFloat(raw["rating"]); ok {
		v.Rating = &rating
	}

	v.LastUpdated = coerceTimestamp(raw["lastUpdated"])
	return v
}

// ValidateVendor reports the schema problems that survive normalization:
// records without an id, name, or address cannot proceed through the
// pipeline.
func ValidateVendor(v model.Vendor) []string {
	var issues []string
	if v.ID == "" {
		issues = append(issues, "missing id")
	}
	if v.Name == "" {
		issues = append(issues, "missing name")
	}
	if v.Location.Address == "" {
		issues = append(issues, "missing address")
	}
	return issues
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// coerceID renders numeric-as-string identifiers without a decimal tail.
func coerceID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", id)
	}
}

// coerceTimestamp turns non-string lastUpdated values (epoch millis) into an
// ISO timestamp string.
func coerceTimestamp(v any) string {
	switch ts := v.(type) {
	case string:
		return ts
	case float64:
		return time.UnixMilli(int64(ts)).UTC().Format(time.RFC3339)
	default:
		return ""
	}
}
