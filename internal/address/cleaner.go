// Package address normalizes free-text vendor addresses for geocoding and
// extracts ZIP codes.
package address

import (
	"regexp"
	"strings"
)

// Result holds a cleaned address and the record of what changed.
type Result struct {
	Original      string   `json:"original"`
	Cleaned       string   `json:"cleaned"`
	ExtractedZip  *string  `json:"extractedZip"`
	Modifications []string `json:"modifications"`
	WasModified   bool     `json:"wasModified"`
}

// stripRule removes one class of secondary address information.
type stripRule struct {
	pattern *regexp.Regexp
	name    string
}

// stripRules are applied in order; each match records a modification tag.
var stripRules = []stripRule{
	{regexp.MustCompile(`(?i),?\s*(?:Suite|Ste\.?|Unit|Bldg\.?|Building)\s+#?[A-Za-z0-9-]+`), "suite/unit info"},
	{regexp.MustCompile(`(?i),?\s*(?:Apt\.?|Apartment)\s+#?[A-Za-z0-9-]+`), "apartment info"},
	{regexp.MustCompile(`(?i),?\s*(?:Floor|Fl\.?|Space|Sp\.?|Room|Rm\.?)\s+#?[A-Za-z0-9-]+`), "floor/space info"},
	{regexp.MustCompile(`(?i)\s*(?:Upper|Lower) (?:Level|Floor)`), "level designator"},
	{regexp.MustCompile(`(?i)\s*(?:Unit|Suite) [A-Za-z0-9#-]+`), "unit designator"},
	{regexp.MustCompile(`\s*\([^)]*\)`), "parenthetical info"},
	{regexp.MustCompile(`(?i), UNITED STATES$`), "country suffix"},
	// RE2 has no lookahead, so the lot/block rule consumes through the
	// subdivision segment instead of asserting the city boundary.
	{regexp.MustCompile(`(?i)\bLot \d+[,\s]+Block \d+[,\s]+[^,]+`), "lot/block designation"},
}

var (
	zipRe         = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	doubleCommaRe = regexp.MustCompile(`,\s*,`)
	spaceCommaRe  = regexp.MustCompile(`\s+,`)
	multiCommaRe  = regexp.MustCompile(`,+`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
	stateZipRe    = regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}\b`)
	countryRe     = regexp.MustCompile(`(?i)\bUNITED STATES\b|\bUSA\b`)
)

// ExtractZip returns the 5-digit ZIP found in the address, discarding any
// ZIP+4 extension, or nil when no ZIP is present.
func ExtractZip(address string) *string {
	m := zipRe.FindStringSubmatch(address)
	if m == nil {
		return nil
	}
	zip := m[1]
	return &zip
}

// Clean strips secondary-unit designators, parenthetical notes, the trailing
// country suffix, and lot/block prefixes from an address, recording a tag for
// each rule that matched. The ZIP is extracted from the original string,
// independent of whether cleaning modified it. Clean never fails; an address
// with nothing to strip comes back with WasModified=false.
func Clean(addr string) Result {
	res := Result{
		Original:     addr,
		Cleaned:      addr,
		ExtractedZip: ExtractZip(addr),
	}

	for _, rule := range stripRules {
		previous := res.Cleaned
		res.Cleaned = rule.pattern.ReplaceAllString(res.Cleaned, "")
		if res.Cleaned != previous {
			res.Modifications = append(res.Modifications, "Removed "+rule.name)
		}
	}

	res.Cleaned = doubleCommaRe.ReplaceAllString(res.Cleaned, ",")
	res.Cleaned = spaceCommaRe.ReplaceAllString(res.Cleaned, ",")
	res.Cleaned = multiCommaRe.ReplaceAllString(res.Cleaned, ",")
	res.Cleaned = multiSpaceRe.ReplaceAllString(res.Cleaned, " ")
	res.Cleaned = strings.Trim(res.Cleaned, ", ")

	res.WasModified = res.Cleaned != res.Original
	return res
}

// Canonicalize appends a country suffix to a cleaned address that carries a
// "STATE 99999" tail but no country marker. Addresses without a state/ZIP
// pattern are returned unchanged.
func Canonicalize(cleaned string) string {
	if !stateZipRe.MatchString(cleaned) {
		return cleaned
	}
	if countryRe.MatchString(cleaned) {
		return cleaned
	}
	return cleaned + ", UNITED STATES"
}
