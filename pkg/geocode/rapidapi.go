package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
)

const defaultRapidAPIHost = "forward-reverse-geocoding.p.rapidapi.com"

var countrySuffixRe = regexp.MustCompile(`(?i), UNITED STATES$`)

// rapidAPIResult is one entry of the free-text search response. lat/lon are
// string-typed and need numeric coercion.
type rapidAPIResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// geocodeRapidAPI geocodes an address via the fallback free-text search API.
// An empty or malformed result array is a soft no-result, not a protocol
// error.
func (g *geocoder) geocodeRapidAPI(ctx context.Context, address string) (*Result, error) {
	if g.rapidKey == "" || g.rapidHost == "" {
		return nil, eris.New("geocode: rapidapi key or host not configured")
	}

	if err := g.rapidLim.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rapidapi rate limit")
	}

	// The search endpoint resolves better without the country suffix.
	cleaned := countrySuffixRe.ReplaceAllString(address, "")

	params := url.Values{
		"q":              {cleaned},
		"format":         {"json"},
		"addressdetails": {"1"},
		"limit":          {"1"},
	}

	reqURL := "https://" + g.rapidHost + "/v1/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: rapidapi build request")
	}
	req.Header.Set("X-RapidAPI-Key", g.rapidKey)
	req.Header.Set("X-RapidAPI-Host", g.rapidHost)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: rapidapi request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: rapidapi returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: rapidapi read body")
	}

	var results []rapidAPIResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "geocode: rapidapi parse response")
	}

	if len(results) == 0 {
		return &Result{Success: false, Err: "no results found"}, nil
	}

	first := results[0]
	if first.Lat == "" || first.Lon == "" {
		return &Result{Success: false, Err: "invalid response format"}, nil
	}

	lat, latErr := strconv.ParseFloat(first.Lat, 64)
	lon, lonErr := strconv.ParseFloat(first.Lon, 64)
	if latErr != nil || lonErr != nil {
		return &Result{Success: false, Err: "invalid response format"}, nil
	}

	formatted := first.DisplayName
	if formatted == "" {
		formatted = cleaned
	}
	return &Result{
		Success:          true,
		Latitude:         lat,
		Longitude:        lon,
		FormattedAddress: formatted,
	}, nil
}
