package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFallbackProvider(t *testing.T) {
	assert.True(t, IsFallbackProvider(ProviderRapidAPI))
	assert.False(t, IsFallbackProvider(ProviderGoogle))
	assert.False(t, IsFallbackProvider(""))
}

func TestWithProvider_EmptyKeepsDefault(t *testing.T) {
	c := NewClient(WithProvider(""))
	assert.Equal(t, ProviderGoogle, c.Provider())

	c = NewClient(WithProvider(ProviderGoogle), WithProvider(ProviderRapidAPI))
	assert.Equal(t, ProviderRapidAPI, c.Provider())
}

func newGoogleTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithAPIKey("test-key"),
		WithHTTPClient(newRewriteClient(srv.URL, googleGeocodeURL)),
	)
}

func TestGeocodeGoogle_Success(t *testing.T) {
	c := newGoogleTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123 Main St, Juneau, AK 99801", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"geometry": {"location": {"lat": 58.3019, "lng": -134.4197}},
				"formatted_address": "123 Main St, Juneau, AK 99801, USA"
			}]
		}`))
	})

	res, err := c.Geocode(context.Background(), "123 Main St, Juneau, AK 99801")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.InDelta(t, 58.3019, res.Latitude, 0.0001)
	assert.InDelta(t, -134.4197, res.Longitude, 0.0001)
	assert.Equal(t, "123 Main St, Juneau, AK 99801, USA", res.FormattedAddress)
}

func TestGeocodeGoogle_ZeroResults(t *testing.T) {
	c := newGoogleTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	res, err := c.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "no results found", res.Err)
}

func TestGeocodeGoogle_ServerErrorIsSoftFailure(t *testing.T) {
	c := newGoogleTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	res, err := c.Geocode(context.Background(), "123 Main St")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "status 500")
}

func TestGeocodeGoogle_FormattedAddressFallsBackToInput(t *testing.T) {
	c := newGoogleTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 61.2, "lng": -149.9}}}]
		}`))
	})

	res, err := c.Geocode(context.Background(), "541 W Tudor Rd, Anchorage, AK 99503")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "541 W Tudor Rd, Anchorage, AK 99503", res.FormattedAddress)
}

func newRapidTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithProvider(ProviderRapidAPI),
		WithRapidAPI("rapid-key", ""),
		WithHTTPClient(newRewriteClient(srv.URL, "https://"+defaultRapidAPIHost)),
	)
}

func TestGeocodeRapidAPI_Success(t *testing.T) {
	c := newRapidTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "rapid-key", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, defaultRapidAPIHost, r.Header.Get("X-RapidAPI-Host"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		// lat/lon come back as strings and need coercion.
		w.Write([]byte(`[{"lat": "61.5812", "lon": "-149.4411", "display_name": "Wasilla, Matanuska-Susitna, Alaska"}]`))
	})

	res, err := c.Geocode(context.Background(), "4901 E Blue Lupine Dr, Wasilla, AK 99654")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.InDelta(t, 61.5812, res.Latitude, 0.0001)
	assert.InDelta(t, -149.4411, res.Longitude, 0.0001)
	assert.Equal(t, "Wasilla, Matanuska-Susitna, Alaska", res.FormattedAddress)
}

func TestGeocodeRapidAPI_StripsCountrySuffix(t *testing.T) {
	c := newRapidTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123 Main St, Juneau, AK 99801", r.URL.Query().Get("q"))
		w.Write([]byte(`[{"lat": "58.3", "lon": "-134.4"}]`))
	})

	res, err := c.Geocode(context.Background(), "123 Main St, Juneau, AK 99801, UNITED STATES")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestGeocodeRapidAPI_EmptyResults(t *testing.T) {
	c := newRapidTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	res, err := c.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "no results found", res.Err)
}

func TestGeocodeRapidAPI_MalformedCoordinates(t *testing.T) {
	c := newRapidTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat": "not-a-number", "lon": "-134.4"}]`))
	})

	res, err := c.Geocode(context.Background(), "123 Main St")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid response format", res.Err)
}

func TestGeocodeRapidAPI_MissingCoordinates(t *testing.T) {
	c := newRapidTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"display_name": "somewhere"}]`))
	})

	res, err := c.Geocode(context.Background(), "123 Main St")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "invalid response format", res.Err)
}

func TestGeocodeRapidAPI_NotConfigured(t *testing.T) {
	c := NewClient(WithProvider(ProviderRapidAPI))

	res, err := c.Geocode(context.Background(), "123 Main St")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "not configured")
}

func TestGeocode_ContextCanceled(t *testing.T) {
	c := newGoogleTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "OK", "results": []}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Geocode(ctx, "123 Main St")
	require.Error(t, err)
}
