// Package geocode resolves free-text addresses to coordinates via a primary
// provider (Google-style geocoding API) or a fallback free-text search
// provider with stricter rate limits.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ProviderRapidAPI is the fallback provider family: a structured free-text
// search API with header-based key auth and strict rate limits.
const ProviderRapidAPI = "rapidapi"

// ProviderGoogle is the default primary provider.
const ProviderGoogle = "google"

// Result holds the outcome of one geocode attempt. Every attempt resolves to
// a Result value; provider and transport failures are encoded in Err, never
// raised to the caller.
type Result struct {
	Success          bool    `json:"success"`
	Latitude         float64 `json:"latitude,omitempty"`
	Longitude        float64 `json:"longitude,omitempty"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
	Err              string  `json:"error,omitempty"`
}

// Client geocodes single addresses.
type Client interface {
	// Geocode resolves an address to coordinates. The returned error is
	// reserved for context cancellation; every other failure is a
	// Success=false Result.
	Geocode(ctx context.Context, address string) (*Result, error)

	// Provider returns the provider name the client was built for.
	Provider() string
}

// IsFallbackProvider reports whether the named provider belongs to the
// stricter-rate-limit fallback family.
func IsFallbackProvider(provider string) bool {
	return provider == ProviderRapidAPI
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithProvider selects the provider. An explicit provider wins over the
// configured default; empty keeps the default.
func WithProvider(provider string) Option {
	return func(g *geocoder) {
		if provider != "" {
			g.provider = provider
		}
	}
}

// WithAPIKey sets the primary-provider API key.
func WithAPIKey(key string) Option {
	return func(g *geocoder) {
		g.apiKey = key
	}
}

// WithRapidAPI sets the fallback provider credentials.
func WithRapidAPI(key, host string) Option {
	return func(g *geocoder) {
		g.rapidKey = key
		if host != "" {
			g.rapidHost = host
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for the primary provider.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type geocoder struct {
	provider   string
	apiKey     string
	rapidKey   string
	rapidHost  string
	httpClient *http.Client
	limiter    *rate.Limiter
	rapidLim   *rate.Limiter
}

// NewClient creates a geocoding Client. The default provider is Google; the
// fallback provider is rate-shaped to one request per second regardless of
// the primary limit.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		provider:   ProviderGoogle,
		rapidHost:  defaultRapidAPIHost,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		rapidLim:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider implements Client.
func (g *geocoder) Provider() string { return g.provider }

// Geocode implements Client. Network and parse errors are converted into
// Success=false results; only rate-limiter waits interrupted by context
// cancellation surface as errors.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	var result *Result
	var err error

	switch {
	case IsFallbackProvider(g.provider):
		result, err = g.geocodeRapidAPI(ctx, address)
	default:
		result, err = g.geocodeGoogle(ctx, address)
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "geocode: canceled")
		}
		zap.L().Debug("geocode: provider error",
			zap.String("provider", g.provider),
			zap.Error(err),
		)
		return &Result{Success: false, Err: err.Error()}, nil
	}
	return result, nil
}
