package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akleaf/vendor-pipeline/internal/model"
	"github.com/akleaf/vendor-pipeline/pkg/geocode"
)

// fallbackMinDelay is the minimum inter-batch delay enforced for the
// fallback provider family.
const fallbackMinDelay = time.Second

// GeocodeOptions tunes a batch geocoding pass.
type GeocodeOptions struct {
	// Concurrency bounds simultaneously in-flight geocode requests.
	Concurrency int
	// Delay is the sleep between batches; skipped after the final batch.
	Delay time.Duration
	// Force re-geocodes vendors that already hold valid coordinates.
	Force bool
}

// GeocodeError records one vendor's geocoding failure.
type GeocodeError struct {
	VendorID string `json:"vendorId"`
	Name     string `json:"name"`
	Error    string `json:"error"`
}

// GeocodeStats summarizes a batch geocoding pass.
type GeocodeStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchResult is the outcome of GeocodeAll. Vendors preserves input order;
// results are matched back by vendor id, never by slice position.
type BatchResult struct {
	Vendors []model.Vendor
	Errors  []GeocodeError
	Stats   GeocodeStats
}

// BatchGeocoder drives rate-limited geocoding over a vendor collection. A
// geocoding failure never crashes the batch or drops the record: the
// original vendor passes through and the failure lands in the error
// side-channel.
type BatchGeocoder struct {
	client geocode.Client
}

// NewBatchGeocoder creates a BatchGeocoder over the given client.
func NewBatchGeocoder(client geocode.Client) *BatchGeocoder {
	return &BatchGeocoder{client: client}
}

// GeocodeAll geocodes vendors in sequential batches of opts.Concurrency,
// issuing the calls within a batch concurrently. The fallback provider
// family overrides caller-supplied tuning to one request at a time with at
// least a one-second inter-batch delay. Vendors already holding valid
// coordinates are returned untouched without a network call unless Force is
// set; vendors lacking an address fail without a network call.
func (b *BatchGeocoder) GeocodeAll(ctx context.Context, vendors []model.Vendor, opts GeocodeOptions) BatchResult {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 2
	}
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	if geocode.IsFallbackProvider(b.client.Provider()) {
		concurrency = 1
		if delay < fallbackMinDelay {
			delay = fallbackMinDelay
		}
	}

	out := make([]model.Vendor, len(vendors))
	var mu sync.Mutex
	var errs []GeocodeError

	recordError := func(v model.Vendor, msg string) {
		mu.Lock()
		errs = append(errs, GeocodeError{VendorID: v.ID, Name: v.Name, Error: msg})
		mu.Unlock()
	}

	for start := 0; start < len(vendors); start += concurrency {
		end := min(start+concurrency, len(vendors))

		eg, gCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			eg.Go(func() error {
				out[i] = b.geocodeOne(gCtx, vendors[i], opts.Force, recordError)
				return nil
			})
		}
		_ = eg.Wait()

		if end < len(vendors) && delay > 0 {
			sleep(ctx, delay)
		}
	}

	return BatchResult{
		Vendors: out,
		Errors:  errs,
		Stats: GeocodeStats{
			Total:      len(vendors),
			Successful: len(vendors) - len(errs),
			Failed:     len(errs),
		},
	}
}

// geocodeOne geocodes a single vendor, returning the updated vendor on
// success and the original unchanged on any failure.
func (b *BatchGeocoder) geocodeOne(ctx context.Context, v model.Vendor, force bool, recordError func(model.Vendor, string)) model.Vendor {
	if !force && v.HasValidCoordinates && v.HasCoordinates() {
		return v
	}

	addr := v.Location.Address
	if addr == "" {
		recordError(v, "missing address")
		return v
	}

	result, err := b.client.Geocode(ctx, addr)
	if err != nil {
		recordError(v, err.Error())
		return v
	}
	if !result.Success {
		zap.L().Debug("geocode: no result",
			zap.String("vendor", v.ID),
			zap.String("address", addr),
			zap.String("error", result.Err),
		)
		recordError(v, result.Err)
		return v
	}

	// zipCode set during preprocessing is preserved; only the address
	// fields and coordinates change.
	v.Location.OriginalAddress = addr
	if result.FormattedAddress != "" {
		v.Location.Address = result.FormattedAddress
	}
	v.SetCoordinates(result.Latitude, result.Longitude)
	return v
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
