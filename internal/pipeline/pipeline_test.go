package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akleaf/vendor-pipeline/internal/model"
	"github.com/akleaf/vendor-pipeline/internal/store"
	"github.com/akleaf/vendor-pipeline/internal/validate"
	"github.com/akleaf/vendor-pipeline/pkg/geocode"
)

func writeInput(t *testing.T, dir string, records []map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	path := filepath.Join(dir, "vendors.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func newPipelineStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.SaveRegions(context.Background(), []model.Region{
		{ID: "anchorage", Name: "Anchorage", ZipCodes: []string{"99503", "99515"}, IsActive: true, IsPriority: true},
		{ID: "matsu", Name: "Mat-Su Valley", ZipCodes: []string{"99654"}, IsPriority: true},
	}))
	return st
}

func record(id, name, status, addr string) map[string]any {
	return map[string]any{
		"id":     id,
		"name":   name,
		"status": status,
		"location": map[string]any{
			"address": addr,
		},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, []map[string]any{
		record("1", "Green Leaf", "Active-Operating", "123 W Northern Lights Blvd, Anchorage, AK 99503"),
		record("2", "Gone For Good", "Revoked", "600 Barrow St, Anchorage, AK 99501"),
		{"id": "3", "location": map[string]any{"address": "1 Somewhere St"}}, // missing name
		record("4", "Southeast Shop", "Active", "123 Main St, Juneau, AK 99801"),
		record("5", "Valley Greens", "Active", "4901 E Blue Lupine Dr, Wasilla, AK 99654"),
		record("6", "No Geo", "Active", "unknown road, Anchorage, AK 99515"),
	})

	stub := &stubGeocoder{fn: func(address string) *geocode.Result {
		if strings.Contains(address, "unknown") {
			return &geocode.Result{Success: false, Err: "no results found"}
		}
		lat, lng := 61.19, -149.89
		if strings.Contains(address, "Wasilla") {
			lat, lng = 61.58, -149.44
		}
		return &geocode.Result{
			Success:          true,
			Latitude:         lat,
			Longitude:        lng,
			FormattedAddress: address + ", USA",
		}
	}}

	st := newPipelineStore(t)
	p := New(st, stub, validate.New(validate.AlaskaBounds))

	failures := filepath.Join(dir, "failures")
	output := filepath.Join(dir, "out", "finalized-vendors.json")

	result, err := p.Run(context.Background(), Options{
		Input:               input,
		Output:              output,
		FailuresDir:         failures,
		ArchiveDir:          filepath.Join(dir, "archive"),
		PriorityOnly:        true,
		ArchiveNonPriority:  true,
		CleanAddresses:      true,
		ValidateCoordinates: true,
		SyncMerge:           true,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)

	stats := result.Stats
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 1, stats.Invalid)
	assert.Equal(t, 1, stats.Revoked)
	assert.Equal(t, 1, stats.NonPriority)
	assert.Equal(t, 1, stats.InvalidCoordinates)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.PriorityOnly)
	assert.Equal(t, 0, stats.Other)

	// Status taxonomy over the normalized set: four active statuses, one
	// revoked; the schema-invalid record carries none.
	assert.Equal(t, 4, stats.StatusBreakdown[model.StatusActive])
	assert.Equal(t, 1, stats.StatusBreakdown[model.StatusRevoked])

	// Every record accounted for in exactly one terminal sink.
	assert.Equal(t, stats.Total,
		stats.Invalid+stats.Revoked+stats.NonPriority+stats.InvalidCoordinates+
			stats.Active+stats.PriorityOnly+stats.Other)

	assert.Equal(t, 2, stats.Synced)

	// Active vendor landed in the active collection with region info.
	ctx := context.Background()
	docs, storeErr := st.GetAll(ctx, "vendors")
	require.NoError(t, storeErr)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0].ID)
	info, ok := docs[0].Data["regionInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Anchorage", info["regionName"])
	assert.Equal(t, true, info["isActiveRegion"])

	docs, storeErr = st.GetAll(ctx, "priority_vendors")
	require.NoError(t, storeErr)
	require.Len(t, docs, 1)
	assert.Equal(t, "5", docs[0].ID)

	// Revoked vendor went to the ledger, not to any collection.
	ledger := readLedger(t, filepath.Join(failures, "revoked_vendors.json"))
	require.Len(t, ledger, 1)
	assert.Equal(t, "2", ledger[0].ID)

	// Side files exist for invalid records and failed coordinates.
	entries, dirErr := os.ReadDir(failures)
	require.NoError(t, dirErr)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.True(t, anyPrefix(names, "invalid_vendors_"))
	assert.True(t, anyPrefix(names, "invalid_coordinates_"))
	assert.True(t, anyPrefix(names, "geocode_errors_"))

	// Input archived next to the source, untouched.
	archive, dirErr := os.ReadDir(filepath.Join(dir, "archive"))
	require.NoError(t, dirErr)
	assert.NotEmpty(t, archive)
	_, statErr := os.Stat(input)
	require.NoError(t, statErr)

	// Categorized output files per bucket.
	_, statErr = os.Stat(filepath.Join(dir, "out", "finalized-vendors_active.json"))
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, "out", "finalized-vendors_priority.json"))
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, "out", "finalized-vendors_other.json"))
	require.True(t, os.IsNotExist(statErr))
}

func anyPrefix(names []string, prefix string) bool {
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

func TestRun_MissingInputFails(t *testing.T) {
	st := newPipelineStore(t)
	p := New(st, &stubGeocoder{}, validate.New(validate.AlaskaBounds))

	dir := t.TempDir()
	result, err := p.Run(context.Background(), Options{
		Input:       filepath.Join(dir, "nope.json"),
		FailuresDir: filepath.Join(dir, "failures"),
		ArchiveDir:  filepath.Join(dir, "archive"),
	})
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestRun_SkipSyncLeavesStoreUntouched(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, []map[string]any{
		record("1", "Green Leaf", "Active-Operating", "123 W Northern Lights Blvd, Anchorage, AK 99503"),
	})

	st := newPipelineStore(t)
	p := New(st, &stubGeocoder{}, validate.New(validate.AlaskaBounds))

	result, err := p.Run(context.Background(), Options{
		Input:               input,
		FailuresDir:         filepath.Join(dir, "failures"),
		ArchiveDir:          filepath.Join(dir, "archive"),
		ValidateCoordinates: true,
		SkipSync:            true,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Stats.Synced)

	docs, err := st.GetAll(context.Background(), "vendors")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRun_CleanedAddressesGeocodeCanonicalForm(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, []map[string]any{
		record("1", "Green Leaf", "Active-Operating", "123 W Northern Lights Blvd, Suite 4, Anchorage, AK 99503"),
	})

	var mu sync.Mutex
	var seen []string
	stub := &stubGeocoder{fn: func(address string) *geocode.Result {
		mu.Lock()
		seen = append(seen, address)
		mu.Unlock()
		return &geocode.Result{Success: true, Latitude: 61.19, Longitude: -149.89, FormattedAddress: address}
	}}

	st := newPipelineStore(t)
	p := New(st, stub, validate.New(validate.AlaskaBounds))

	result, err := p.Run(context.Background(), Options{
		Input:               input,
		FailuresDir:         filepath.Join(dir, "failures"),
		ArchiveDir:          filepath.Join(dir, "archive"),
		CleanAddresses:      true,
		ValidateCoordinates: true,
		SkipSync:            true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.Cleaned)

	// Suite designator stripped, country suffix appended before the call.
	require.Len(t, seen, 1)
	assert.Equal(t, "123 W Northern Lights Blvd, Anchorage, AK 99503, UNITED STATES", seen[0])
}

func TestRun_IdempotentReprocessing(t *testing.T) {
	dir := t.TempDir()
	records := []map[string]any{
		record("1", "Green Leaf", "Active-Operating", "123 W Northern Lights Blvd, Anchorage, AK 99503"),
		record("2", "Gone For Good", "Revoked", "600 Barrow St, Anchorage, AK 99501"),
	}
	input := writeInput(t, dir, records)

	st := newPipelineStore(t)
	p := New(st, &stubGeocoder{}, validate.New(validate.AlaskaBounds))

	opts := Options{
		Input:               input,
		FailuresDir:         filepath.Join(dir, "failures"),
		ArchiveDir:          filepath.Join(dir, "archive"),
		ValidateCoordinates: true,
		SyncMerge:           true,
	}

	_, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	// Second run over the same input: no duplicate ledger entries, no
	// duplicate store documents.
	input = writeInput(t, dir, records)
	opts.Input = input
	_, err = p.Run(context.Background(), opts)
	require.NoError(t, err)

	ledger := readLedger(t, filepath.Join(dir, "failures", "revoked_vendors.json"))
	assert.Len(t, ledger, 1)

	docs, err := st.GetAll(context.Background(), "vendors")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCategorize(t *testing.T) {
	active := model.Vendor{ID: "a", RegionInfo: &model.RegionInfo{IsActiveRegion: true, IsPriorityRegion: true}}
	priority := model.Vendor{ID: "p", RegionInfo: &model.RegionInfo{IsPriorityRegion: true}}
	other := model.Vendor{ID: "o", RegionInfo: &model.RegionInfo{RegionName: "Unknown"}}
	noInfo := model.Vendor{ID: "n"}

	cat := Categorize([]model.Vendor{active, priority, other, noInfo})
	require.Len(t, cat.Active, 1)
	assert.Equal(t, "a", cat.Active[0].ID)
	require.Len(t, cat.PriorityOnly, 1)
	assert.Equal(t, "p", cat.PriorityOnly[0].ID)
	assert.Len(t, cat.Other, 2)
}

func TestCategorizedPaths(t *testing.T) {
	a, p, o := categorizedPaths("/data/out/final.json")
	assert.Equal(t, "/data/out/final_active.json", a)
	assert.Equal(t, "/data/out/final_priority.json", p)
	assert.Equal(t, "/data/out/final_other.json", o)
}
