package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akleaf/vendor-pipeline/internal/address"
	"github.com/akleaf/vendor-pipeline/internal/model"
	"github.com/akleaf/vendor-pipeline/internal/region"
	"github.com/akleaf/vendor-pipeline/internal/store"
	"github.com/akleaf/vendor-pipeline/internal/validate"
	"github.com/akleaf/vendor-pipeline/pkg/geocode"
)

// Collections names the three output partitions in the document store.
type Collections struct {
	Active       string `mapstructure:"active"`
	PriorityOnly string `mapstructure:"priority_only"`
	Other        string `mapstructure:"other"`
}

// DefaultCollections matches the deployment's collection names.
var DefaultCollections = Collections{
	Active:       "vendors",
	PriorityOnly: "priority_vendors",
	Other:        "other_vendors",
}

// Options configures one pipeline run. Toggles default to the safe side:
// archive before delete, no sync without asking.
type Options struct {
	Input       string
	Output      string
	FailuresDir string
	ArchiveDir  string

	PriorityOnly        bool
	ArchiveNonPriority  bool
	CleanAddresses      bool
	ValidateCoordinates bool
	ArchiveStages       bool

	Concurrency  int
	Delay        time.Duration
	ForceGeocode bool

	SkipSync           bool
	SyncMerge          bool
	DeleteAfterArchive bool
	DeleteAfterSync    bool

	Collections Collections
}

// Pipeline sequences normalization, revoked filtering, region filtering,
// address cleaning, geocoding, coordinate validation, region enrichment,
// categorization, archival, and persistence. Every input record's fate is
// traceable to exactly one terminal sink.
type Pipeline struct {
	store     store.Store
	geocoder  geocode.Client
	validator *validate.Validator
}

// New creates a Pipeline with its collaborators.
func New(st store.Store, gc geocode.Client, v *validate.Validator) *Pipeline {
	return &Pipeline{store: st, geocoder: gc, validator: v}
}

// Run executes the full workflow. Fatal conditions (unreadable input,
// malformed JSON, non-array payload) and stage-level I/O failures surface as
// a Success=false result with the error; already-written archives remain on
// disk for forensic recovery.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*model.RunResult, error) {
	runID := uuid.New().String()
	now := time.Now()
	timestamp := SanitizeTimestamp(now)
	log := zap.L().With(zap.String("run_id", runID), zap.String("input", opts.Input))

	result := &model.RunResult{RunID: runID}
	fail := func(stage string, err error) (*model.RunResult, error) {
		log.Error("pipeline: stage failed", zap.String("stage", stage), zap.Error(err))
		result.Success = false
		result.Error = err.Error()
		return result, err
	}

	if opts.Collections == (Collections{}) {
		opts.Collections = DefaultCollections
	}
	if opts.FailuresDir == "" {
		opts.FailuresDir = "./data/failures"
	}
	if opts.ArchiveDir == "" {
		opts.ArchiveDir = "./data/archive"
	}

	// Ingest. Any parse problem aborts the run before partial processing.
	log.Info("pipeline: starting vendor processing")
	raw, err := ReadVendorFile(opts.Input)
	if err != nil {
		return fail("ingest", err)
	}
	result.Stats.Total = len(raw)
	log.Info("pipeline: ingested vendors", zap.Int("count", len(raw)))

	archived, err := archiveInput(opts.Input, timestamp)
	if err != nil {
		return fail("archive_input", err)
	}
	log.Info("pipeline: archived input", zap.String("path", archived))
	if opts.DeleteAfterArchive {
		if err := os.Remove(opts.Input); err != nil {
			return fail("archive_input", eris.Wrap(err, "delete input after archive"))
		}
	}

	// Normalize; records that still lack id, name, or address are sidelined.
	vendors := make([]model.Vendor, 0, len(raw))
	var invalid []model.InvalidVendor
	for _, record := range raw {
		v := Normalize(record)
		if issues := ValidateVendor(v); len(issues) > 0 {
			invalid = append(invalid, model.InvalidVendor{Vendor: v, Issues: issues})
			continue
		}
		vendors = append(vendors, v)
	}
	result.Stats.Invalid = len(invalid)
	if len(invalid) > 0 {
		path := filepath.Join(opts.FailuresDir, "invalid_vendors_"+timestamp+".json")
		if err := writeJSON(path, invalid); err != nil {
			return fail("normalize", err)
		}
		log.Warn("pipeline: sidelined invalid vendors", zap.Int("count", len(invalid)), zap.String("path", path))
	}
	breakdown := make(map[model.StatusCategory]int)
	for _, v := range vendors {
		breakdown[model.CategorizeStatus(v.Status)]++
	}
	result.Stats.StatusBreakdown = breakdown
	log.Info("pipeline: normalized vendors",
		zap.Int("count", len(vendors)),
		zap.Int("active_status", breakdown[model.StatusActive]),
		zap.Int("inactive_status", breakdown[model.StatusInactive]),
		zap.Int("revoked_status", breakdown[model.StatusRevoked]),
		zap.Int("unknown_status", breakdown[model.StatusUnknown]),
	)

	// Revoked filter: merge into the cumulative ledger, keep the rest.
	var working, revoked []model.Vendor
	for _, v := range vendors {
		if v.IsRevoked() {
			revoked = append(revoked, v)
		} else {
			working = append(working, v)
		}
	}
	result.Stats.Revoked = len(revoked)
	if len(revoked) > 0 {
		ledger := NewRevokedLedger(filepath.Join(opts.FailuresDir, "revoked_vendors.json"))
		mergeStats, err := ledger.Merge(revoked, now)
		if err != nil {
			return fail("revoked_filter", err)
		}
		if err := ledger.Backup(timestamp); err != nil {
			return fail("revoked_filter", err)
		}
		log.Info("pipeline: merged revoked ledger",
			zap.Int("new", mergeStats.New),
			zap.Int("updated", mergeStats.Updated),
			zap.Int("total", mergeStats.Total),
		)
	}

	// Region lookup table, fetched once per run.
	regions, err := p.store.LoadRegions(ctx)
	if err != nil {
		return fail("load_regions", err)
	}
	classifier := region.NewClassifier(regions)
	log.Info("pipeline: loaded regions", zap.Int("count", len(regions)))

	// Optional priority filter: non-priority vendors are archived and leave
	// the working set for this run.
	if opts.PriorityOnly {
		var priority, nonPriority []model.Vendor
		regionCounts := map[string]int{}
		for _, v := range working {
			if classifier.IsPriority(v) {
				priority = append(priority, v)
				name := "Unknown"
				if r := classifier.RegionFor(v); r != nil {
					name = r.Name
				}
				regionCounts[name]++
			} else {
				nonPriority = append(nonPriority, v)
			}
		}
		working = priority
		result.Stats.Priority = len(priority)
		result.Stats.NonPriority = len(nonPriority)
		for name, count := range regionCounts {
			log.Info("pipeline: priority region", zap.String("region", name), zap.Int("vendors", count))
		}

		if opts.ArchiveNonPriority && len(nonPriority) > 0 {
			path := filepath.Join(opts.ArchiveDir, "non_priority_vendors", "non_priority_vendors_"+timestamp+".json")
			if err := writeJSON(path, nonPriority); err != nil {
				return fail("priority_filter", err)
			}
			log.Info("pipeline: archived non-priority vendors", zap.Int("count", len(nonPriority)), zap.String("path", path))
		}
	}

	// Optional address cleaning, with ZIP re-extraction afterward so the
	// zipCode field stays consistent with the cleaned address.
	if opts.CleanAddresses {
		cleaned := 0
		for i := range working {
			v := &working[i]
			if v.Location.Address == "" {
				continue
			}
			res := address.Clean(v.Location.Address)
			if res.WasModified {
				cleaned++
			}
			// Geocode against the canonical form; the fallback provider
			// strips the country suffix again on its side.
			canonical := address.Canonicalize(res.Cleaned)
			if canonical != v.Location.Address {
				v.Location.OriginalAddress = v.Location.Address
				v.Location.Address = canonical
			}
			if res.ExtractedZip != nil {
				v.Location.ZipCode = res.ExtractedZip
			}
			if zip := address.ExtractZip(v.Location.Address); zip != nil {
				v.Location.ZipCode = zip
			}
		}
		result.Stats.Cleaned = cleaned
		log.Info("pipeline: cleaned addresses", zap.Int("modified", cleaned))
	}
	if opts.ArchiveStages {
		if err := p.archiveStage(opts.ArchiveDir, "pre_geocode", timestamp, working); err != nil {
			return fail("archive_stage", err)
		}
	}

	// Geocode. Failures ride the error side-channel; the failed vendors
	// continue unchanged and are caught by coordinate validation.
	batch := NewBatchGeocoder(p.geocoder).GeocodeAll(ctx, working, GeocodeOptions{
		Concurrency: opts.Concurrency,
		Delay:       opts.Delay,
		Force:       opts.ForceGeocode,
	})
	working = batch.Vendors
	result.Stats.Geocoded = batch.Stats.Successful
	result.Stats.GeocodeFailed = batch.Stats.Failed
	log.Info("pipeline: geocoding complete",
		zap.Int("successful", batch.Stats.Successful),
		zap.Int("failed", batch.Stats.Failed),
	)
	if len(batch.Errors) > 0 {
		path := filepath.Join(opts.FailuresDir, "geocode_errors_"+timestamp+".json")
		if err := writeJSON(path, batch.Errors); err != nil {
			return fail("geocode", err)
		}
	}

	// Optional coordinate validation. Invalid records are sidelined with
	// their issues, excluded from this run's successful output only.
	if opts.ValidateCoordinates {
		var valid []model.Vendor
		var invalidCoords []model.InvalidVendor
		for _, v := range working {
			res := p.validator.Validate(v)
			if res.Valid {
				valid = append(valid, v)
			} else {
				log.Warn("pipeline: invalid coordinates",
					zap.String("vendor", v.ID),
					zap.Strings("issues", res.Issues),
				)
				invalidCoords = append(invalidCoords, model.InvalidVendor{Vendor: v, Issues: res.Issues})
			}
		}
		working = valid
		result.Stats.InvalidCoordinates = len(invalidCoords)
		if len(invalidCoords) > 0 {
			path := filepath.Join(opts.FailuresDir, "invalid_coordinates_"+timestamp+".json")
			if err := writeJSON(path, invalidCoords); err != nil {
				return fail("validate_coordinates", err)
			}
		}
		// Re-extract ZIPs so provider-formatted addresses stay consistent.
		for i := range working {
			if zip := address.ExtractZip(working[i].Location.Address); zip != nil {
				working[i].Location.ZipCode = zip
			}
		}
		log.Info("pipeline: coordinate validation",
			zap.Int("valid", len(valid)),
			zap.Int("invalid", len(invalidCoords)),
		)
	}

	// Region enrichment: every surviving record gets regionInfo.
	checkStamp := now.UTC().Format(time.RFC3339)
	for i := range working {
		working[i].RegionInfo = regionInfoFor(classifier, working[i], checkStamp)
	}

	// Categorize into exactly one bucket.
	cat := Categorize(working)
	result.Stats.Active = len(cat.Active)
	result.Stats.PriorityOnly = len(cat.PriorityOnly)
	result.Stats.Other = len(cat.Other)
	log.Info("pipeline: categorized vendors",
		zap.Int("active", len(cat.Active)),
		zap.Int("priority_only", len(cat.PriorityOnly)),
		zap.Int("other", len(cat.Other)),
	)

	if opts.Output != "" {
		if err := writeCategorized(cat, opts.Output); err != nil {
			return fail("persist_files", err)
		}
	}
	if opts.ArchiveStages {
		if err := p.archiveStage(opts.ArchiveDir, "finalized", timestamp, working); err != nil {
			return fail("archive_stage", err)
		}
	}

	if !opts.SkipSync {
		synced, err := p.syncCategorized(ctx, cat, opts.Collections, opts.SyncMerge, checkStamp)
		result.Stats.Synced = synced
		if err != nil {
			return fail("sync", err)
		}
		log.Info("pipeline: synced vendors", zap.Int("count", synced))

		if opts.DeleteAfterSync && opts.Output != "" {
			removeCategorized(opts.Output)
		}
	}

	log.Info("pipeline: run complete",
		zap.Int("total", result.Stats.Total),
		zap.Int("invalid", result.Stats.Invalid),
		zap.Int("revoked", result.Stats.Revoked),
		zap.Int("non_priority", result.Stats.NonPriority),
		zap.Int("geocode_failed", result.Stats.GeocodeFailed),
		zap.Int("invalid_coordinates", result.Stats.InvalidCoordinates),
		zap.Int("active", result.Stats.Active),
		zap.Int("priority_only", result.Stats.PriorityOnly),
		zap.Int("other", result.Stats.Other),
		zap.Int("synced", result.Stats.Synced),
	)
	result.Success = true
	return result, nil
}

// regionInfoFor builds the regionInfo block for a vendor; vendors without a
// resolvable ZIP or matching region get the Unknown defaults.
func regionInfoFor(c *region.Classifier, v model.Vendor, checkStamp string) *model.RegionInfo {
	info := &model.RegionInfo{
		RegionName:      "Unknown",
		LastRegionCheck: checkStamp,
	}
	if r := c.RegionFor(v); r != nil {
		id := r.ID
		info.RegionID = &id
		info.RegionName = r.Name
		info.IsActiveRegion = r.IsActive
		info.IsPriorityRegion = r.IsPriority
	}
	return info
}

// Categorize buckets enriched vendors into mutually exclusive sets: active
// region wins over priority-only, everything else is other.
func Categorize(vendors []model.Vendor) model.CategorizedVendors {
	var cat model.CategorizedVendors
	for _, v := range vendors {
		switch {
		case v.RegionInfo != nil && v.RegionInfo.IsActiveRegion:
			cat.Active = append(cat.Active, v)
		case v.RegionInfo != nil && v.RegionInfo.IsPriorityRegion:
			cat.PriorityOnly = append(cat.PriorityOnly, v)
		default:
			cat.Other = append(cat.Other, v)
		}
	}
	return cat
}

// archiveStage snapshots an intermediate collection keyed by run timestamp.
func (p *Pipeline) archiveStage(archiveDir, stage, timestamp string, vendors []model.Vendor) error {
	path := filepath.Join(archiveDir, "stages", stage+"_"+timestamp+".json")
	return writeJSON(path, vendors)
}

// categorizedPaths derives the per-bucket output paths from the base output
// path, e.g. finalized-vendors.json -> finalized-vendors_active.json.
func categorizedPaths(output string) (active, priority, other string) {
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	return base + "_active" + ext, base + "_priority" + ext, base + "_other" + ext
}

func writeCategorized(cat model.CategorizedVendors, output string) error {
	activePath, priorityPath, otherPath := categorizedPaths(output)
	if len(cat.Active) > 0 {
		if err := writeJSON(activePath, cat.Active); err != nil {
			return err
		}
	}
	if len(cat.PriorityOnly) > 0 {
		if err := writeJSON(priorityPath, cat.PriorityOnly); err != nil {
			return err
		}
	}
	if len(cat.Other) > 0 {
		if err := writeJSON(otherPath, cat.Other); err != nil {
			return err
		}
	}
	return nil
}

func removeCategorized(output string) {
	activePath, priorityPath, otherPath := categorizedPaths(output)
	for _, path := range []string{activePath, priorityPath, otherPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("pipeline: failed to delete output after sync",
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
}

// syncCategorized persists each bucket to its collection. A batch failure in
// one bucket surfaces as the stage error; buckets and batches already
// committed stay persisted.
func (p *Pipeline) syncCategorized(ctx context.Context, cat model.CategorizedVendors, cols Collections, merge bool, stamp string) (int, error) {
	synced := 0
	buckets := []struct {
		collection string
		vendors    []model.Vendor
	}{
		{cols.Active, cat.Active},
		{cols.PriorityOnly, cat.PriorityOnly},
		{cols.Other, cat.Other},
	}

	for _, b := range buckets {
		if len(b.vendors) == 0 {
			continue
		}
		docs, err := vendorDocuments(b.vendors, stamp)
		if err != nil {
			return synced, err
		}
		stats, err := p.store.SetBatch(ctx, b.collection, docs, merge)
		synced += stats.Successful
		if err != nil {
			return synced, eris.Wrapf(err, "sync: collection %s", b.collection)
		}
	}
	return synced, nil
}

// vendorDocuments converts vendors to store documents, refreshing
// lastUpdated at persistence time.
func vendorDocuments(vendors []model.Vendor, stamp string) ([]store.Document, error) {
	docs := make([]store.Document, 0, len(vendors))
	for _, v := range vendors {
		v.LastUpdated = stamp
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrapf(err, "sync: encode vendor %s", v.ID)
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, eris.Wrapf(err, "sync: round-trip vendor %s", v.ID)
		}
		docs = append(docs, store.Document{ID: v.ID, Data: data})
	}
	return docs, nil
}
