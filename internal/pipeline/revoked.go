package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akleaf/vendor-pipeline/internal/model"
)

// RevokedLedger is the cumulative, run-spanning record of revoked vendors.
// Entries are keyed by business license (falling back to vendor id) and
// merge-updated across runs: re-running with the same revoked vendor
// refreshes its lastUpdated instead of duplicating the entry.
type RevokedLedger struct {
	path string
}

// NewRevokedLedger creates a ledger backed by the file at path, typically
// <failures>/revoked_vendors.json.
func NewRevokedLedger(path string) *RevokedLedger {
	return &RevokedLedger{path: path}
}

// Path returns the ledger file location.
func (l *RevokedLedger) Path() string { return l.path }

// MergeStats reports a ledger merge.
type MergeStats struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// load reads the existing ledger. A missing file is an empty ledger; an
// unreadable one is logged and replaced rather than aborting the run.
func (l *RevokedLedger) load() []model.Vendor {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("revoked ledger: read failed, starting fresh",
				zap.String("path", l.path),
				zap.Error(err),
			)
		}
		return nil
	}

	var entries []model.Vendor
	if err := json.Unmarshal(raw, &entries); err != nil {
		zap.L().Warn("revoked ledger: corrupt file, starting fresh",
			zap.String("path", l.path),
			zap.Error(err),
		)
		return nil
	}
	return entries
}

// Merge read-merge-writes the ledger with the given revoked vendors. The
// merge is idempotent: existing entries are updated in place with a
// refreshed lastUpdated, new ones appended.
func (l *RevokedLedger) Merge(vendors []model.Vendor, now time.Time) (MergeStats, error) {
	entries := l.load()

	index := make(map[string]int, len(entries))
	for i, e := range entries {
		if key := e.LedgerKey(); key != "" {
			index[key] = i
		}
	}

	stamp := now.UTC().Format(time.RFC3339)
	var stats MergeStats
	for _, v := range vendors {
		v.LastUpdated = stamp
		key := v.LedgerKey()
		if key == "" {
			entries = append(entries, v)
			stats.New++
			continue
		}
		if i, ok := index[key]; ok {
			entries[i] = v
			stats.Updated++
		} else {
			index[key] = len(entries)
			entries = append(entries, v)
			stats.New++
		}
	}
	stats.Total = len(entries)

	if err := writeJSON(l.path, entries); err != nil {
		return stats, eris.Wrap(err, "revoked ledger: write")
	}
	return stats, nil
}

// Backup writes a timestamped copy of the ledger alongside the cumulative
// file.
func (l *RevokedLedger) Backup(timestamp string) error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return eris.Wrap(err, "revoked ledger: read for backup")
	}
	dir := filepath.Dir(l.path)
	backup := filepath.Join(dir, "revoked_vendors_"+timestamp+".json")
	if err := os.WriteFile(backup, raw, 0o644); err != nil {
		return eris.Wrap(err, "revoked ledger: write backup")
	}
	return nil
}
