package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SanitizeTimestamp renders a run timestamp safe for filenames by replacing
// the characters an ISO timestamp carries that filesystems dislike.
func SanitizeTimestamp(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}

// writeJSON writes v as indented JSON, creating parent directories.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "artifacts: mkdir for %s", path)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "artifacts: encode %s", path)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "artifacts: write %s", path)
	}
	return nil
}

// ReadVendorFile reads a JSON array of raw vendor records. A missing file,
// malformed JSON, or a non-array payload is fatal to the run: no partial
// processing of an unparseable input.
func ReadVendorFile(path string) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: read %s", path)
	}

	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, eris.Wrapf(err, "input: invalid JSON in %s", path)
	}
	arr, ok := probe.([]any)
	if !ok {
		return nil, eris.Errorf("input: %s must contain an array of vendors", path)
	}

	records := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			m = map[string]any{}
		}
		records = append(records, m)
	}
	return records, nil
}

// archiveInput copies the input file into an archive/ directory next to it,
// named with the run timestamp. The copy happens before any delete so the
// raw input survives every run.
func archiveInput(input, timestamp string) (string, error) {
	raw, err := os.ReadFile(input)
	if err != nil {
		return "", eris.Wrapf(err, "archive: read %s", input)
	}

	archiveDir := filepath.Join(filepath.Dir(input), "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", eris.Wrap(err, "archive: mkdir")
	}

	base := strings.TrimSuffix(filepath.Base(input), ".json")
	dest := filepath.Join(archiveDir, base+"_processed_"+timestamp+".json")
	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		return "", eris.Wrapf(err, "archive: write %s", dest)
	}
	return dest, nil
}
