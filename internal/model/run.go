package model

// RunStats reconciles every input record to exactly one terminal sink.
// Total == Revoked + Invalid + NonPriority + InvalidCoordinates +
// Active + PriorityOnly + Other when all stages are enabled.
type RunStats struct {
	Total              int `json:"total"`
	Invalid            int `json:"invalid"`
	Revoked            int `json:"revoked"`
	Priority           int `json:"priority"`
	NonPriority        int `json:"nonPriority"`
	Cleaned            int `json:"cleaned"`
	Geocoded           int `json:"geocoded"`
	GeocodeFailed      int `json:"geocodeFailed"`
	InvalidCoordinates int `json:"invalidCoordinates"`
	Active             int `json:"active"`
	PriorityOnly       int `json:"priorityOnly"`
	Other              int `json:"other"`
	Synced             int `json:"synced"`

	// StatusBreakdown counts normalized vendors per license status category.
	StatusBreakdown map[StatusCategory]int `json:"statusBreakdown,omitempty"`
}

// RunResult is the top-level outcome of a pipeline run. Any stage-level I/O
// failure surfaces here as Success=false rather than a partial silent success.
type RunResult struct {
	RunID   string   `json:"runId"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Stats   RunStats `json:"stats"`
}

// InvalidVendor is a record diverted to a side file with its error detail.
type InvalidVendor struct {
	Vendor Vendor   `json:"vendor"`
	Issues []string `json:"issues"`
}

// CategorizedVendors buckets enriched vendors into mutually exclusive sets.
type CategorizedVendors struct {
	Active       []Vendor `json:"active"`
	PriorityOnly []Vendor `json:"priorityOnly"`
	Other        []Vendor `json:"other"`
}
