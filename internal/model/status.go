package model

import "strings"

// StatusCategory buckets a free-text license status string.
type StatusCategory string

// Status categories.
const (
	StatusActive   StatusCategory = "active"
	StatusInactive StatusCategory = "inactive"
	StatusRevoked  StatusCategory = "revoked"
	StatusUnknown  StatusCategory = "unknown"
)

// activeStatuses are license statuses for vendors currently operating.
var activeStatuses = []string{
	"Active-Operating",
	"Active",
	"Operating",
	"Active-Pending Inspection",
	"Pending Inspection",
	"Delegated",
	"Returned",
}

// inactiveStatuses are vendors temporarily not operating that may return.
var inactiveStatuses = []string{
	"Suspended",
	"Expired",
	"Surrendered",
	"Complete",
	"Pending",
}

// revokedStatuses are vendors that will not return to operation.
var revokedStatuses = []string{
	"Revoked",
}

func statusMatches(status string, vocabulary []string) bool {
	lower := strings.ToLower(status)
	for _, s := range vocabulary {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// CategorizeStatus maps a free-text license status into exactly one category
// via case-insensitive substring match against the fixed vocabularies.
// Active wins over inactive wins over revoked, matching the lookup order the
// status vocabularies were built for.
func CategorizeStatus(status string) StatusCategory {
	if status == "" {
		return StatusUnknown
	}
	switch {
	case statusMatches(status, activeStatuses):
		return StatusActive
	case statusMatches(status, inactiveStatuses):
		return StatusInactive
	case statusMatches(status, revokedStatuses):
		return StatusRevoked
	default:
		return StatusUnknown
	}
}

// IsRevoked reports whether the vendor's status string is exactly the revoked
// status, case-insensitively. The revoked filter intentionally uses equality
// rather than the substring vocabularies so that statuses merely mentioning
// revocation are not swept into the ledger.
func (v *Vendor) IsRevoked() bool {
	return strings.EqualFold(strings.TrimSpace(v.Status), "revoked")
}

// IsActive reports whether the vendor's status falls in the active vocabulary.
func (v *Vendor) IsActive() bool {
	return statusMatches(v.Status, activeStatuses)
}
