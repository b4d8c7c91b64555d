package constants

// EntryStatus is the canonical status for rows in the ledger.
type EntryStatus string

// Stable values (store these exact strings in DB).
const (
	StatusActive  EntryStatus = "ACTIVE"  // visible to metrics and exports
	StatusTrashed EntryStatus = "TRASHED" // soft-deleted, retained in storage
)

// IsValid reports whether s is a known status.
func (s EntryStatus) IsValid() bool {
	return s == StatusActive || s == StatusTrashed
}
