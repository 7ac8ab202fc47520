package models

import "time"

// Snapshot format discriminators.
const (
	SnapshotFormatDictionary = "fern.dictionary"
	SnapshotFormatPackage    = "fern.package"
)

// SnapshotVersion is the current snapshot schema version.
const SnapshotVersion = "1.0"

// Sync merge modes.
const (
	SyncModeAddNew         = "add_new"
	SyncModeReplaceAll     = "replace_all"
	SyncModeUpdateExisting = "update_existing"
)

// IsValidSyncMode reports whether m is a known merge mode.
func IsValidSyncMode(m string) bool {
	switch m {
	case SyncModeAddNew, SyncModeReplaceAll, SyncModeUpdateExisting:
		return true
	}
	return false
}

// SnapshotRole is a role as serialized in a master snapshot. Optional fields
// are omitted when absent, never null-padded.
type SnapshotRole struct {
	RoleName      string     `json:"role_name"`
	Aliases       StringList `json:"aliases,omitempty"`
	Category      string     `json:"category,omitempty"`
	Description   string     `json:"description,omitempty"`
	IsDeliverable bool       `json:"is_deliverable,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// DictionarySnapshot is the master file exchanged between installs for sync.
type DictionarySnapshot struct {
	Format     string         `json:"format"`
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	RoleCount  int            `json:"role_count"`
	Roles      []SnapshotRole `json:"roles"`
}

// PackageSnapshot additionally bundles function category definitions for
// cross-team distribution.
type PackageSnapshot struct {
	Format             string             `json:"format"`
	Version            string             `json:"version"`
	ExportedAt         time.Time          `json:"exported_at"`
	RoleCount          int                `json:"role_count"`
	Roles              []SnapshotRole     `json:"roles"`
	FunctionCategories []FunctionCategory `json:"function_categories"`
}

// SyncRequest drives a dictionary reconcile against a shared snapshot.
type SyncRequest struct {
	Snapshot        *DictionarySnapshot `json:"snapshot,omitempty"`
	MergeMode       string              `json:"merge_mode" validate:"required"`
	CreateIfMissing bool                `json:"create_if_missing,omitempty"`
}

// SyncResult reports what a reconcile did.
type SyncResult struct {
	Added     int      `json:"added"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Conflicts []string `json:"conflicts,omitempty"`

	// Exported holds the snapshot produced when create_if_missing turned the
	// sync into an export.
	Exported *DictionarySnapshot `json:"exported,omitempty"`
}
