package events

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventType defines the type of event
type EventType string

const (
	// Role lifecycle events
	EventTypeRoleCreated EventType = "role.created"
	EventTypeRoleUpdated EventType = "role.updated"
	EventTypeRoleRenamed EventType = "role.renamed"
	EventTypeRoleDeleted EventType = "role.deleted"

	// Relationship events
	EventTypeRelationshipAdded   EventType = "relationship.added"
	EventTypeRelationshipDeleted EventType = "relationship.deleted"

	// Bulk operation events
	EventTypeImportCommitted      EventType = "import.committed"
	EventTypeSyncCompleted        EventType = "sync.completed"
	EventTypeAdjudicationApplied  EventType = "adjudication.applied"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// RoleEvent is emitted on role lifecycle changes.
type RoleEvent struct {
	BaseEvent
	RoleID         string `json:"role_id"`
	NormalizedName string `json:"normalized_name"`
	Name           string `json:"name"`
	Disposition    string `json:"disposition,omitempty"`
	OldName        string `json:"old_name,omitempty"`
	Hard           bool   `json:"hard,omitempty"`
}

// RelationshipEvent is emitted when a typed edge is added or removed.
type RelationshipEvent struct {
	BaseEvent
	SourceRole string `json:"source_role"`
	TargetRole string `json:"target_role"`
	Type       string `json:"type"`
}

// ImportCommittedEvent is emitted after a hierarchy import commit.
type ImportCommittedEvent struct {
	BaseEvent
	Mode               string `json:"mode"`
	SourceTag          string `json:"source_tag,omitempty"`
	RolesCreated       int    `json:"roles_created"`
	RolesUpdated       int    `json:"roles_updated"`
	RelationshipsAdded int    `json:"relationships_added"`
}

// SyncCompletedEvent is emitted after a dictionary sync.
type SyncCompletedEvent struct {
	BaseEvent
	MergeMode string `json:"merge_mode"`
	Added     int    `json:"added"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Conflicts int    `json:"conflicts"`
}

// AdjudicationAppliedEvent is emitted after an auto-adjudication commit.
type AdjudicationAppliedEvent struct {
	BaseEvent
	Suggested int     `json:"suggested"`
	Applied   int     `json:"applied"`
	Threshold float64 `json:"threshold"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
