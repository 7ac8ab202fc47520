// Package events handles event emission for dictionary lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Emitter publishes dictionary events. A nil producer disables emission, so
// callers never have to branch on whether Kafka is configured.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *Emitter) publish(ctx context.Context, key string, eventType EventType, tenantID string, payload any) {
	if e == nil || e.producer == nil {
		return
	}
	if err := e.producer.Publish(ctx, key, string(eventType), tenantID, payload); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
		}).Error("failed to emit event")
	}
}

// EmitRoleCreated emits a role.created event
func (e *Emitter) EmitRoleCreated(ctx context.Context, role *models.Role) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRoleCreated")
	defer span.End()

	event := RoleEvent{
		BaseEvent:      NewBaseEvent(EventTypeRoleCreated, role.TenantID),
		RoleID:         role.ID,
		NormalizedName: role.NormalizedName,
		Name:           role.Name,
		Disposition:    role.Disposition,
	}
	e.publish(ctx, role.NormalizedName, EventTypeRoleCreated, role.TenantID, event)
}

// EmitRoleUpdated emits a role.updated event
func (e *Emitter) EmitRoleUpdated(ctx context.Context, role *models.Role) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRoleUpdated")
	defer span.End()

	event := RoleEvent{
		BaseEvent:      NewBaseEvent(EventTypeRoleUpdated, role.TenantID),
		RoleID:         role.ID,
		NormalizedName: role.NormalizedName,
		Name:           role.Name,
		Disposition:    role.Disposition,
	}
	e.publish(ctx, role.NormalizedName, EventTypeRoleUpdated, role.TenantID, event)
}

// EmitRoleRenamed emits a role.renamed event carrying the old identity
func (e *Emitter) EmitRoleRenamed(ctx context.Context, role *models.Role, oldName string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRoleRenamed")
	defer span.End()

	event := RoleEvent{
		BaseEvent:      NewBaseEvent(EventTypeRoleRenamed, role.TenantID),
		RoleID:         role.ID,
		NormalizedName: role.NormalizedName,
		Name:           role.Name,
		OldName:        oldName,
	}
	e.publish(ctx, role.NormalizedName, EventTypeRoleRenamed, role.TenantID, event)
}

// EmitRoleDeleted emits a role.deleted event
func (e *Emitter) EmitRoleDeleted(ctx context.Context, tenantID, roleID, normalizedName string, hard bool) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRoleDeleted")
	defer span.End()

	event := RoleEvent{
		BaseEvent:      NewBaseEvent(EventTypeRoleDeleted, tenantID),
		RoleID:         roleID,
		NormalizedName: normalizedName,
		Hard:           hard,
	}
	e.publish(ctx, normalizedName, EventTypeRoleDeleted, tenantID, event)
}

// EmitRelationshipAdded emits a relationship.added event
func (e *Emitter) EmitRelationshipAdded(ctx context.Context, tenantID, source, target, relType string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRelationshipAdded")
	defer span.End()

	event := RelationshipEvent{
		BaseEvent:  NewBaseEvent(EventTypeRelationshipAdded, tenantID),
		SourceRole: source,
		TargetRole: target,
		Type:       relType,
	}
	e.publish(ctx, source, EventTypeRelationshipAdded, tenantID, event)
}

// EmitRelationshipDeleted emits a relationship.deleted event
func (e *Emitter) EmitRelationshipDeleted(ctx context.Context, tenantID, source, target, relType string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRelationshipDeleted")
	defer span.End()

	event := RelationshipEvent{
		BaseEvent:  NewBaseEvent(EventTypeRelationshipDeleted, tenantID),
		SourceRole: source,
		TargetRole: target,
		Type:       relType,
	}
	e.publish(ctx, source, EventTypeRelationshipDeleted, tenantID, event)
}

// EmitImportCommitted emits an import.committed event
func (e *Emitter) EmitImportCommitted(ctx context.Context, tenantID, mode, sourceTag string, created, updated, edges int) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitImportCommitted")
	defer span.End()

	event := ImportCommittedEvent{
		BaseEvent:          NewBaseEvent(EventTypeImportCommitted, tenantID),
		Mode:               mode,
		SourceTag:          sourceTag,
		RolesCreated:       created,
		RolesUpdated:       updated,
		RelationshipsAdded: edges,
	}
	e.publish(ctx, sourceTag, EventTypeImportCommitted, tenantID, event)
}

// EmitSyncCompleted emits a sync.completed event
func (e *Emitter) EmitSyncCompleted(ctx context.Context, tenantID, mergeMode string, result *models.SyncResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSyncCompleted")
	defer span.End()

	event := SyncCompletedEvent{
		BaseEvent: NewBaseEvent(EventTypeSyncCompleted, tenantID),
		MergeMode: mergeMode,
		Added:     result.Added,
		Updated:   result.Updated,
		Skipped:   result.Skipped,
		Conflicts: len(result.Conflicts),
	}
	e.publish(ctx, tenantID, EventTypeSyncCompleted, tenantID, event)
}

// EmitAdjudicationApplied emits an adjudication.applied event
func (e *Emitter) EmitAdjudicationApplied(ctx context.Context, tenantID string, suggested, applied int, threshold float64) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitAdjudicationApplied")
	defer span.End()

	event := AdjudicationAppliedEvent{
		BaseEvent: NewBaseEvent(EventTypeAdjudicationApplied, tenantID),
		Suggested: suggested,
		Applied:   applied,
		Threshold: threshold,
	}
	e.publish(ctx, tenantID, EventTypeAdjudicationApplied, tenantID, event)
}
