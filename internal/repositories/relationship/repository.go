package relationship

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/google/uuid"
)

// RelationshipRepository defines the interface for the typed edge store
type RelationshipRepository interface {
	Add(ctx context.Context, tenantID string, req models.CreateRelationshipRequest) error
	Delete(ctx context.Context, tenantID string, sourceRole, targetRole, relType string) error
	DeleteAllForRole(ctx context.Context, tenantID string, roleName string) error
	DeleteBySourceTag(ctx context.Context, tenantID string, sourceTag string) (int, error)
	Query(ctx context.Context, tenantID string, roleName, relType string) ([]models.Relationship, error)
	Stats(ctx context.Context, tenantID string) (*models.RelationshipStats, error)
	DB() database.DB
}

// Repository implements RelationshipRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new relationship repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "relationships"

var relationshipColumns = []string{
	"id", "tenant_id", "source_role", "target_role", "type",
	"weight", "shared_functions", "source_tag", "created_at", "updated_at",
}

// DB returns the underlying storage port.
func (r *Repository) DB() database.DB {
	return r.db
}

// Add stores a typed edge. Re-adding an existing (source, target, type) triple
// is a no-op success; self-loops are rejected.
func (r *Repository) Add(ctx context.Context, tenantID string, req models.CreateRelationshipRequest) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Add")
	defer span.End()

	source := normalizers.RoleName(req.SourceRole)
	target := normalizers.RoleName(req.TargetRole)

	if source == "" || target == "" {
		return &models.ValidationError{Field: "source_role", Reason: "both endpoint role names are required"}
	}
	if source == target {
		return &models.ValidationError{Field: "target_role", Reason: fmt.Sprintf("self-loop on %q is not allowed", source)}
	}
	if !models.IsValidRelationshipType(req.Type) {
		return &models.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown relationship type %q", req.Type)}
	}

	now := time.Now().UTC()

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(relationshipColumns...)
	sb.Values(
		uuid.New().String(), tenantID, source, target, req.Type,
		req.Weight, req.SharedFunctions, req.SourceTag, now, now,
	)
	database.OnConflictDoNothing(sb)

	query, args := sb.Build()

	exec := database.TxOrDB(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to add relationship")
		return fmt.Errorf("failed to add relationship: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id":   tenantID,
			"source_role": source,
			"target_role": target,
			"type":        req.Type,
		}).Info("added relationship")
	}

	return nil
}

// Delete removes the specific typed edge between a pair, or every edge between
// the pair when relType is empty.
func (r *Repository) Delete(ctx context.Context, tenantID string, sourceRole, targetRole, relType string) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Delete")
	defer span.End()

	source := normalizers.RoleName(sourceRole)
	target := normalizers.RoleName(targetRole)

	del := database.NewDeleteBuilder()
	del.DeleteFrom(tableName)
	del.Where(
		del.Equal("tenant_id", tenantID),
		del.Equal("source_role", source),
		del.Equal("target_role", target),
	)
	if relType != "" {
		del.Where(del.Equal("type", relType))
	}

	query, args := del.Build()

	exec := database.TxOrDB(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete relationship")
		return fmt.Errorf("failed to delete relationship: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":     tenantID,
		"source_role":   source,
		"target_role":   target,
		"type":          relType,
		"rows_affected": rowsAffected,
	}).Info("deleted relationships")

	return nil
}

// DeleteAllForRole prunes every edge touching a role. Used when a hard role
// delete opts into pruning dangling relationships.
func (r *Repository) DeleteAllForRole(ctx context.Context, tenantID string, roleName string) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.DeleteAllForRole")
	defer span.End()

	name := normalizers.RoleName(roleName)

	del := database.NewDeleteBuilder()
	del.DeleteFrom(tableName)
	del.Where(
		del.Equal("tenant_id", tenantID),
		del.Or(del.Equal("source_role", name), del.Equal("target_role", name)),
	)

	query, args := del.Build()

	exec := database.TxOrDB(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to prune relationships for role")
		return fmt.Errorf("failed to prune relationships for role: %w", err)
	}

	return nil
}

// DeleteBySourceTag clears edges written by a previous import of the same
// source, ahead of a re-import.
func (r *Repository) DeleteBySourceTag(ctx context.Context, tenantID string, sourceTag string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.DeleteBySourceTag")
	defer span.End()

	del := database.NewDeleteBuilder()
	del.DeleteFrom(tableName)
	del.Where(
		del.Equal("tenant_id", tenantID),
		del.Equal("source_tag", sourceTag),
	)

	query, args := del.Build()

	exec := database.TxOrDB(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to clear relationships by source tag")
		return 0, fmt.Errorf("failed to clear relationships by source tag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// Query returns edges matching the filters. An empty roleName matches every
// edge; an empty relType matches every type. Role filters match either endpoint.
func (r *Repository) Query(ctx context.Context, tenantID string, roleName, relType string) ([]models.Relationship, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Query")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(relationshipColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("tenant_id", tenantID))

	if roleName != "" {
		name := normalizers.RoleName(roleName)
		sb.Where(sb.Or(sb.Equal("source_role", name), sb.Equal("target_role", name)))
	}
	if relType != "" {
		sb.Where(sb.Equal("type", relType))
	}
	sb.OrderBy("source_role ASC", "target_role ASC", "type ASC")

	query, args := sb.Build()

	var items []models.Relationship
	exec := database.TxOrDB(ctx, r.db)
	if err := exec.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to query relationships")
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}

	return items, nil
}

// Stats aggregates edge counts by type.
func (r *Repository) Stats(ctx context.Context, tenantID string) (*models.RelationshipStats, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Stats")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("type", "COUNT(*) AS count")
	sb.From(tableName)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.GroupBy("type")

	query, args := sb.Build()

	exec := database.TxOrDB(ctx, r.db)
	rows, err := exec.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to aggregate relationship stats")
		return nil, fmt.Errorf("failed to aggregate relationship stats: %w", err)
	}
	defer rows.Close()

	stats := &models.RelationshipStats{ByType: make(map[string]int)}
	for rows.Next() {
		var relType string
		var count int
		if err := rows.Scan(&relType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan relationship stats: %w", err)
		}
		stats.ByType[relType] = count
		stats.Total += count
	}

	return stats, rows.Err()
}
