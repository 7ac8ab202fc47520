package roletag

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

// RoleTagRepository defines the interface for role-to-category assignments
type RoleTagRepository interface {
	Assign(ctx context.Context, tenantID string, tag models.RoleFunctionTag) error
	ListForRole(ctx context.Context, tenantID string, roleName string) ([]models.RoleFunctionTag, error)
	ListAll(ctx context.Context, tenantID string) ([]models.RoleFunctionTag, error)
	PrimaryTags(ctx context.Context, tenantID string) (map[string]string, error)
	Delete(ctx context.Context, tenantID string, roleName string, categoryCode string) error
	DeleteBySourceTag(ctx context.Context, tenantID string, sourceTag string) (int64, error)
}

// Repository implements RoleTagRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new role tag repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "role_function_tags"

var tagColumns = []string{
	"id", "tenant_id", "role_name", "category_code", "assigned_by",
	"source_tag", "created_at",
}

// Assign tags a role with a category. Re-assigning the same pair is a no-op.
func (r *Repository) Assign(ctx context.Context, tenantID string, tag models.RoleFunctionTag) error {
	ctx, span := tracing.StartSpan(ctx, "RoleTagRepository.Assign")
	defer span.End()

	roleName := normalizers.RoleName(tag.RoleName)
	if roleName == "" {
		return &models.ValidationError{Field: "role_name", Reason: "role name is required"}
	}
	if tag.CategoryCode == "" {
		return &models.ValidationError{Field: "category_code", Reason: "category code is required"}
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName)
	ib.Cols(tagColumns...)
	ib.Values(uuid.New().String(), tenantID, roleName, tag.CategoryCode, tag.AssignedBy, tag.SourceTag, time.Now().UTC())
	database.OnConflictDoNothing(ib)

	query, args := ib.Build()

	exec := database.TxOrDB(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to assign function tag")
		return fmt.Errorf("failed to assign function tag: %w", err)
	}

	if rowsAffected, _ := result.RowsAffected(); rowsAffected > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id":     tenantID,
			"role_name":     roleName,
			"category_code": tag.CategoryCode,
		}).Info("assigned function tag")
	}

	return nil
}

// ListForRole lists tags on a role, oldest first.
func (r *Repository) ListForRole(ctx context.Context, tenantID string, roleName string) ([]models.RoleFunctionTag, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleTagRepository.ListForRole")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(tagColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("role_name", normalizers.RoleName(roleName)),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var tags []models.RoleFunctionTag
	exec := database.TxOrDB(ctx, r.db)
	if err := exec.SelectContext(ctx, &tags, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list function tags")
		return nil, fmt.Errorf("failed to list function tags: %w", err)
	}

	return tags, nil
}

// ListAll lists every tag for a tenant.
func (r *Repository) ListAll(ctx context.Context, tenantID string) ([]models.RoleFunctionTag, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleTagRepository.ListAll")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(tagColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("role_name ASC", "created_at ASC")

	query, args := sb.Build()

	var tags []models.RoleFunctionTag
	exec := database.TxOrDB(ctx, r.db)
	if err := exec.SelectContext(ctx, &tags, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list function tags")
		return nil, fmt.Errorf("failed to list function tags: %w", err)
	}

	return tags, nil
}

// PrimaryTags maps each tagged role to its earliest category assignment.
// Graph grouping uses this when a role has no directional parent.
func (r *Repository) PrimaryTags(ctx context.Context, tenantID string) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleTagRepository.PrimaryTags")
	defer span.End()

	tags, err := r.ListAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	primary := make(map[string]string, len(tags))
	for _, tag := range tags {
		if _, ok := primary[tag.RoleName]; !ok {
			primary[tag.RoleName] = tag.CategoryCode
		}
	}

	return primary, nil
}

// Delete removes a single role/category assignment.
func (r *Repository) Delete(ctx context.Context, tenantID string, roleName string, categoryCode string) error {
	ctx, span := tracing.StartSpan(ctx, "RoleTagRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName)
	db.Where(
		db.Equal("tenant_id", tenantID),
		db.Equal("role_name", normalizers.RoleName(roleName)),
		db.Equal("category_code", categoryCode),
	)

	query, args := db.Build()

	exec := database.TxOrDB(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete function tag")
		return fmt.Errorf("failed to delete function tag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "role_function_tag", Key: roleName + "/" + categoryCode}
	}

	return nil
}

// DeleteBySourceTag clears tags created by a given import run.
func (r *Repository) DeleteBySourceTag(ctx context.Context, tenantID string, sourceTag string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleTagRepository.DeleteBySourceTag")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName)
	db.Where(
		db.Equal("tenant_id", tenantID),
		db.Equal("source_tag", sourceTag),
	)

	query, args := db.Build()

	exec := database.TxOrDB(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete function tags by source tag")
		return 0, fmt.Errorf("failed to delete function tags by source tag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}
