package functioncategory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/google/uuid"
)

// FunctionCategoryRepository defines the interface for the category taxonomy
type FunctionCategoryRepository interface {
	Create(ctx context.Context, tenantID string, req models.CreateFunctionCategoryRequest) (*models.FunctionCategory, error)
	GetByCode(ctx context.Context, tenantID string, code string) (*models.FunctionCategory, error)
	ResolveCode(ctx context.Context, tenantID string, value string) (*models.FunctionCategory, error)
	List(ctx context.Context, tenantID string, includeInactive bool) ([]models.FunctionCategory, error)
	Update(ctx context.Context, tenantID string, code string, req models.UpdateFunctionCategoryRequest) (*models.FunctionCategory, error)
	RenameCode(ctx context.Context, tenantID string, req models.RenameCategoryCodeRequest) (*models.FunctionCategory, error)
	Deactivate(ctx context.Context, tenantID string, code string) error
	DB() database.DB
}

// Repository implements FunctionCategoryRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new function category repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "function_categories"
const tagTable = "role_function_tags"

var categoryColumns = []string{
	"id", "tenant_id", "code", "name", "parent_code", "color",
	"sort_order", "is_active", "created_at", "updated_at",
}

// DB returns the underlying storage port.
func (r *Repository) DB() database.DB {
	return r.db
}

// depth returns how deep a parent chain sits, counting the new node.
func (r *Repository) depth(ctx context.Context, tenantID string, parentCode *string) (int, error) {
	depth := 1
	code := parentCode
	for code != nil {
		parent, err := r.GetByCode(ctx, tenantID, *code)
		if err != nil {
			return 0, err
		}
		if parent == nil {
			return 0, &models.ValidationError{Field: "parent_code", Reason: fmt.Sprintf("parent category %q does not exist", *code)}
		}
		depth++
		code = parent.ParentCode
	}
	return depth, nil
}

// Create adds a category. The parent must exist (or be null) and the resulting
// tree may not exceed parent -> child -> grandchild.
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateFunctionCategoryRequest) (*models.FunctionCategory, error) {
	ctx, span := tracing.StartSpan(ctx, "FunctionCategoryRepository.Create")
	defer span.End()

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, &models.ValidationError{Field: "code", Reason: "category code is required"}
	}

	existing, err := r.GetByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &models.ConflictError{Resource: "function_category", Name: code, ConflictingID: existing.ID}
	}

	depth, err := r.depth(ctx, tenantID, req.ParentCode)
	if err != nil {
		return nil, err
	}
	if depth > models.MaxCategoryDepth {
		return nil, &models.ValidationError{Field: "parent_code", Reason: "category tree is limited to three levels"}
	}

	now := time.Now().UTC()
	id := uuid.New().String()

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(categoryColumns...)
	sb.Values(id, tenantID, code, req.Name, req.ParentCode, req.Color, req.SortOrder, true, now, now)

	query, args := sb.Build()

	exec := database.TxOrDB(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create function category")
		return nil, fmt.Errorf("failed to create function category: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        id,
		"tenant_id": tenantID,
		"code":      code,
	}).Info("created function category")

	return r.GetByCode(ctx, tenantID, code)
}

// GetByCode gets a category by exact code. Returns (nil, nil) when missing.
func (r *Repository) GetByCode(ctx context.Context, tenantID string, code string) (*models.FunctionCategory, error) {
	ctx, span := tracing.StartSpan(ctx, "FunctionCategoryRepository.GetByCode")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(categoryColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("code", code),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()

	var cat models.FunctionCategory
	exec := database.TxOrDB(ctx, r.db)
	err := exec.GetContext(ctx, &cat, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get function category")
		return nil, fmt.Errorf("failed to get function category: %w", err)
	}

	return &cat, nil
}

// ResolveCode matches a free-text value against codes and names, exact first,
// then case-insensitive. Unmatched values return (nil, nil) so importers can
// record them without auto-creating categories.
func (r *Repository) ResolveCode(ctx context.Context, tenantID string, value string) (*models.FunctionCategory, error) {
	ctx, span := tracing.StartSpan(ctx, "FunctionCategoryRepository.ResolveCode")
	defer span.End()

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if cat, err := r.GetByCode(ctx, tenantID, value); err != nil || cat != nil {
		return cat, err
	}

	sb := database.NewSelectBuilder()
	sb.Select(categoryColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_active", true),
		sb.Or(
			fmt.Sprintf("LOWER(code) = %s", sb.Var(strings.ToLower(value))),
			fmt.Sprintf("LOWER(name) = %s", sb.Var(strings.ToLower(value))),
		),
	)
	sb.Limit(1)

	query, args := sb.Build()

	var cat models.FunctionCategory
	exec := database.TxOrDB(ctx, r.db)
	err := exec.GetContext(ctx, &cat, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to resolve function category")
		return nil, fmt.Errorf("failed to resolve function category: %w", err)
	}

	return &cat, nil
}

// List lists categories ordered for display.
func (r *Repository) List(ctx context.Context, tenantID string, includeInactive bool) ([]models.FunctionCategory, error) {
	ctx, span := tracing.StartSpan(ctx, "FunctionCategoryRepository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(categoryColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("tenant_id", tenantID))
	if !includeInactive {
		sb.Where(sb.Equal("is_active", true))
	}
	sb.OrderBy("sort_order ASC", "code ASC")

	query, args := sb.Build()

	var items []models.FunctionCategory
	exec := database.TxOrDB(ctx, r.db)
	if err := exec.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list function categories")
		return nil, fmt.Errorf("failed to list function categories: %w", err)
	}

	return items, nil
}

// Update applies a partial patch to a category.
func (r *Repository) Update(ctx context.Context, tenantID string, code string, req models.UpdateFunctionCategoryRequest) (*models.FunctionCategory, error) {
	ctx, span := tracing.StartSpan(ctx, "FunctionCategoryRepository.Update")
	defer span.End()

	existing, err := r.GetByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &models.NotFoundError{Resource: "function_category", Key: code}
	}

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("updated_at", time.Now().UTC()))

	if req.Name != nil {
		sb.SetMore(sb.Assign("name", *req.Name))
	}
	if req.Color != nil {
		sb.SetMore(sb.Assign("color", *req.Color))
	}
	if req.SortOrder != nil {
		sb.SetMore(sb.Assign("sort_order", *req.SortOrder))
	}
	if req.IsActive != nil {
		sb.SetMore(sb.Assign("is_active", *req.IsActive))
	}

	sb.Where(
		sb.Equal("code", code),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()

	exec := database.TxOrDB(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update function category")
		return nil, fmt.Errorf("failed to update function category: %w", err)
	}

	return r.GetByCode(ctx, tenantID, code)
}

// RenameCode changes a category's code and cascades to child categories and
// role tags in the same transaction, or the rename is rejected.
func (r *Repository) RenameCode(ctx context.Context, tenantID string, req models.RenameCategoryCodeRequest) (*models.FunctionCategory, error) {
	ctx, span := tracing.StartSpan(ctx, "FunctionCategoryRepository.RenameCode")
	defer span.End()

	newCode := strings.TrimSpace(req.NewCode)
	if newCode == "" {
		return nil, &models.ValidationError{Field: "new_code", Reason: "category code is required"}
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	existing, err := r.GetByCode(ctx, tenantID, req.OldCode)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &models.NotFoundError{Resource: "function_category", Key: req.OldCode}
	}

	collision, err := r.GetByCode(ctx, tenantID, newCode)
	if err != nil {
		return nil, err
	}
	if collision != nil {
		return nil, &models.ConflictError{Resource: "function_category", Name: newCode, ConflictingID: collision.ID}
	}

	exec := database.TxOrDB(ctx, r.db)
	now := time.Now().UTC()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(ub.Assign("code", newCode), ub.Assign("updated_at", now))
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("code", req.OldCode))
	query, args := ub.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to rename category code: %w", err)
	}

	ub = database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(ub.Assign("parent_code", newCode), ub.Assign("updated_at", now))
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("parent_code", req.OldCode))
	query, args = ub.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to cascade rename to children: %w", err)
	}

	ub = database.NewUpdateBuilder()
	ub.Update(tagTable)
	ub.Set(ub.Assign("category_code", newCode))
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("category_code", req.OldCode))
	query, args = ub.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to cascade rename to role tags: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"old_code":  req.OldCode,
		"new_code":  newCode,
	}).Info("renamed function category code")

	return r.GetByCode(ctx, tenantID, newCode)
}

// Deactivate soft-deletes a category. History and tags stay valid.
func (r *Repository) Deactivate(ctx context.Context, tenantID string, code string) error {
	ctx, span := tracing.StartSpan(ctx, "FunctionCategoryRepository.Deactivate")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(ub.Assign("is_active", false), ub.Assign("updated_at", time.Now().UTC()))
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("code", code))

	query, args := ub.Build()

	exec := database.TxOrDB(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to deactivate function category")
		return fmt.Errorf("failed to deactivate function category: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "function_category", Key: code}
	}

	return nil
}
