package role

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	reqctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/google/uuid"
)

// RoleRepository defines the interface for role dictionary operations
type RoleRepository interface {
	Create(ctx context.Context, tenantID string, req models.CreateRoleRequest) (*models.Role, error)
	GetByID(ctx context.Context, tenantID string, id string) (*models.Role, error)
	GetByName(ctx context.Context, tenantID string, name string) (*models.Role, error)
	List(ctx context.Context, tenantID string, page, pageSize int, includeInactive bool) ([]models.Role, int, error)
	ListActive(ctx context.Context, tenantID string) ([]models.Role, error)
	Update(ctx context.Context, tenantID string, id string, req models.UpdateRoleRequest) (*models.Role, error)
	Rename(ctx context.Context, tenantID string, req models.RenameRoleRequest) (*models.Role, error)
	Delete(ctx context.Context, tenantID string, id string, hard bool) error
	BatchAdjudicate(ctx context.Context, tenantID string, decisions []models.AdjudicationDecision) (*models.BatchAdjudicateResult, error)
	IncrementMentionStats(ctx context.Context, tenantID string, name string, mentions, documents, statements int) error
	DeactivateAll(ctx context.Context, tenantID string) (int, error)
	DB() database.DB
}

// Repository implements RoleRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new role repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "roles"
const relationshipTable = "relationships"
const tagTable = "role_function_tags"

var roleColumns = []string{
	"id", "tenant_id", "normalized_name", "name", "category", "role_type",
	"disposition", "is_deliverable", "is_active", "baselined", "aliases",
	"org_group", "hierarchy_level", "description", "notes", "source",
	"mention_count", "document_count", "statement_count",
	"created_by", "created_at", "updated_by", "updated_at",
}

// DB returns the underlying storage port so services can open transactions.
func (r *Repository) DB() database.DB {
	return r.db
}

// Create adds a role to the dictionary. It fails with a ConflictError when an
// active role already holds the same normalized name.
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateRoleRequest) (*models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.Create")
	defer span.End()

	normalized := normalizers.RoleName(req.Name)
	if normalized == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "role name is required"}
	}

	existing, err := r.GetByName(ctx, tenantID, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &models.ConflictError{Resource: "role", Name: req.Name, ConflictingID: existing.ID}
	}

	now := time.Now().UTC()
	id := uuid.New().String()

	disposition := req.Disposition
	if disposition == "" {
		disposition = models.DispositionTBD
	}
	source := req.Source
	if source == "" {
		source = models.SourceManual
	}
	userID := reqctx.GetUserID(ctx)

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(roleColumns...)
	sb.Values(
		id, tenantID, normalized, req.Name, req.Category, req.RoleType,
		disposition, req.IsDeliverable, true, req.Baselined, req.Aliases,
		req.OrgGroup, req.HierarchyLevel, req.Description, req.Notes, source,
		0, 0, 0,
		userID, now, userID, now,
	)

	query, args := sb.Build()

	exec := database.TxOrDB(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create role")
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":              id,
		"tenant_id":       tenantID,
		"normalized_name": normalized,
		"source":          source,
	}).Info("created role")

	return r.GetByID(ctx, tenantID, id)
}

// GetByID gets a role by ID, active or not. Returns (nil, nil) when missing.
func (r *Repository) GetByID(ctx context.Context, tenantID string, id string) (*models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(roleColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()

	var role models.Role
	exec := database.TxOrDB(ctx, r.db)
	err := exec.GetContext(ctx, &role, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get role by ID")
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &role, nil
}

// GetByName gets the active role holding a normalized name. The input is
// normalized before lookup. Returns (nil, nil) when no active role holds it.
func (r *Repository) GetByName(ctx context.Context, tenantID string, name string) (*models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.GetByName")
	defer span.End()

	normalized := normalizers.RoleName(name)

	sb := database.NewSelectBuilder()
	sb.Select(roleColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("normalized_name", normalized),
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_active", true),
	)

	query, args := sb.Build()

	var role models.Role
	exec := database.TxOrDB(ctx, r.db)
	err := exec.GetContext(ctx, &role, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get role by name")
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &role, nil
}

// List lists roles for a tenant with pagination.
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int, includeInactive bool) ([]models.Role, int, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	exec := database.TxOrDB(ctx, r.db)

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	countSb.Where(countSb.Equal("tenant_id", tenantID))
	if !includeInactive {
		countSb.Where(countSb.Equal("is_active", true))
	}
	countQuery, countArgs := countSb.Build()

	var totalCount int
	if err := exec.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count roles")
		return nil, 0, fmt.Errorf("failed to count roles: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(roleColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("tenant_id", tenantID))
	if !includeInactive {
		sb.Where(sb.Equal("is_active", true))
	}
	sb.OrderBy("normalized_name ASC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.Role
	if err := exec.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list roles")
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}

	return items, totalCount, nil
}

// ListActive returns every active role for a tenant, unpaginated. Used by the
// graph builder and sync, which need the full set.
func (r *Repository) ListActive(ctx context.Context, tenantID string) ([]models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.ListActive")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(roleColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_active", true),
	)
	sb.OrderBy("normalized_name ASC")

	query, args := sb.Build()

	var items []models.Role
	exec := database.TxOrDB(ctx, r.db)
	if err := exec.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list active roles")
		return nil, fmt.Errorf("failed to list active roles: %w", err)
	}

	return items, nil
}

// Update applies a partial patch and stamps updated_by/updated_at.
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateRoleRequest) (*models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.Update")
	defer span.End()

	existing, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &models.NotFoundError{Resource: "role", Key: id}
	}

	if req.Name != nil && normalizers.RoleName(*req.Name) != existing.NormalizedName {
		return nil, &models.ValidationError{Field: "name", Reason: "changing the identity requires a rename"}
	}

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("updated_at", time.Now().UTC()),
		sb.Assign("updated_by", reqctx.GetUserID(ctx)),
	)

	if req.Name != nil {
		sb.SetMore(sb.Assign("name", *req.Name))
	}
	if req.Category != nil {
		sb.SetMore(sb.Assign("category", *req.Category))
	}
	if req.RoleType != nil {
		sb.SetMore(sb.Assign("role_type", *req.RoleType))
	}
	if req.Disposition != nil {
		sb.SetMore(sb.Assign("disposition", *req.Disposition))
	}
	if req.IsDeliverable != nil {
		sb.SetMore(sb.Assign("is_deliverable", *req.IsDeliverable))
	}
	if req.Baselined != nil {
		sb.SetMore(sb.Assign("baselined", *req.Baselined))
	}
	if req.Aliases != nil {
		sb.SetMore(sb.Assign("aliases", *req.Aliases))
	}
	if req.OrgGroup != nil {
		sb.SetMore(sb.Assign("org_group", *req.OrgGroup))
	}
	if req.HierarchyLevel != nil {
		sb.SetMore(sb.Assign("hierarchy_level", *req.HierarchyLevel))
	}
	if req.Description != nil {
		sb.SetMore(sb.Assign("description", *req.Description))
	}
	if req.Notes != nil {
		sb.SetMore(sb.Assign("notes", *req.Notes))
	}

	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()

	exec := database.TxOrDB(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update role")
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return r.GetByID(ctx, tenantID, id)
}

// Rename changes a role's identity key. When the target identity already
// exists as an active role the rename fails with a RenameConflictError unless
// AllowMerge is set, in which case the old identity is folded into the target.
// The role row and every relationship and tag referencing the old name are
// rewritten in one transaction.
func (r *Repository) Rename(ctx context.Context, tenantID string, req models.RenameRoleRequest) (*models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.Rename")
	defer span.End()

	oldNorm := normalizers.RoleName(req.OldName)
	newNorm := normalizers.RoleName(req.NewName)
	if newNorm == "" {
		return nil, &models.ValidationError{Field: "new_name", Reason: "role name is required"}
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	source, err := r.GetByName(ctx, tenantID, oldNorm)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, &models.NotFoundError{Resource: "role", Key: req.OldName}
	}

	if oldNorm == newNorm {
		// Display-name only change, no identity move.
		updated, err := r.Update(ctx, tenantID, source.ID, models.UpdateRoleRequest{Name: &req.NewName})
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return updated, nil
	}

	target, err := r.GetByName(ctx, tenantID, newNorm)
	if err != nil {
		return nil, err
	}

	var result *models.Role
	if target != nil {
		if !req.AllowMerge {
			return nil, &models.RenameConflictError{OldName: req.OldName, NewName: req.NewName, ExistingID: target.ID}
		}
		result, err = r.mergeInto(ctx, tenantID, source, target)
	} else {
		result, err = r.moveIdentity(ctx, tenantID, source, req.NewName, newNorm)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"old_name":  oldNorm,
		"new_name":  newNorm,
		"merged":    target != nil,
	}).Info("renamed role")

	return result, nil
}

// moveIdentity rewrites the role row's key plus every dependent relationship
// and tag row. Runs inside the caller's transaction.
func (r *Repository) moveIdentity(ctx context.Context, tenantID string, source *models.Role, newName, newNorm string) (*models.Role, error) {
	exec := database.TxOrDB(ctx, r.db)
	now := time.Now().UTC()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("normalized_name", newNorm),
		sb.Assign("name", newName),
		sb.Assign("source", models.SourceRename),
		sb.Assign("updated_at", now),
		sb.Assign("updated_by", reqctx.GetUserID(ctx)),
	)
	sb.Where(sb.Equal("id", source.ID), sb.Equal("tenant_id", tenantID))
	query, args := sb.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to rename role row: %w", err)
	}

	if err := r.rewriteReferences(ctx, tenantID, source.NormalizedName, newNorm); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, tenantID, source.ID)
}

/// mergeInto folds the source identity into an existing target: the target
// absorbs the source's aliases and description, dependent rows are rewritten
// (dropping would-be duplicates and self-loops first), and the source row is
// soft-deleted. Runs inside the caller's transaction.
func (r *Repository) mergeInto(ctx context.Context, tenantID string, source, target *models.Role) (*models.Role, error) {
	exec := database.TxOrDB(ctx, r.db)
	oldNorm := source.NormalizedName
	newNorm := target.NormalizedName

	// Edges between the pair would become self-loops after the rewrite.
	del := database.NewDeleteBuilder()
	del.DeleteFrom(relationshipTable)
	del.Where(
		del.Equal("tenant_id", tenantID),
		del.Or(
			del.And(del.Equal("source_role", oldNorm), del.Equal("target_role", newNorm)),
			del.And(del.Equal("source_role", newNorm), del.Equal("target_role", oldNorm)),
		),
	)
	query, args := del.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to drop self-loop edges: %w", err)
	}

	// Edges the target already holds would violate the triple uniqueness.
	dupSQL := fmt.Sprintf(`
		DELETE FROM %s r
		WHERE r.tenant_id = $1 AND r.source_role = $2
		  AND EXISTS (
			SELECT 1 FROM %s d
			WHERE d.tenant_id = r.tenant_id AND d.source_role = $3
			  AND d.target_role = r.target_role AND d.type = r.type
		  )`, relationshipTable, relationshipTable)
	if _, err := exec.ExecContext(ctx, dupSQL, tenantID, oldNorm, newNorm); err != nil {
		return nil, fmt.Errorf("failed to drop duplicate source edges: %w", err)
	}
	dupSQL = fmt.Sprintf(`
		DELETE FROM %s r
		WHERE r.tenant_id = $1 AND r.target_role = $2
		  AND EXISTS (
			SELECT 1 FROM %s d
			WHERE d.tenant_id = r.tenant_id AND d.target_role = $3
			  AND d.source_role = r.source_role AND d.type = r.type
		  )`, relationshipTable, relationshipTable)
	if _, err := exec.ExecContext(ctx, dupSQL, tenantID, oldNorm, newNorm); err != nil {
		return nil, fmt.Errorf("failed to drop duplicate target edges: %w", err)
	}

	dupTagSQL := fmt.Sprintf(`
		DELETE FROM %s t
		WHERE t.tenant_id = $1 AND t.role_name = $2
		  AND EXISTS (
			SELECT 1 FROM %s d
			WHERE d.tenant_id = t.tenant_id AND d.role_name = $3
			  AND d.category_code = t.category_code
		  )`, tagTable, tagTable)
	if _, err := exec.ExecContext(ctx, dupTagSQL, tenantID, oldNorm, newNorm); err != nil {
		return nil, fmt.Errorf("failed to drop duplicate tags: %w", err)
	}

	if err := r.rewriteReferences(ctx, tenantID, oldNorm, newNorm); err != nil {
		return nil, err
	}

	// Target absorbs the source identity as an alias.
	aliases := target.Aliases
	if !aliases.Contains(source.Name) {
		aliases = append(aliases, source.Name)
	}
	for _, a := range source.Aliases {
		if !aliases.Contains(a) {
			aliases = append(aliases, a)
		}
	}
	patch := models.UpdateRoleRequest{Aliases: &aliases}
	if target.Description == "" && source.Description != "" {
		patch.Description = &source.Description
	}
	if _, err := r.Update(ctx, tenantID, target.ID, patch); err != nil {
		return nil, err
	}

	if err := r.Delete(ctx, tenantID, source.ID, false); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, tenantID, target.ID)
}

// rewriteReferences repoints relationship and tag rows from one normalized
// name to another.
func (r *Repository) rewriteReferences(ctx context.Context, tenantID, oldNorm, newNorm string) error {
	exec := database.TxOrDB(ctx, r.db)

	for _, col := range []string{"source_role", "target_role"} {
		ub := database.NewUpdateBuilder()
		ub.Update(relationshipTable)
		ub.Set(ub.Assign(col, newNorm), ub.Assign("updated_at", time.Now().UTC()))
		ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal(col, oldNorm))
		query, args := ub.Build()
		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to rewrite relationship %s: %w", col, err)
		}
	}

	ub := database.NewUpdateBuilder()
	ub.Update(tagTable)
	ub.Set(ub.Assign("role_name", newNorm))
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("role_name", oldNorm))
	query, args := ub.Build()
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to rewrite role tags: %w", err)
	}

	return nil
}

// Delete soft-deletes by default (is_active=false, dependent rows stay valid).
// A hard delete removes the row permanently; pruning dangling relationships is
// the caller's decision.
func (r *Repository) Delete(ctx context.Context, tenantID string, id string, hard bool) error {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.Delete")
	defer span.End()

	exec := database.TxOrDB(ctx, r.db)

	var query string
	var args []any
	if hard {
		del := database.NewDeleteBuilder()
		del.DeleteFrom(tableName)
		del.Where(del.Equal("id", id), del.Equal("tenant_id", tenantID))
		query, args = del.Build()
	} else {
		ub := database.NewUpdateBuilder()
		ub.Update(tableName)
		ub.Set(
			ub.Assign("is_active", false),
			ub.Assign("updated_at", time.Now().UTC()),
			ub.Assign("updated_by", reqctx.GetUserID(ctx)),
		)
		ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID))
		query, args = ub.Build()
	}

	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete role")
		return fmt.Errorf("failed to delete role: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "role", Key: id}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        id,
		"tenant_id": tenantID,
		"hard":      hard,
	}).Info("deleted role")

	return nil
}

// BatchAdjudicate applies N independent add-or-update decisions in one
// transaction. Items are validated before their writes, so a bad item is
// collected as an error and skipped while the rest commit.
func (r *Repository) BatchAdjudicate(ctx context.Context, tenantID string, decisions []models.AdjudicationDecision) (*models.BatchAdjudicateResult, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.BatchAdjudicate")
	defer span.End()

	result := &models.BatchAdjudicateResult{Total: len(decisions)}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Names claimed by rename decisions elsewhere in the batch. An add-or-update
	// colliding with one of these fails as an item error rather than racing the
	// rename for the identity.
	renameTargets := make(map[string]int)
	for i, d := range decisions {
		if d.RenameTo != "" {
			renameTargets[normalizers.RoleName(d.RenameTo)] = i
		}
	}

	for i, d := range decisions {
		if j, ok := renameTargets[normalizers.RoleName(d.RoleName)]; ok && j != i && d.RenameTo == "" {
			result.Errors = append(result.Errors, models.BatchItemError{
				Index: i,
				Item:  d.RoleName,
				Error: (&models.ConflictError{Resource: "role", Name: d.RoleName, ConflictingID: fmt.Sprintf("rename target of item %d", j)}).Error(),
			})
			continue
		}
		if err := r.applyDecision(ctx, tenantID, d); err != nil {
			result.Errors = append(result.Errors, models.BatchItemError{
				Index: i,
				Item:  d.RoleName,
				Error: err.Error(),
			})
			continue
		}
		result.Processed++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"processed": result.Processed,
		"total":     result.Total,
		"errors":    len(result.Errors),
	}).Info("batch adjudication complete")

	return result, nil
}

// applyDecision runs one add-or-update. Validation happens before any write so
// a failure here leaves the shared transaction clean.
func (r *Repository) applyDecision(ctx context.Context, tenantID string, d models.AdjudicationDecision) error {
	if normalizers.RoleName(d.RoleName) == "" {
		return &models.ValidationError{Field: "role_name", Reason: "role name is required"}
	}

	disposition := d.Disposition
	isDeliverable := d.IsDeliverable
	switch d.Status {
	case "confirmed":
		if disposition == "" {
			disposition = models.DispositionSanctioned
		}
	case "deliverable":
		isDeliverable = true
	case "", "pending":
		// pending keeps the dictionary defaults
	default:
		return &models.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", d.Status)}
	}

	if d.RenameTo != "" {
		_, err := r.Rename(ctx, tenantID, models.RenameRoleRequest{OldName: d.RoleName, NewName: d.RenameTo})
		return err
	}

	existing, err := r.GetByName(ctx, tenantID, d.RoleName)
	if err != nil {
		return err
	}

	if existing == nil {
		_, err := r.Create(ctx, tenantID, models.CreateRoleRequest{
			Name:          d.RoleName,
			Category:      d.Category,
			Disposition:   disposition,
			IsDeliverable: isDeliverable,
			Aliases:       d.Aliases,
			Description:   d.Description,
			Notes:         d.Notes,
			Source:        models.SourceAdjudication,
		})
		return err
	}

	patch := models.UpdateRoleRequest{}
	if disposition != "" {
		patch.Disposition = &disposition
	}
	if isDeliverable {
		patch.IsDeliverable = &isDeliverable
	}
	if d.Category != "" {
		patch.Category = &d.Category
	}
	if d.Description != "" && existing.Description == "" {
		patch.Description = &d.Description
	}
	if d.Notes != "" {
		patch.Notes = &d.Notes
	}
	_, err = r.Update(ctx, tenantID, existing.ID, patch)
	return err
}

// IncrementMentionStats bumps the mention bookkeeping for an active role.
func (r *Repository) IncrementMentionStats(ctx context.Context, tenantID string, name string, mentions, documents, statements int) error {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.IncrementMentionStats")
	defer span.End()

	normalized := normalizers.RoleName(name)

	query := fmt.Sprintf(`
		UPDATE %s
		SET mention_count = mention_count + $1,
		    document_count = document_count + $2,
		    statement_count = statement_count + $3,
		    updated_at = $4
		WHERE tenant_id = $5 AND normalized_name = $6 AND is_active = true`, tableName)

	exec := database.TxOrDB(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, mentions, documents, statements, time.Now().UTC(), tenantID, normalized); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to increment mention stats")
		return fmt.Errorf("failed to increment mention stats: %w", err)
	}

	return nil
}

// DeactivateAll soft-deletes every active role for a tenant. Used by the
// replace_all sync mode.
func (r *Repository) DeactivateAll(ctx context.Context, tenantID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.DeactivateAll")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(tableName)
	ub.Set(
		ub.Assign("is_active", false),
		ub.Assign("updated_at", time.Now().UTC()),
		ub.Assign("updated_by", reqctx.GetUserID(ctx)),
	)
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("is_active", true))

	query, args := ub.Build()

	exec := database.TxOrDB(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to deactivate roles")
		return 0, fmt.Errorf("failed to deactivate roles: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}
