package role

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/relationship"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/events"
	graphpkg "github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/graphview"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers role dictionary routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.GET("/by-name/:name", GetByName)
	g.PUT("/:id", Update)
	g.POST("/rename", Rename)
	g.DELETE("/:id", Delete)
}

// List returns roles for the tenant, paginated
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "role_handler.List")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	includeInactive := c.QueryParam("include_inactive") == "true"

	ctx, repo, err := ectoinject.GetContext[role.RoleRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, tenantID, page, pageSize, includeInactive)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list roles")
	}

	return c.JSON(http.StatusOK, models.RoleListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Create creates a new role
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "role_handler.Create")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateRoleRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[role.RoleRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Create(ctx, tenantID, req)
	if err != nil {
		if models.IsConflict(err) {
			return httperror.NewHTTPError(http.StatusConflict, err.Error())
		}
		if models.IsValidation(err) {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create role")
	}

	afterMutation(ctx, tenantID,
		func(e *events.Emitter) { e.EmitRoleCreated(ctx, result) },
		func(m *graphpkg.Mirror) { _ = m.UpsertRole(ctx, result) },
	)

	return c.JSON(http.StatusCreated, result)
}

// Get returns a single role by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "role_handler.Get")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[role.RoleRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get role")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "role not found")
	}

	return c.JSON(http.StatusOK, result)
}

// GetByName returns an active role by its normalized name
func GetByName(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "role_handler.GetByName")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	name := c.Param("name")

	ctx, repo, err := ectoinject.GetContext[role.RoleRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByName(ctx, tenantID, name)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get role")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "role not found")
	}

	return c.JSON(http.StatusOK, result)
}

// Update patches a role
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "role_handler.Update")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")

	var req models.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[role.RoleRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Update(ctx, tenantID, id, req)
	if err != nil {
		if models.IsConflict(err) {
			return httperror.NewHTTPError(http.StatusConflict, err.Error())
		}
		if models.IsValidation(err) {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update role")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "role not found")
	}

	afterMutation(ctx, tenantID,
		func(e *events.Emitter) { e.EmitRoleUpdated(ctx, result) },
		func(m *graphpkg.Mirror) { _ = m.UpsertRole(ctx, result) },
	)

	return c.JSON(http.StatusOK, result)
}

// Rename changes a role's display name, optionally merging into an
// existing role when the new name collides
func Rename(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "role_handler.Rename")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.RenameRoleRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[role.RoleRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	// The old identity is gone after the rename; capture it for the mirror.
	old, err := repo.GetByName(ctx, tenantID, req.OldName)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get role")
	}

	result, err := repo.Rename(ctx, tenantID, req)
	if err != nil {
		if models.IsConflict(err) {
			return httperror.NewHTTPError(http.StatusConflict, err.Error())
		}
		if models.IsNotFound(err) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to rename role")
	}

	afterMutation(ctx, tenantID,
		func(e *events.Emitter) { e.EmitRoleRenamed(ctx, result, req.OldName) },
		func(m *graphpkg.Mirror) {
			if old == nil {
				return
			}
			if result.ID == old.ID {
				_ = m.RenameRole(ctx, tenantID, old.NormalizedName, result.NormalizedName, result.Name)
				return
			}
			// Merged: the old node folds into the target. Its edges were
			// rewritten in Postgres; a rebuild picks them up in the mirror.
			_ = m.RemoveRole(ctx, tenantID, old.NormalizedName)
			_ = m.UpsertRole(ctx, result)
		},
	)

	return c.JSON(http.StatusOK, result)
}

// Delete deactivates a role, or removes it entirely with ?hard=true
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "role_handler.Delete")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")
	hard := c.QueryParam("hard") == "true"

	ctx, repo, err := ectoinject.GetContext[role.RoleRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get role")
	}
	if existing == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "role not found")
	}

	if hard {
		// A hard delete prunes the role's edges with it, in one transaction.
		ctx, relRepo, err := ectoinject.GetContext[relationship.RelationshipRepository](ctx)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
		}

		txCtx, tx, err := repo.DB().GetTx(ctx, nil)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete role")
		}
		defer tx.Rollback(txCtx)

		if err := relRepo.DeleteAllForRole(txCtx, tenantID, existing.NormalizedName); err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete role")
		}
		if err := repo.Delete(txCtx, tenantID, id, true); err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete role")
		}
		if err := tx.Commit(txCtx); err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete role")
		}
	} else if err := repo.Delete(ctx, tenantID, id, false); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete role")
	}

	afterMutation(ctx, tenantID,
		func(e *events.Emitter) {
			e.EmitRoleDeleted(ctx, tenantID, id, existing.NormalizedName, hard)
		},
		func(m *graphpkg.Mirror) { _ = m.RemoveRole(ctx, tenantID, existing.NormalizedName) },
	)

	return c.NoContent(http.StatusNoContent)
}

// afterMutation emits the change event, pushes the write into the graph
// mirror, and drops cached graph views. All three are best-effort: a mutation
// that committed is never failed for any of them, and a deployment without
// Kafka or the graph database simply skips those steps.
func afterMutation(ctx context.Context, tenantID string, emit func(*events.Emitter), mirror func(*graphpkg.Mirror)) {
	if _, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		emit(emitter)
	}

	if mirror != nil {
		if _, m, err := ectoinject.GetContext[*graphpkg.Mirror](ctx); err == nil {
			mirror(m)
		}
	}

	if _, views, err := ectoinject.GetContext[*graphview.Service](ctx); err == nil {
		views.Invalidate(ctx, tenantID)
	}
}
