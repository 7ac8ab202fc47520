package relationship

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/relationship"
	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/events"
	graphpkg "github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/graphview"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers relationship store routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.DELETE("", Delete)
	g.GET("/stats", Stats)
	g.DELETE("/by-source/:tag", DeleteBySource)
}

// List returns relationships, optionally filtered by role and type
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.List")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	roleName := c.QueryParam("role")
	relType := c.QueryParam("type")

	ctx, repo, err := ectoinject.GetContext[relationship.RelationshipRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.Query(ctx, tenantID, roleName, relType)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list relationships")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items":       items,
		"total_count": len(items),
	})
}

// Create adds a relationship edge. Re-adding an existing edge is a no-op.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.Create")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateRelationshipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[relationship.RelationshipRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Add(ctx, tenantID, req); err != nil {
		if models.IsValidation(err) {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if models.IsNotFound(err) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to add relationship")
	}

	metrics.RelationshipsAdded.WithLabelValues(req.Type).Inc()
	afterMutation(ctx, tenantID,
		func(e *events.Emitter) {
			e.EmitRelationshipAdded(ctx, tenantID, req.SourceRole, req.TargetRole, req.Type)
		},
		func(m *graphpkg.Mirror) {
			_ = m.UpsertRelationship(ctx, &models.Relationship{
				TenantID:        tenantID,
				SourceRole:      normalizers.RoleName(req.SourceRole),
				TargetRole:      normalizers.RoleName(req.TargetRole),
				Type:            req.Type,
				Weight:          req.Weight,
				SharedFunctions: req.SharedFunctions,
				SourceTag:       req.SourceTag,
			})
		},
	)

	return c.NoContent(http.StatusCreated)
}

// Delete removes a single edge identified by source, target and type
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.Delete")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	source := c.QueryParam("source")
	target := c.QueryParam("target")
	relType := c.QueryParam("type")
	if source == "" || target == "" || relType == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "source, target and type are required")
	}

	ctx, repo, err := ectoinject.GetContext[relationship.RelationshipRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Delete(ctx, tenantID, source, target, relType); err != nil {
		if models.IsNotFound(err) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationship")
	}

	afterMutation(ctx, tenantID,
		func(e *events.Emitter) {
			e.EmitRelationshipDeleted(ctx, tenantID, source, target, relType)
		},
		func(m *graphpkg.Mirror) {
			_ = m.RemoveRelationship(ctx, tenantID, normalizers.RoleName(source), normalizers.RoleName(target), relType)
		},
	)

	return c.NoContent(http.StatusNoContent)
}

// Stats returns edge counts by type
func Stats(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.Stats")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, repo, err := ectoinject.GetContext[relationship.RelationshipRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	stats, err := repo.Stats(ctx, tenantID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get relationship stats")
	}

	return c.JSON(http.StatusOK, stats)
}

// DeleteBySource removes every edge written under an import source tag
func DeleteBySource(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "relationship_handler.DeleteBySource")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	tag := c.Param("tag")
	if tag == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "source tag is required")
	}

	ctx, repo, err := ectoinject.GetContext[relationship.RelationshipRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	deleted, err := repo.DeleteBySourceTag(ctx, tenantID, tag)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete relationships")
	}

	// Tag-scoped bulk deletes have no incremental mirror write; the mirror
	// catches up on the next rebuild.
	afterMutation(ctx, tenantID, nil, nil)

	return c.JSON(http.StatusOK, map[string]int{"deleted": deleted})
}

func afterMutation(ctx context.Context, tenantID string, emit func(*events.Emitter), mirror func(*graphpkg.Mirror)) {
	if emit != nil {
		if _, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
			emit(emitter)
		}
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
