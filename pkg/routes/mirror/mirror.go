package mirror

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/relationship"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	graphpkg "github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Handler handles graph mirror endpoints. The mirror is an optional
// dependency, so every route degrades to 503 when it is not configured.
type Handler struct {
	mirror *graphpkg.Mirror
	logger ectologger.Logger
}

// NewHandler creates a new mirror handler
func NewHandler(mirror *graphpkg.Mirror, logger ectologger.Logger) *Handler {
	return &Handler{
		mirror: mirror,
		logger: logger,
	}
}

// Register registers the mirror routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/rebuild", h.Rebuild)
	g.GET("/neighborhood/:role", h.Neighborhood)
}

func (h *Handler) requireMirror(c echo.Context) (*graphpkg.Mirror, error) {
	if h != nil && h.mirror != nil {
		return h.mirror, nil
	}

	ctx := c.Request().Context()
	_, m, err := ectoinject.GetContext[*graphpkg.Mirror](ctx)
	if err != nil || m == nil {
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "graph mirror unavailable")
	}
	return m, nil
}

// Rebuild wipes and repopulates the tenant's mirror from the relational store
func (h *Handler) Rebuild(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mirror_handler.Rebuild")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	m, err := h.requireMirror(c)
	if err != nil {
		return err
	}

	ctx, roles, err := ectoinject.GetContext[role.RoleRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	ctx, relationships, err := ectoinject.GetContext[relationship.RelationshipRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	activeRoles, err := roles.ListActive(ctx, tenantID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list roles")
	}

	edges, err := relationships.Query(ctx, tenantID, "", "")
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list relationships")
	}

	if err := m.Rebuild(ctx, tenantID, activeRoles, edges); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to rebuild graph mirror")
	}

	return c.JSON(http.StatusOK, map[string]int{
		"nodes": len(activeRoles),
		"edges": len(edges),
	})
}

// Neighborhood returns role names within the given number of hops
func (h *Handler) Neighborhood(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mirror_handler.Neighborhood")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	roleName := c.Param("role")
	hops, _ := strconv.Atoi(c.QueryParam("hops"))
	if hops < 1 {
		hops = 1
	}
	if hops > 5 {
		hops = 5
	}

	m, err := h.requireMirror(c)
	if err != nil {
		return err
	}

	names, err := m.Neighborhood(ctx, tenantID, roleName, hops)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to query graph mirror")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"role":      roleName,
		"hops":      hops,
		"neighbors": names,
	})
}
