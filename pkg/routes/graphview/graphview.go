package graphview

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/graphview"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Register registers derived graph view routes
func Register(g *echo.Group) {
	g.GET("/hierarchy", Hierarchy)
	g.GET("/clusters", Clusters)
	g.GET("/clusters/:name/roots", ClusterRoots)
	g.GET("/neighborhood/:role", Neighborhood)
	g.GET("/graph", Graph)
}

// Hierarchy returns the cycle-safe hierarchy tree
func Hierarchy(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "graphview_handler.Hierarchy")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*graphview.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get graph view service")
	}

	tree, err := svc.GetHierarchy(ctx, tenantID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to build hierarchy")
	}

	return c.JSON(http.StatusOK, tree)
}

// Clusters returns connected-component clusters
func Clusters(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "graphview_handler.Clusters")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*graphview.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get graph view service")
	}

	clusters, err := svc.GetClusters(ctx, tenantID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to build clusters")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items":       clusters,
		"total_count": len(clusters),
	})
}

// ClusterRoots returns the entry points of a single cluster
func ClusterRoots(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "graphview_handler.ClusterRoots")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	name := c.Param("name")
	topN, _ := strconv.Atoi(c.QueryParam("top"))
	if topN < 1 {
		topN = 3
	}

	ctx, svc, err := ectoinject.GetContext[*graphview.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get graph view service")
	}

	roots, err := svc.GetClusterRoots(ctx, tenantID, name, topN)
	if err != nil {
		if models.IsNotFound(err) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve cluster roots")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"cluster": name,
		"roots":   roots,
	})
}

// Neighborhood returns a role's immediate parents, children and peers
func Neighborhood(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "graphview_handler.Neighborhood")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	roleName := c.Param("role")

	ctx, svc, err := ectoinject.GetContext[*graphview.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get graph view service")
	}

	hood, err := svc.GetNeighborhood(ctx, tenantID, roleName)
	if err != nil {
		if models.IsNotFound(err) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to build neighborhood")
	}

	return c.JSON(http.StatusOK, hood)
}

// Graph returns the full node-link view, optionally capped and filtered
func Graph(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "graphview_handler.Graph")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	maxNodes, _ := strconv.Atoi(c.QueryParam("max_nodes"))
	minWeight, _ := strconv.Atoi(c.QueryParam("min_weight"))

	ctx, svc, err := ectoinject.GetContext[*graphview.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get graph view service")
	}

	graph, err := svc.GetGraph(ctx, tenantID, maxNodes, minWeight)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to build graph")
	}

	return c.JSON(http.StatusOK, graph)
}
