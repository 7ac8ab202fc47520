package hierarchyimport

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graphview"
	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// PreviewRequest carries the sheet rows to dry-run
type PreviewRequest struct {
	Rows []hierarchy.SheetRow `json:"rows" validate:"required,min=1"`
}

// CommitRequest carries the sheet rows plus write options
type CommitRequest struct {
	Rows          []hierarchy.SheetRow `json:"rows" validate:"required,min=1"`
	SourceTag     string               `json:"source_tag" validate:"required"`
	ClearPrevious bool                 `json:"clear_previous,omitempty"`
	AssignedBy    string               `json:"assigned_by,omitempty"`
}

// Register registers hierarchy import routes
func Register(g *echo.Group) {
	g.POST("/preview", Preview)
	g.POST("/commit", Commit)
}

// Preview parses the sheet and reports what a commit would write,
// without writing anything
func Preview(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "hierarchyimport_handler.Preview")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, importer, err := ectoinject.GetContext[*hierarchy.Importer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get importer")
	}

	preview, err := importer.Preview(ctx, tenantID, req.Rows)
	if err != nil {
		if models.IsValidation(err) {
			return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to preview import")
	}

	return c.JSON(http.StatusOK, preview)
}

// Commit parses the sheet and writes roles, relationships and tags in a
// single transaction
func Commit(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "hierarchyimport_handler.Commit")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req CommitRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, importer, err := ectoinject.GetContext[*hierarchy.Importer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get importer")
	}

	start := time.Now()
	result, err := importer.Commit(ctx, tenantID, req.Rows, hierarchy.CommitOptions{
		SourceTag:     req.SourceTag,
		ClearPrevious: req.ClearPrevious,
		AssignedBy:    req.AssignedBy,
	})
	if err != nil {
		if models.IsValidation(err) {
			metrics.ImportsTotal.WithLabelValues("unknown", "rejected").Inc()
			return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		metrics.ImportsTotal.WithLabelValues("unknown", "error").Inc()
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit import")
	}

	metrics.ImportsTotal.WithLabelValues(string(result.Mode), "committed").Inc()
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	if _, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		emitter.EmitImportCommitted(ctx, tenantID, string(result.Mode), req.SourceTag,
			result.RolesCreated, result.RolesUpdated, result.RelationshipsAdded)
	}

	if _, views, err := ectoinject.GetContext[*graphview.Service](ctx); err == nil {
		views.Invalidate(ctx, tenantID)
	}

	return c.JSON(http.StatusOK, result)
}
