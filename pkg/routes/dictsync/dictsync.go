package dictsync

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/dictsync"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graphview"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers dictionary sync routes
func Register(g *echo.Group) {
	g.GET("/export", Export)
	g.GET("/export/package", ExportPackage)
	g.POST("", Sync)
}

// Export returns the tenant's dictionary as a portable snapshot
func Export(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dictsync_handler.Export")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*dictsync.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get sync service")
	}

	snapshot, err := svc.Export(ctx, tenantID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to export dictionary")
	}

	return c.JSON(http.StatusOK, snapshot)
}

// ExportPackage returns the dictionary plus category tree as one document
func ExportPackage(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dictsync_handler.ExportPackage")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*dictsync.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get sync service")
	}

	pkg, err := svc.ExportPackage(ctx, tenantID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to export package")
	}

	return c.JSON(http.StatusOK, pkg)
}

// Sync reconciles an incoming snapshot against the local dictionary
func Sync(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dictsync_handler.Sync")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.SyncRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*dictsync.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get sync service")
	}

	result, err := svc.Sync(ctx, tenantID, req)
	if err != nil {
		if models.IsValidation(err) {
			metrics.SyncRunsTotal.WithLabelValues(req.MergeMode, "rejected").Inc()
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if models.IsNotFound(err) {
			metrics.SyncRunsTotal.WithLabelValues(req.MergeMode, "rejected").Inc()
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		metrics.SyncRunsTotal.WithLabelValues(req.MergeMode, "error").Inc()
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to sync dictionary")
	}

	metrics.SyncRunsTotal.WithLabelValues(req.MergeMode, "completed").Inc()

	if _, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		emitter.EmitSyncCompleted(ctx, tenantID, req.MergeMode, result)
	}

	if _, views, err := ectoinject.GetContext[*graphview.Service](ctx); err == nil {
		views.Invalidate(ctx, tenantID)
	}

	return c.JSON(http.StatusOK, result)
}
