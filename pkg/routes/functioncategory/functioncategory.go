package functioncategory

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/functioncategory"
	"github.com/Ramsey-B/fern/internal/repositories/roletag"
	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/graphview"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers function category routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:code", Get)
	g.PUT("/:code", Update)
	g.POST("/rename", RenameCode)
	g.DELETE("/:code", Deactivate)
	g.GET("/:code/roles", RolesForCategory)
}

// List returns all categories for the tenant
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "functioncategory_handler.List")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	includeInactive := c.QueryParam("include_inactive") == "true"

	ctx, repo, err := ectoinject.GetContext[functioncategory.FunctionCategoryRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := repo.List(ctx, tenantID, includeInactive)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list categories")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items":       items,
		"total_count": len(items),
	})
}

// Create creates a category under an optional parent
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "functioncategory_handler.Create")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateFunctionCategoryRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[functioncategory.FunctionCategoryRepository](ctx)
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
		if models.IsNotFound(err) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create category")
	}

	return c.JSON(http.StatusCreated, result)
}

// Get returns a single category by code
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "functioncategory_handler.Get")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	code := c.Param("code")

	ctx, repo, err := ectoinject.GetContext[functioncategory.FunctionCategoryRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByCode(ctx, tenantID, code)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get category")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "category not found")
	}

	return c.JSON(http.StatusOK, result)
}

// Update patches a category
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "functioncategory_handler.Update")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	code := c.Param("code")

	var req models.UpdateFunctionCategoryRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[functioncategory.FunctionCategoryRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.Update(ctx, tenantID, code, req)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update category")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "category not found")
	}

	return c.JSON(http.StatusOK, result)
}

// RenameCode changes a category code. Child categories and role tags that
// reference the old code are rewritten in the same transaction.
func RenameCode(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "functioncategory_handler.RenameCode")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.RenameCategoryCodeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[functioncategory.FunctionCategoryRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.RenameCode(ctx, tenantID, req)
	if err != nil {
		if models.IsConflict(err) {
			return httperror.NewHTTPError(http.StatusConflict, err.Error())
		}
		if models.IsNotFound(err) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to rename category")
	}

	if _, views, err := ectoinject.GetContext[*graphview.Service](ctx); err == nil {
		views.Invalidate(ctx, tenantID)
	}

	return c.JSON(http.StatusOK, result)
}

// Deactivate soft deletes a category
func Deactivate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "functioncategory_handler.Deactivate")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	code := c.Param("code")

	ctx, repo, err := ectoinject.GetContext[functioncategory.FunctionCategoryRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Deactivate(ctx, tenantID, code); err != nil {
		if models.IsNotFound(err) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate category")
	}

	return c.NoContent(http.StatusNoContent)
}

// RolesForCategory returns the role names tagged with a category
func RolesForCategory(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "functioncategory_handler.RolesForCategory")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	code := c.Param("code")

	ctx, tags, err := ectoinject.GetContext[roletag.RoleTagRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	all, err := tags.ListAll(ctx, tenantID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list role tags")
	}

	roles := make([]string, 0)
	for _, tag := range all {
		if tag.CategoryCode == code {
			roles = append(roles, tag.RoleName)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"category_code": code,
		"roles":         roles,
		"total_count":   len(roles),
	})
}
