package raci

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/role"
	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graphview"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/raci"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

const defaultThreshold = 0.75

// MatrixRequest carries extractor statements to aggregate
type MatrixRequest struct {
	Statements       []raci.Statement `json:"statements" validate:"required,min=1"`
	IncludeDocuments bool             `json:"include_documents,omitempty"`
}

// AdjudicateRequest carries candidates to score and optionally commit
type AdjudicateRequest struct {
	Candidates []raci.Candidate `json:"candidates" validate:"required,min=1"`
	Apply      bool             `json:"apply,omitempty"`
	Threshold  float64          `json:"threshold,omitempty"`
}

// DecisionsRequest carries explicit reviewer decisions to commit as a batch
type DecisionsRequest struct {
	Decisions []models.AdjudicationDecision `json:"decisions" validate:"required,min=1,dive"`
}

// Register registers responsibility matrix and adjudication routes
func Register(g *echo.Group) {
	g.POST("/matrix", Matrix)
	g.POST("/adjudicate", Adjudicate)
	g.POST("/adjudicate/decisions", AdjudicateDecisions)
}

// Matrix aggregates extractor statements into a per-role responsibility matrix
func Matrix(c echo.Context) error {
	ctx := c.Request().Context()
	_, span := tracing.StartSpan(ctx, "raci_handler.Matrix")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req MatrixRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	matrix := raci.BuildMatrix(req.Statements, req.IncludeDocuments)

	return c.JSON(http.StatusOK, matrix)
}

// Adjudicate scores discovered role candidates and, with apply set, commits
// the ones at or above the confidence threshold
func Adjudicate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "raci_handler.Adjudicate")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req AdjudicateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	ctx, adjudicator, err := ectoinject.GetContext[*raci.Adjudicator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get adjudicator")
	}

	result, err := adjudicator.Adjudicate(ctx, tenantID, req.Candidates, req.Apply, threshold)
	if err != nil {
		if models.IsValidation(err) {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to adjudicate candidates")
	}

	if result.Applied != nil {
		for _, s := range result.Suggestions {
			if s.Confidence >= threshold {
				metrics.AdjudicationsApplied.WithLabelValues(s.Status).Inc()
			}
		}

		if _, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
			emitter.EmitAdjudicationApplied(ctx, tenantID, len(result.Suggestions), result.Applied.Processed, threshold)
		}

		if _, views, err := ectoinject.GetContext[*graphview.Service](ctx); err == nil {
			views.Invalidate(ctx, tenantID)
		}
	}

	return c.JSON(http.StatusOK, result)
}

// AdjudicateDecisions commits explicit per-item decisions. Items that fail
// validation are reported per-item while the rest of the batch commits.
func AdjudicateDecisions(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "raci_handler.AdjudicateDecisions")
	defer span.End()

	tenantID := ctxmiddleware.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req DecisionsRequest
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

	result, err := repo.BatchAdjudicate(ctx, tenantID, req.Decisions)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to adjudicate decisions")
	}

	failed := make(map[int]bool, len(result.Errors))
	for _, e := range result.Errors {
		failed[e.Index] = true
	}
	for i, d := range req.Decisions {
		if failed[i] {
			continue
		}
		status := d.Status
		if status == "" {
			status = "pending"
		}
		metrics.AdjudicationsApplied.WithLabelValues(status).Inc()
	}

	if result.Processed > 0 {
		if _, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
			emitter.EmitAdjudicationApplied(ctx, tenantID, result.Total, result.Processed, 1)
		}

		if _, views, err := ectoinject.GetContext[*graphview.Service](ctx); err == nil {
			views.Invalidate(ctx, tenantID)
		}
	}

	return c.JSON(http.StatusOK, result)
}
