package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/repositories/relationship"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	"github.com/Ramsey-B/fern/internal/repositories/role/roletest"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/raci"
	raciroutes "github.com/Ramsey-B/fern/pkg/routes/raci"
	roleroutes "github.com/Ramsey-B/fern/pkg/routes/role"
)

// TestAPIHelpers drives the real router, middleware and handlers against
// in-memory repositories.
type TestAPIHelpers struct {
	t        *testing.T
	e        *echo.Echo
	tenantID string
	roles    *roletest.Fake
	rels     *relFake
}

func NewTestAPIHelpers(t *testing.T) *TestAPIHelpers {
	t.Helper()

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	roles := roletest.NewFake()
	rels := &relFake{}

	container := ectoinject.GetDefaultContainer()
	if container == nil {
		var err error
		container, err = ectoinject.NewDIDefaultContainer()
		require.NoError(t, err)
	}
	require.NoError(t, ectoinject.RegisterInstance[role.RoleRepository](container, roles))
	require.NoError(t, ectoinject.RegisterInstance[relationship.RelationshipRepository](container, rels))
	require.NoError(t, ectoinject.RegisterInstance[*raci.Adjudicator](container, raci.NewAdjudicator(roles, logger)))

	e := echo.New()
	e.Use(middleware.Context())
	e.HTTPErrorHandler = middleware.Error(logger)

	api := e.Group("/api/v1")
	roleroutes.Register(api.Group("/roles"))
	raciroutes.Register(api.Group("/raci"))

	return &TestAPIHelpers{
		t:        t,
		e:        e,
		tenantID: "test-tenant",
		roles:    roles,
		rels:     rels,
	}
}

func (h *TestAPIHelpers) MakeRequest(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", h.tenantID)

	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *TestAPIHelpers) decode(rec *httptest.ResponseRecorder, dest any) {
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func TestRoleAPI_CRUD(t *testing.T) {
	h := NewTestAPIHelpers(t)

	var created models.Role
	t.Run("Create", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/roles", models.CreateRoleRequest{
			Name:     "Chief Engineer",
			Category: "engineering",
			Aliases:  models.StringList{"Lead Engineer"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		h.decode(rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "chief engineer", created.NormalizedName)
		assert.Equal(t, models.DispositionTBD, created.Disposition)
	})

	t.Run("Create_DuplicateIdentityConflicts", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/roles", models.CreateRoleRequest{
			Name: "CHIEF  Engineer",
		})
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("Create_MissingNameRejected", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/roles", map[string]any{
			"category": "engineering",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("GetByID", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodGet, "/api/v1/roles/"+created.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.Role
		h.decode(rec, &got)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("GetByID_Unknown404", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodGet, "/api/v1/roles/missing-id", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Update_PartialPatch", func(t *testing.T) {
		disposition := models.DispositionSanctioned
		rec := h.MakeRequest(http.MethodPut, "/api/v1/roles/"+created.ID, models.UpdateRoleRequest{
			Disposition: &disposition,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got models.Role
		h.decode(rec, &got)
		assert.Equal(t, models.DispositionSanctioned, got.Disposition)
		assert.Equal(t, "engineering", got.Category, "unpatched fields keep their values")
	})

	t.Run("List", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodGet, "/api/v1/roles", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.RoleListResponse
		h.decode(rec, &got)
		assert.Equal(t, 1, got.TotalCount)
	})

	t.Run("Delete_SoftHidesFromActiveList", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodDelete, "/api/v1/roles/"+created.ID, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var listed models.RoleListResponse
		h.decode(rec, &listed)
		assert.Equal(t, 0, listed.TotalCount)

		// The row itself survives a soft delete.
		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRoleAPI_Rename(t *testing.T) {
	h := NewTestAPIHelpers(t)

	rec := h.MakeRequest(http.MethodPost, "/api/v1/roles", models.CreateRoleRequest{Name: "Maintainer"})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("MovesIdentity", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/roles/rename", models.RenameRoleRequest{
			OldName: "Maintainer",
			NewName: "Steward",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got models.Role
		h.decode(rec, &got)
		assert.Equal(t, "steward", got.NormalizedName)

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/by-name/Maintainer", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("CollisionWithoutMergeConflicts", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/roles", models.CreateRoleRequest{Name: "Groundskeeper"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = h.MakeRequest(http.MethodPost, "/api/v1/roles/rename", models.RenameRoleRequest{
			OldName: "Groundskeeper",
			NewName: "Steward",
		})
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("MissingRole404", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/roles/rename", models.RenameRoleRequest{
			OldName: "Nobody",
			NewName: "Somebody",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRoleAPI_HardDeletePrunesRelationships(t *testing.T) {
	h := NewTestAPIHelpers(t)

	rec := h.MakeRequest(http.MethodPost, "/api/v1/roles", models.CreateRoleRequest{Name: "Night Auditor"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Role
	h.decode(rec, &created)

	rec = h.MakeRequest(http.MethodDelete, "/api/v1/roles/"+created.ID+"?hard=true", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"night auditor"}, h.rels.pruned, "hard delete must prune the role's edges")

	rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "hard delete removes the row")
}

func TestAdjudicateAPI(t *testing.T) {
	h := NewTestAPIHelpers(t)

	candidates := []raci.Candidate{
		{Name: "Inspector", MentionCount: 6, DocumentCount: 3, StatementCount: 2},
		{Name: "Checklist", MentionCount: 2},
	}

	t.Run("ScoreOnly", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/raci/adjudicate", map[string]any{
			"candidates": candidates,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got raci.AdjudicateResult
		h.decode(rec, &got)
		require.Len(t, got.Suggestions, 2)
		assert.Equal(t, "inspector", got.Suggestions[0].RoleName)
		assert.Equal(t, raci.StatusConfirmed, got.Suggestions[0].Status)
		assert.Nil(t, got.Applied)

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/by-name/Inspector", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "score-only must not write")
	})

	t.Run("ApplyCommitsAboveThreshold", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/raci/adjudicate", map[string]any{
			"candidates": candidates,
			"apply":      true,
			"threshold":  0.5,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got raci.AdjudicateResult
		h.decode(rec, &got)
		require.NotNil(t, got.Applied)
		assert.Equal(t, 1, got.Applied.Processed)

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/by-name/Inspector", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/by-name/Checklist", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "below-threshold candidates stay out")
	})

	t.Run("EmptyCandidatesRejected", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/raci/adjudicate", map[string]any{
			"candidates": []raci.Candidate{},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdjudicateDecisionsAPI(t *testing.T) {
	h := NewTestAPIHelpers(t)

	t.Run("PartialFailureCommitsTheRest", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/raci/adjudicate/decisions", map[string]any{
			"decisions": []models.AdjudicationDecision{
				{RoleName: "Auditor", Status: "confirmed"},
				{RoleName: "Ghost", Status: "bogus"},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got models.BatchAdjudicateResult
		h.decode(rec, &got)
		assert.Equal(t, 2, got.Total)
		assert.Equal(t, 1, got.Processed)
		require.Len(t, got.Errors, 1)
		assert.Equal(t, 1, got.Errors[0].Index)
		assert.Equal(t, "Ghost", got.Errors[0].Item)

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/by-name/Auditor", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var auditor models.Role
		h.decode(rec, &auditor)
		assert.Equal(t, models.DispositionSanctioned, auditor.Disposition)

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/by-name/Ghost", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "failed items must not write")
	})

	t.Run("RenameDecisionMovesIdentity", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/raci/adjudicate/decisions", map[string]any{
			"decisions": []models.AdjudicationDecision{
				{RoleName: "Auditor", RenameTo: "Examiner"},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/by-name/Examiner", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = h.MakeRequest(http.MethodGet, "/api/v1/roles/by-name/Auditor", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("EmptyBatchRejected", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/raci/adjudicate/decisions", map[string]any{
			"decisions": []models.AdjudicationDecision{},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTenantHeader_Required(t *testing.T) {
	h := NewTestAPIHelpers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, "requests without a tenant header are rejected")
}

func TestImportParsing(t *testing.T) {
	t.Run("HierarchySheet_ParsesChains", func(t *testing.T) {
		rows := []hierarchy.SheetRow{
			{RowNumber: 2, MapPath: "Roles Hierarchy", Resources: "CEO; VP Engineering; Engineer"},
		}

		result, err := hierarchy.Parse(rows)
		require.NoError(t, err)

		assert.Equal(t, hierarchy.ModeHierarchy, result.Mode)
		assert.Len(t, result.Roles, 3)
		assert.Len(t, result.InheritsEdges, 2)
	})

	t.Run("ProcessSheet_SupplierBecomesSupervisor", func(t *testing.T) {
		rows := []hierarchy.SheetRow{
			{
				RowNumber: 2,
				MapPath:   "Procurement/Purchasing",
				Resources: "Buyer",
				Supplier:  "Supplier Manager",
				Customer:  "Warehouse Clerk",
				Activity:  "Issue purchase order",
			},
		}

		result, err := hierarchy.Parse(rows)
		require.NoError(t, err)

		assert.Equal(t, hierarchy.ModeProcess, result.Mode)
		require.Len(t, result.SupervisesEdges, 2)
		assert.Equal(t, "Supplier Manager", result.SupervisesEdges[0].Parent)
		assert.Equal(t, "Buyer", result.SupervisesEdges[0].Child)
		assert.Equal(t, "Buyer", result.SupervisesEdges[1].Parent)
		assert.Equal(t, "Warehouse Clerk", result.SupervisesEdges[1].Child)
	})

	t.Run("EmptySheet_Rejected", func(t *testing.T) {
		_, err := hierarchy.Parse(nil)
		require.Error(t, err)
		assert.True(t, models.IsValidation(err))
	})
}

func TestSyncModes(t *testing.T) {
	t.Run("AllMergeModes", func(t *testing.T) {
		for _, mode := range []string{
			models.SyncModeAddNew,
			models.SyncModeReplaceAll,
			models.SyncModeUpdateExisting,
		} {
			assert.True(t, models.IsValidSyncMode(mode))
		}
		assert.False(t, models.IsValidSyncMode("overwrite"))
	})

	t.Run("Snapshot_RoundTrip", func(t *testing.T) {
		snapshot := models.DictionarySnapshot{
			Format:    models.SnapshotFormatDictionary,
			Version:   "1.0",
			RoleCount: 1,
			Roles: []models.SnapshotRole{
				{RoleName: "Auditor", Aliases: models.StringList{"Reviewer"}},
			},
		}

		data, err := json.Marshal(snapshot)
		require.NoError(t, err)

		var parsed models.DictionarySnapshot
		err = json.Unmarshal(data, &parsed)
		require.NoError(t, err)

		assert.Equal(t, models.SnapshotFormatDictionary, parsed.Format)
		require.Len(t, parsed.Roles, 1)
		assert.Equal(t, "Auditor", parsed.Roles[0].RoleName)
	})
}

// relFake is an in-memory relationship store recording the calls the role
// handlers make.
type relFake struct {
	pruned []string
}

func (f *relFake) Add(ctx context.Context, tenantID string, req models.CreateRelationshipRequest) error {
	return nil
}

func (f *relFake) Delete(ctx context.Context, tenantID string, sourceRole, targetRole, relType string) error {
	return nil
}

func (f *relFake) DeleteAllForRole(ctx context.Context, tenantID string, roleName string) error {
	f.pruned = append(f.pruned, roleName)
	return nil
}

func (f *relFake) DeleteBySourceTag(ctx context.Context, tenantID string, sourceTag string) (int, error) {
	return 0, nil
}

func (f *relFake) Query(ctx context.Context, tenantID string, roleName, relType string) ([]models.Relationship, error) {
	return nil, nil
}

func (f *relFake) Stats(ctx context.Context, tenantID string) (*models.RelationshipStats, error) {
	return &models.RelationshipStats{ByType: map[string]int{}}, nil
}

func (f *relFake) DB() database.DB { return &roletest.FakeDB{} }
