package hierarchy

import (
	"context"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/internal/repositories/role/roletest"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTenant = "tenant-1"

type fakeRelationships struct {
	edges   []models.Relationship
	cleared []string
}

func (f *fakeRelationships) Add(ctx context.Context, tenantID string, req models.CreateRelationshipRequest) error {
	source := normalizers.RoleName(req.SourceRole)
	target := normalizers.RoleName(req.TargetRole)
	for _, e := range f.edges {
		if e.SourceRole == source && e.TargetRole == target && e.Type == req.Type {
			return nil
		}
	}
	f.edges = append(f.edges, models.Relationship{
		SourceRole:      source,
		TargetRole:      target,
		Type:            req.Type,
		Weight:          req.Weight,
		SharedFunctions: req.SharedFunctions,
		SourceTag:       req.SourceTag,
	})
	return nil
}

func (f *fakeRelationships) Delete(ctx context.Context, tenantID, sourceRole, targetRole, relType string) error {
	return nil
}

func (f *fakeRelationships) DeleteAllForRole(ctx context.Context, tenantID, roleName string) error {
	return nil
}

func (f *fakeRelationships) DeleteBySourceTag(ctx context.Context, tenantID, sourceTag string) (int, error) {
	f.cleared = append(f.cleared, sourceTag)
	kept := f.edges[:0]
	removed := 0
	for _, e := range f.edges {
		if e.SourceTag == sourceTag {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	f.edges = kept
	return removed, nil
}

func (f *fakeRelationships) Query(ctx context.Context, tenantID, roleName, relType string) ([]models.Relationship, error) {
	return f.edges, nil
}

func (f *fakeRelationships) Stats(ctx context.Context, tenantID string) (*models.RelationshipStats, error) {
	return &models.RelationshipStats{Total: len(f.edges)}, nil
}

func (f *fakeRelationships) DB() database.DB { return nil }

type fakeCategories struct {
	byCode map[string]*models.FunctionCategory
}

func newFakeCategories(cats ...models.FunctionCategory) *fakeCategories {
	f := &fakeCategories{byCode: map[string]*models.FunctionCategory{}}
	for i := range cats {
		cats[i].IsActive = true
		f.byCode[cats[i].Code] = &cats[i]
	}
	return f
}

func (f *fakeCategories) Create(ctx context.Context, tenantID string, req models.CreateFunctionCategoryRequest) (*models.FunctionCategory, error) {
	if _, ok := f.byCode[req.Code]; ok {
		return nil, &models.ConflictError{Resource: "function_category", Name: req.Code}
	}
	cat := &models.FunctionCategory{Code: req.Code, Name: req.Name, ParentCode: req.ParentCode, IsActive: true}
	f.byCode[req.Code] = cat
	return cat, nil
}

func (f *fakeCategories) GetByCode(ctx context.Context, tenantID, code string) (*models.FunctionCategory, error) {
	if cat, ok := f.byCode[code]; ok {
		return cat, nil
	}
	return nil, nil
}

func (f *fakeCategories) ResolveCode(ctx context.Context, tenantID, value string) (*models.FunctionCategory, error) {
	if cat, ok := f.byCode[value]; ok {
		return cat, nil
	}
	for _, cat := range f.byCode {
		if strings.EqualFold(cat.Code, value) || strings.EqualFold(cat.Name, value) {
			return cat, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) List(ctx context.Context, tenantID string, includeInactive bool) ([]models.FunctionCategory, error) {
	var out []models.FunctionCategory
	for _, cat := range f.byCode {
		out = append(out, *cat)
	}
	return out, nil
}

func (f *fakeCategories) Update(ctx context.Context, tenantID, code string, req models.UpdateFunctionCategoryRequest) (*models.FunctionCategory, error) {
	return f.byCode[code], nil
}

func (f *fakeCategories) RenameCode(ctx context.Context, tenantID string, req models.RenameCategoryCodeRequest) (*models.FunctionCategory, error) {
	return nil, nil
}

func (f *fakeCategories) Deactivate(ctx context.Context, tenantID, code string) error { return nil }

func (f *fakeCategories) DB() database.DB { return nil }

type fakeTags struct {
	tags []models.RoleFunctionTag
}

func (f *fakeTags) Assign(ctx context.Context, tenantID string, tag models.RoleFunctionTag) error {
	tag.RoleName = normalizers.RoleName(tag.RoleName)
	for _, existing := range f.tags {
		if existing.RoleName == tag.RoleName && existing.CategoryCode == tag.CategoryCode {
			return nil
		}
	}
	f.tags = append(f.tags, tag)
	return nil
}

func (f *fakeTags) ListForRole(ctx context.Context, tenantID, roleName string) ([]models.RoleFunctionTag, error) {
	return f.tags, nil
}

func (f *fakeTags) ListAll(ctx context.Context, tenantID string) ([]models.RoleFunctionTag, error) {
	return f.tags, nil
}

func (f *fakeTags) PrimaryTags(ctx context.Context, tenantID string) (map[string]string, error) {
	return nil, nil
}

func (f *fakeTags) Delete(ctx context.Context, tenantID, roleName, categoryCode string) error {
	return nil
}

func (f *fakeTags) DeleteBySourceTag(ctx context.Context, tenantID, sourceTag string) (int64, error) {
	kept := f.tags[:0]
	var removed int64
	for _, tag := range f.tags {
		if tag.SourceTag == sourceTag {
			removed++
			continue
		}
		kept = append(kept, tag)
	}
	f.tags = kept
	return removed, nil
}

func newImporter(t *testing.T, categories *fakeCategories) (*Importer, *roletest.Fake, *fakeRelationships, *fakeTags) {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	roles := roletest.NewFake()
	rels := &fakeRelationships{}
	tags := &fakeTags{}
	return NewImporter(roles, rels, categories, tags, logger), roles, rels, tags
}

func TestPreview_ReportsCountsWithoutWriting(t *testing.T) {
	imp, roles, rels, _ := newImporter(t, newFakeCategories(
		models.FunctionCategory{Code: "engineering", Name: "Engineering"},
	))

	preview, err := imp.Preview(context.Background(), testTenant, []SheetRow{
		{RowNumber: 1, MapPath: "Roles Hierarchy", Resources: "Systems Engineer; Engineer", OrgLevel1: "Engineering"},
		{RowNumber: 2, MapPath: "Roles Hierarchy", Resources: "Engineer; Technical Lead", OrgLevel1: "Mystery Group"},
	})
	require.NoError(t, err)

	assert.Equal(t, ModeHierarchy, preview.Mode)
	assert.Equal(t, 3, preview.RoleCount)
	assert.Equal(t, 2, preview.EdgeCounts[models.RelInheritsFrom])
	assert.Equal(t, []string{"Mystery Group"}, preview.UnmatchedCategories)

	stored, err := roles.ListActive(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Empty(t, stored, "preview must not write")
	assert.Empty(t, rels.edges)
}

func TestCommit_WritesRolesEdgesAndTags(t *testing.T) {
	imp, roles, rels, tags := newImporter(t, newFakeCategories(
		models.FunctionCategory{Code: "engineering", Name: "Engineering"},
	))

	result, err := imp.Commit(context.Background(), testTenant, []SheetRow{
		{
			RowNumber: 1,
			MapPath:   "Roles Hierarchy",
			Resources: "Systems Engineer; Engineer",
			OrgLevel1: "Engineering",
			OrgLevel2: "Quality Assurance",
			Activity:  "Own the technical baseline",
		},
	}, CommitOptions{SourceTag: "sipoc-2026-08", AssignedBy: "importer"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RolesCreated)
	assert.Equal(t, 1, result.RelationshipsAdded)
	assert.Equal(t, 1, result.CategoriesCreated)
	assert.Equal(t, 4, result.TagsAssigned)
	assert.Empty(t, result.UnmatchedCategories)

	se, err := roles.GetByName(context.Background(), testTenant, "Systems Engineer")
	require.NoError(t, err)
	require.NotNil(t, se)
	assert.Equal(t, models.SourceSipocImport, se.Source)
	assert.Equal(t, "Own the technical baseline", se.Description)

	require.Len(t, rels.edges, 1)
	assert.Equal(t, "systems engineer", rels.edges[0].SourceRole)
	assert.Equal(t, "engineer", rels.edges[0].TargetRole)
	assert.Equal(t, models.RelInheritsFrom, rels.edges[0].Type)
	assert.Equal(t, "sipoc-2026-08", rels.edges[0].SourceTag)

	// Quality Assurance got created as a child of engineering and both roles
	// carry both tags.
	var qaTag *models.RoleFunctionTag
	for i := range tags.tags {
		if tags.tags[i].CategoryCode == "quality-assurance" {
			qaTag = &tags.tags[i]
			break
		}
	}
	require.NotNil(t, qaTag)
	assert.Equal(t, "sipoc-2026-08", qaTag.SourceTag)
}

func TestCommit_MergesDescriptionsOnReimport(t *testing.T) {
	imp, roles, _, _ := newImporter(t, newFakeCategories())

	rows := []SheetRow{
		{RowNumber: 1, MapPath: "Intake", Resources: "Analyst", Activity: "Screen requests"},
	}
	_, err := imp.Commit(context.Background(), testTenant, rows, CommitOptions{SourceTag: "sipoc-a"})
	require.NoError(t, err)

	rows[0].Activity = "Log decisions"
	result, err := imp.Commit(context.Background(), testTenant, rows, CommitOptions{SourceTag: "sipoc-a"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RolesCreated)
	assert.Equal(t, 1, result.RolesUpdated)

	analyst, err := roles.GetByName(context.Background(), testTenant, "Analyst")
	require.NoError(t, err)
	assert.Equal(t, "Screen requests\nLog decisions", analyst.Description)
}

func TestCommit_ClearPreviousRemovesTaggedRows(t *testing.T) {
	imp, _, rels, _ := newImporter(t, newFakeCategories())

	first := []SheetRow{
		{RowNumber: 1, MapPath: "Roles Hierarchy", Resources: "Lead; Engineer"},
	}
	_, err := imp.Commit(context.Background(), testTenant, first, CommitOptions{SourceTag: "run-1"})
	require.NoError(t, err)
	require.Len(t, rels.edges, 1)

	second := []SheetRow{
		{RowNumber: 1, MapPath: "Roles Hierarchy", Resources: "Lead; Director"},
	}
	result, err := imp.Commit(context.Background(), testTenant, second, CommitOptions{SourceTag: "run-1", ClearPrevious: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RelationshipsCleared)
	require.Len(t, rels.edges, 1)
	assert.Equal(t, "director", rels.edges[0].TargetRole)
}
