package hierarchy

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/internal/repositories/functioncategory"
	"github.com/Ramsey-B/fern/internal/repositories/relationship"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	"github.com/Ramsey-B/fern/internal/repositories/roletag"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Importer runs the two-phase import: Preview parses and resolves without
// writing, Commit applies the same parse inside one transaction.
type Importer struct {
	roles         role.RoleRepository
	relationships relationship.RelationshipRepository
	categories    functioncategory.FunctionCategoryRepository
	tags          roletag.RoleTagRepository
	logger        ectologger.Logger
}

// NewImporter creates a new hierarchy importer
func NewImporter(
	roles role.RoleRepository,
	relationships relationship.RelationshipRepository,
	categories functioncategory.FunctionCategoryRepository,
	tags roletag.RoleTagRepository,
	logger ectologger.Logger,
) *Importer {
	return &Importer{
		roles:         roles,
		relationships: relationships,
		categories:    categories,
		tags:          tags,
		logger:        logger,
	}
}

// CommitOptions controls a commit run. SourceTag marks every written row so a
// later import can clear this run's output; ClearPrevious deletes rows carrying
// the same tag before writing.
type CommitOptions struct {
	SourceTag     string `json:"source_tag"`
	ClearPrevious bool   `json:"clear_previous"`
	AssignedBy    string `json:"assigned_by,omitempty"`
}

// Preview is the read-only result of the first phase.
type Preview struct {
	Mode                ImportMode     `json:"mode"`
	RowCount            int            `json:"row_count"`
	RoleCount           int            `json:"role_count"`
	EdgeCounts          map[string]int `json:"edge_counts"`
	TagCount            int            `json:"tag_count"`
	UnmatchedCategories []string       `json:"unmatched_categories,omitempty"`
	SampleRoles         []ParsedRole   `json:"sample_roles"`
}

// CommitResult reports what a committed import wrote.
type CommitResult struct {
	Mode                 ImportMode `json:"mode"`
	RolesCreated         int        `json:"roles_created"`
	RolesUpdated         int        `json:"roles_updated"`
	RelationshipsAdded   int        `json:"relationships_added"`
	RelationshipsCleared int        `json:"relationships_cleared"`
	TagsAssigned         int        `json:"tags_assigned"`
	TagsCleared          int64      `json:"tags_cleared"`
	CategoriesCreated    int        `json:"categories_created"`
	UnmatchedCategories  []string   `json:"unmatched_categories,omitempty"`
}

const previewSampleSize = 10

// Preview parses the sheet and resolves category values without writing.
func (i *Importer) Preview(ctx context.Context, tenantID string, rows []SheetRow) (*Preview, error) {
	ctx, span := tracing.StartSpan(ctx, "Importer.Preview")
	defer span.End()

	parsed, err := Parse(rows)
	if err != nil {
		return nil, err
	}

	unmatched, err := i.unmatchedCategories(ctx, tenantID, parsed.Tags)
	if err != nil {
		return nil, err
	}

	samples := parsed.Roles
	if len(samples) > previewSampleSize {
		samples = samples[:previewSampleSize]
	}

	return &Preview{
		Mode:                parsed.Mode,
		RowCount:            parsed.RowCount,
		RoleCount:           len(parsed.Roles),
		EdgeCounts:          parsed.EdgeCounts,
		TagCount:            len(parsed.Tags),
		UnmatchedCategories: unmatched,
		SampleRoles:         samples,
	}, nil
}

// Commit parses the sheet and writes roles, edges and tags in one transaction.
// Parse failures happen before any write.
func (i *Importer) Commit(ctx context.Context, tenantID string, rows []SheetRow, opts CommitOptions) (*CommitResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Importer.Commit")
	defer span.End()

	parsed, err := Parse(rows)
	if err != nil {
		return nil, err
	}

	ctx, tx, err := i.roles.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result := &CommitResult{Mode: parsed.Mode}

	if opts.ClearPrevious && opts.SourceTag != "" {
		cleared, err := i.relationships.DeleteBySourceTag(ctx, tenantID, opts.SourceTag)
		if err != nil {
			return nil, err
		}
		result.RelationshipsCleared = cleared

		tagsCleared, err := i.tags.DeleteBySourceTag(ctx, tenantID, opts.SourceTag)
		if err != nil {
			return nil, err
		}
		result.TagsCleared = tagsCleared
	}

	if err := i.writeRoles(ctx, tenantID, parsed, result); err != nil {
		return nil, err
	}

	for _, req := range parsed.Relationships() {
		req.SourceTag = opts.SourceTag
		if err := i.relationships.Add(ctx, tenantID, req); err != nil {
			return nil, err
		}
		result.RelationshipsAdded++
	}

	if err := i.writeTags(ctx, tenantID, parsed, opts, result); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":     tenantID,
		"mode":          parsed.Mode,
		"roles_created": result.RolesCreated,
		"roles_updated": result.RolesUpdated,
		"edges_added":   result.RelationshipsAdded,
		"source_tag":    opts.SourceTag,
	}).Info("committed hierarchy import")

	return result, nil
}

func (i *Importer) writeRoles(ctx context.Context, tenantID string, parsed *ParseResult, result *CommitResult) error {
	for _, pr := range parsed.Roles {
		existing, err := i.roles.GetByName(ctx, tenantID, pr.Name)
		if err != nil {
			return err
		}

		description := strings.Join(pr.Descriptions, "\n")
		if existing == nil {
			_, err = i.roles.Create(ctx, tenantID, models.CreateRoleRequest{
				Name:        pr.Name,
				Category:    pr.Category,
				RoleType:    pr.RoleType,
				Description: description,
				Source:      models.SourceSipocImport,
			})
			if err != nil {
				return err
			}
			result.RolesCreated++
			continue
		}

		patch := models.UpdateRoleRequest{}
		changed := false
		if merged := unionDescription(existing.Description, pr.Descriptions); merged != existing.Description {
			patch.Description = &merged
			changed = true
		}
		if existing.Category == "" && pr.Category != "" {
			patch.Category = &pr.Category
			changed = true
		}
		if !changed {
			continue
		}
		if _, err := i.roles.Update(ctx, tenantID, existing.ID, patch); err != nil {
			return err
		}
		result.RolesUpdated++
	}
	return nil
}

// unionDescription appends new description lines not already present,
// preserving the existing text and order.
func unionDescription(existing string, incoming []string) string {
	lines := []string{}
	seen := map[string]bool{}
	for _, line := range strings.Split(existing, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
			seen[line] = true
		}
	}
	for _, line := range incoming {
		if line = strings.TrimSpace(line); line != "" && !seen[line] {
			lines = append(lines, line)
			seen[line] = true
		}
	}
	return strings.Join(lines, "\n")
}

func (i *Importer) writeTags(ctx context.Context, tenantID string, parsed *ParseResult, opts CommitOptions, result *CommitResult) error {
	unmatched := map[string]bool{}
	created := map[string]string{} // raw value -> created code, within this run

	for _, tag := range parsed.Tags {
		code, err := i.resolveTag(ctx, tenantID, tag, created, result)
		if err != nil {
			return err
		}
		if code == "" {
			unmatched[tag.CategoryValue] = true
			continue
		}

		err = i.tags.Assign(ctx, tenantID, models.RoleFunctionTag{
			RoleName:     tag.RoleName,
			CategoryCode: code,
			AssignedBy:   opts.AssignedBy,
			SourceTag:    opts.SourceTag,
		})
		if err != nil {
			return err
		}
		result.TagsAssigned++
	}

	result.UnmatchedCategories = sortedKeys(unmatched)
	return nil
}

// resolveTag maps a raw sheet value to a category code. Top-level values must
// match an existing category; second-level values are created as children of
// the resolved top-level category when missing.
func (i *Importer) resolveTag(ctx context.Context, tenantID string, tag TagAssignment, created map[string]string, result *CommitResult) (string, error) {
	if code, ok := created[strings.ToLower(tag.CategoryValue)]; ok {
		return code, nil
	}

	cat, err := i.categories.ResolveCode(ctx, tenantID, tag.CategoryValue)
	if err != nil {
		return "", err
	}
	if cat != nil {
		return cat.Code, nil
	}

	if tag.ParentValue == "" {
		return "", nil
	}

	parent, err := i.categories.ResolveCode(ctx, tenantID, tag.ParentValue)
	if err != nil {
		return "", err
	}
	if parent == nil {
		return "", nil
	}

	code := categorySlug(tag.CategoryValue)
	parentCode := parent.Code
	_, err = i.categories.Create(ctx, tenantID, models.CreateFunctionCategoryRequest{
		Code:       code,
		Name:       tag.CategoryValue,
		ParentCode: &parentCode,
	})
	if err != nil {
		return "", err
	}
	created[strings.ToLower(tag.CategoryValue)] = code
	result.CategoriesCreated++
	return code, nil
}

// categorySlug derives a stable code from a free-text category name.
func categorySlug(value string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (i *Importer) unmatchedCategories(ctx context.Context, tenantID string, tags []TagAssignment) ([]string, error) {
	unmatched := map[string]bool{}
	checked := map[string]bool{}
	for _, tag := range tags {
		key := strings.ToLower(tag.CategoryValue)
		if checked[key] {
			continue
		}
		checked[key] = true

		cat, err := i.categories.ResolveCode(ctx, tenantID, tag.CategoryValue)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			unmatched[tag.CategoryValue] = true
		}
	}
	return sortedKeys(unmatched), nil
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
