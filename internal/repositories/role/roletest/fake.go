// Package roletest provides an in-memory RoleRepository for service tests.
// Semantics mirror the Postgres repository closely enough for the sync,
// adjudication and import services to be exercised without a database.
package roletest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/jmoiron/sqlx"
)

// Fake is an in-memory role repository.
type Fake struct {
	mu    sync.Mutex
	roles map[string]*models.Role // key: tenant + normalized_name, active rows only
	byID  map[string]*models.Role
	seq   int
	db    *FakeDB
}

// NewFake creates an empty fake repository
func NewFake() *Fake {
	return &Fake{
		roles: make(map[string]*models.Role),
		byID:  make(map[string]*models.Role),
		db:    &FakeDB{},
	}
}

func key(tenantID, norm string) string { return tenantID + "\x00" + norm }

func (f *Fake) nextID() string {
	f.seq++
	return fmt.Sprintf("role-%d", f.seq)
}

func (f *Fake) DB() database.DB { return f.db }

func (f *Fake) Create(ctx context.Context, tenantID string, req models.CreateRoleRequest) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	norm := normalizers.RoleName(req.Name)
	if norm == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "role name is required"}
	}
	if existing, ok := f.roles[key(tenantID, norm)]; ok {
		return nil, &models.ConflictError{Resource: "role", Name: req.Name, ConflictingID: existing.ID}
	}

	disposition := req.Disposition
	if disposition == "" {
		disposition = models.DispositionTBD
	}
	source := req.Source
	if source == "" {
		source = models.SourceManual
	}

	now := time.Now().UTC()
	role := &models.Role{
		ID:             f.nextID(),
		TenantID:       tenantID,
		NormalizedName: norm,
		Name:           req.Name,
		Category:       req.Category,
		RoleType:       req.RoleType,
		Disposition:    disposition,
		IsDeliverable:  req.IsDeliverable,
		IsActive:       true,
		Baselined:      req.Baselined,
		Aliases:        req.Aliases,
		OrgGroup:       req.OrgGroup,
		HierarchyLevel: req.HierarchyLevel,
		Description:    req.Description,
		Notes:          req.Notes,
		Source:         source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.roles[key(tenantID, norm)] = role
	f.byID[role.ID] = role
	copied := *role
	return &copied, nil
}

func (f *Fake) GetByID(ctx context.Context, tenantID string, id string) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.byID[id]
	if !ok || role.TenantID != tenantID {
		return nil, nil
	}
	copied := *role
	return &copied, nil
}

func (f *Fake) GetByName(ctx context.Context, tenantID string, name string) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[key(tenantID, normalizers.RoleName(name))]
	if !ok {
		return nil, nil
	}
	copied := *role
	return &copied, nil
}

func (f *Fake) List(ctx context.Context, tenantID string, page, pageSize int, includeInactive bool) ([]models.Role, int, error) {
	all, err := f.list(tenantID, includeInactive)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []models.Role{}, len(all), nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (f *Fake) ListActive(ctx context.Context, tenantID string) ([]models.Role, error) {
	return f.list(tenantID, false)
}

func (f *Fake) list(tenantID string, includeInactive bool) ([]models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Role
	for _, role := range f.byID {
		if role.TenantID != tenantID {
			continue
		}
		if !role.IsActive && !includeInactive {
			continue
		}
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	return out, nil
}

func (f *Fake) Update(ctx context.Context, tenantID string, id string, req models.UpdateRoleRequest) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.byID[id]
	if !ok || role.TenantID != tenantID {
		return nil, &models.NotFoundError{Resource: "role", Key: id}
	}

	if req.Name != nil {
		if normalizers.RoleName(*req.Name) != role.NormalizedName {
			return nil, &models.ValidationError{Field: "name", Reason: "use rename to change a role's identity"}
		}
		role.Name = *req.Name
	}
	if req.Category != nil {
		role.Category = *req.Category
	}
	if req.RoleType != nil {
		role.RoleType = *req.RoleType
	}
	if req.Disposition != nil {
		role.Disposition = *req.Disposition
	}
	if req.IsDeliverable != nil {
		role.IsDeliverable = *req.IsDeliverable
	}
	if req.Baselined != nil {
		role.Baselined = *req.Baselined
	}
	if req.Aliases != nil {
		role.Aliases = *req.Aliases
	}
	if req.OrgGroup != nil {
		role.OrgGroup = *req.OrgGroup
	}
	if req.HierarchyLevel != nil {
		role.HierarchyLevel = *req.HierarchyLevel
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Notes != nil {
		role.Notes = *req.Notes
	}
	role.UpdatedAt = time.Now().UTC()

	copied := *role
	return &copied, nil
}

func (f *Fake) Rename(ctx context.Context, tenantID string, req models.RenameRoleRequest) (*models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	oldNorm := normalizers.RoleName(req.OldName)
	newNorm := normalizers.RoleName(req.NewName)
	source, ok := f.roles[key(tenantID, oldNorm)]
	if !ok {
		return nil, &models.NotFoundError{Resource: "role", Key: req.OldName}
	}

	if oldNorm == newNorm {
		source.Name = req.NewName
		copied := *source
		return &copied, nil
	}

	if target, exists := f.roles[key(tenantID, newNorm)]; exists {
		if !req.AllowMerge {
			return nil, &models.RenameConflictError{OldName: req.OldName, NewName: req.NewName, ExistingID: target.ID}
		}
		source.IsActive = false
		delete(f.roles, key(tenantID, oldNorm))
		copied := *target
		return &copied, nil
	}

	delete(f.roles, key(tenantID, oldNorm))
	source.Name = req.NewName
	source.NormalizedName = newNorm
	source.Source = models.SourceRename
	f.roles[key(tenantID, newNorm)] = source
	copied := *source
	return &copied, nil
}

func (f *Fake) Delete(ctx context.Context, tenantID string, id string, hard bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.byID[id]
	if !ok || role.TenantID != tenantID {
		return &models.NotFoundError{Resource: "role", Key: id}
	}
	role.IsActive = false
	delete(f.roles, key(tenantID, role.NormalizedName))
	if hard {
		delete(f.byID, id)
	}
	return nil
}

func (f *Fake) BatchAdjudicate(ctx context.Context, tenantID string, decisions []models.AdjudicationDecision) (*models.BatchAdjudicateResult, error) {
	result := &models.BatchAdjudicateResult{Total: len(decisions)}

	renameTargets := make(map[string]int)
	for i, d := range decisions {
		if d.RenameTo != "" {
			renameTargets[normalizers.RoleName(d.RenameTo)] = i
		}
	}

	for i, d := range decisions {
		if j, ok := renameTargets[normalizers.RoleName(d.RoleName)]; ok && j != i && d.RenameTo == "" {
			result.Errors = append(result.Errors, models.BatchItemError{
				Index: i,
				Item:  d.RoleName,
				Error: fmt.Sprintf("role %q collides with rename target of item %d", d.RoleName, j),
			})
			continue
		}
		if err := f.applyDecision(ctx, tenantID, d); err != nil {
			result.Errors = append(result.Errors, models.BatchItemError{Index: i, Item: d.RoleName, Error: err.Error()})
			continue
		}
		result.Processed++
	}
	return result, nil
}

func (f *Fake) applyDecision(ctx context.Context, tenantID string, d models.AdjudicationDecision) error {
	if normalizers.RoleName(d.RoleName) == "" {
		return &models.ValidationError{Field: "role_name", Reason: "role name is required"}
	}

	if d.RenameTo != "" {
		_, err := f.Rename(ctx, tenantID, models.RenameRoleRequest{OldName: d.RoleName, NewName: d.RenameTo})
		return err
	}

	disposition := d.Disposition
	isDeliverable := d.IsDeliverable
	switch d.Status {
	case "confirmed":
		if disposition == "" {
			disposition = models.DispositionSanctioned
		}
	case "deliverable":
		isDeliverable = true
	case "", "pending":
	default:
		return &models.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", d.Status)}
	}

	existing, err := f.GetByName(ctx, tenantID, d.RoleName)
	if err != nil {
		return err
	}
	if existing == nil {
		_, err := f.Create(ctx, tenantID, models.CreateRoleRequest{
			Name:          d.RoleName,
			Category:      d.Category,
			Disposition:   disposition,
			IsDeliverable: isDeliverable,
			Aliases:       d.Aliases,
			Description:   d.Description,
			Notes:         d.Notes,
			Source:        models.SourceAdjudication,
		})
		return err
	}

	patch := models.UpdateRoleRequest{}
	if disposition != "" {
		patch.Disposition = &disposition
	}
	if isDeliverable {
		patch.IsDeliverable = &isDeliverable
	}
	if d.Category != "" {
		patch.Category = &d.Category
	}
	if d.Notes != "" {
		patch.Notes = &d.Notes
	}
	_, err = f.Update(ctx, tenantID, existing.ID, patch)
	return err
}

func (f *Fake) IncrementMentionStats(ctx context.Context, tenantID string, name string, mentions, documents, statements int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[key(tenantID, normalizers.RoleName(name))]
	if !ok {
		return nil
	}
	role.MentionCount += mentions
	role.DocumentCount += documents
	role.StatementCount += statements
	return nil
}

func (f *Fake) DeactivateAll(ctx context.Context, tenantID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for k, role := range f.roles {
		if role.TenantID != tenantID {
			continue
		}
		role.IsActive = false
		delete(f.roles, k)
		count++
	}
	return count, nil
}

// FakeDB satisfies the storage port with no-op transactions so services that
// open one can run against the fake.
type FakeDB struct{}

func (d *FakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, fmt.Errorf("roletest: ExecContext not supported")
}

func (d *FakeDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return sql.ErrNoRows
}

func (d *FakeDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (d *FakeDB) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, fmt.Errorf("roletest: QueryxContext not supported")
}

func (d *FakeDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, fmt.Errorf("roletest: BeginTxx not supported")
}

func (d *FakeDB) PingContext(ctx context.Context) error { return nil }

func (d *FakeDB) Close() error { return nil }

func (d *FakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, noopTx{}, nil
}

type noopTx struct{}

func (noopTx) IsOpen() bool                       { return true }
func (noopTx) Commit(ctx context.Context) error   { return nil }
func (noopTx) Rollback(ctx context.Context) error { return nil }

func (noopTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, fmt.Errorf("roletest: ExecContext not supported")
}

func (noopTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return sql.ErrNoRows
}

func (noopTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (noopTx) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, fmt.Errorf("roletest: QueryxContext not supported")
}
