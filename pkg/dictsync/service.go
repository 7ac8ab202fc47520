package dictsync

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/internal/repositories/functioncategory"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Service reconciles the local dictionary with a shared master snapshot.
type Service struct {
	roles      role.RoleRepository
	categories functioncategory.FunctionCategoryRepository
	logger     ectologger.Logger
}

// NewService creates a new dictionary sync service
func NewService(roles role.RoleRepository, categories functioncategory.FunctionCategoryRepository, logger ectologger.Logger) *Service {
	return &Service{
		roles:      roles,
		categories: categories,
		logger:     logger,
	}
}

// Export serializes the active dictionary as a master snapshot.
func (s *Service) Export(ctx context.Context, tenantID string) (*models.DictionarySnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "DictSync.Export")
	defer span.End()

	roles, err := s.roles.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	snapshot := &models.DictionarySnapshot{
		Format:     models.SnapshotFormatDictionary,
		Version:    models.SnapshotVersion,
		ExportedAt: time.Now().UTC(),
		RoleCount:  len(roles),
		Roles:      make([]models.SnapshotRole, 0, len(roles)),
	}
	for _, r := range roles {
		snapshot.Roles = append(snapshot.Roles, models.SnapshotRole{
			RoleName:      r.Name,
			Aliases:       r.Aliases,
			Category:      r.Category,
			Description:   r.Description,
			IsDeliverable: r.IsDeliverable,
			Notes:         r.Notes,
		})
	}
	return snapshot, nil
}

// ExportPackage serializes the dictionary plus the category tree for
// cross-team distribution.
func (s *Service) ExportPackage(ctx context.Context, tenantID string) (*models.PackageSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "DictSync.ExportPackage")
	defer span.End()

	dict, err := s.Export(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	categories, err := s.categories.List(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}

	return &models.PackageSnapshot{
		Format:             models.SnapshotFormatPackage,
		Version:            dict.Version,
		ExportedAt:         dict.ExportedAt,
		RoleCount:          dict.RoleCount,
		Roles:              dict.Roles,
		FunctionCategories: categories,
	}, nil
}

// Sync applies a snapshot under one merge mode. Structural validation happens
// before any write; the reconcile itself runs in one transaction.
func (s *Service) Sync(ctx context.Context, tenantID string, req models.SyncRequest) (*models.SyncResult, error) {
	ctx, span := tracing.StartSpan(ctx, "DictSync.Sync")
	defer span.End()

	if !models.IsValidSyncMode(req.MergeMode) {
		return nil, &models.ValidationError{Field: "merge_mode", Reason: fmt.Sprintf("unknown merge mode %q", req.MergeMode)}
	}

	if req.Snapshot == nil {
		if !req.CreateIfMissing {
			return nil, &models.NotFoundError{Resource: "snapshot", Key: "sync request"}
		}
		exported, err := s.Export(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id": tenantID,
			"roles":     exported.RoleCount,
		}).Info("no snapshot available, exported local dictionary instead")
		return &models.SyncResult{Exported: exported}, nil
	}

	if err := validateSnapshot(req.Snapshot); err != nil {
		return nil, err
	}

	ctx, tx, err := s.roles.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var result *models.SyncResult
	switch req.MergeMode {
	case models.SyncModeAddNew:
		result, err = s.addNew(ctx, tenantID, req.Snapshot)
	case models.SyncModeReplaceAll:
		result, err = s.replaceAll(ctx, tenantID, req.Snapshot)
	case models.SyncModeUpdateExisting:
		result, err = s.updateExisting(ctx, tenantID, req.Snapshot)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":  tenantID,
		"merge_mode": req.MergeMode,
		"added":      result.Added,
		"updated":    result.Updated,
		"skipped":    result.Skipped,
		"conflicts":  len(result.Conflicts),
	}).Info("dictionary sync complete")

	return result, nil
}

// validateSnapshot rejects structurally unreadable snapshots before any write.
func validateSnapshot(snapshot *models.DictionarySnapshot) error {
	if snapshot.Format != models.SnapshotFormatDictionary && snapshot.Format != models.SnapshotFormatPackage {
		return &models.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown snapshot format %q", snapshot.Format)}
	}
	for i, r := range snapshot.Roles {
		if normalizers.RoleName(r.RoleName) == "" {
			return &models.ValidationError{Field: "roles", Reason: fmt.Sprintf("role %d has no name", i)}
		}
	}
	return nil
}

func createRequest(r models.SnapshotRole) models.CreateRoleRequest {
	return models.CreateRoleRequest{
		Name:          r.RoleName,
		Aliases:       r.Aliases,
		Category:      r.Category,
		Description:   r.Description,
		IsDeliverable: r.IsDeliverable,
		Notes:         r.Notes,
		Source:        models.SourceSync,
	}
}

// addNew inserts roles absent locally and leaves everything else untouched.
func (s *Service) addNew(ctx context.Context, tenantID string, snapshot *models.DictionarySnapshot) (*models.SyncResult, error) {
	result := &models.SyncResult{}
	for _, r := range snapshot.Roles {
		existing, err := s.roles.GetByName(ctx, tenantID, r.RoleName)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}
		if _, err := s.roles.Create(ctx, tenantID, createRequest(r)); err != nil {
			if models.IsConflict(err) {
				result.Conflicts = append(result.Conflicts, r.RoleName)
				continue
			}
			return nil, err
		}
		result.Added++
	}
	return result, nil
}

// replaceAll soft-deletes every local active role, then bulk-inserts the
// snapshot.
func (s *Service) replaceAll(ctx context.Context, tenantID string, snapshot *models.DictionarySnapshot) (*models.SyncResult, error) {
	result := &models.SyncResult{}

	if _, err := s.roles.DeactivateAll(ctx, tenantID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(snapshot.Roles))
	for _, r := range snapshot.Roles {
		norm := normalizers.RoleName(r.RoleName)
		if seen[norm] {
			result.Conflicts = append(result.Conflicts, r.RoleName)
			continue
		}
		seen[norm] = true
		if _, err := s.roles.Create(ctx, tenantID, createRequest(r)); err != nil {
			return nil, err
		}
		result.Added++
	}
	return result, nil
}

// updateExisting patches roles present in both from the snapshot; snapshot
// fields left empty keep local values, and snapshot-only roles are skipped.
func (s *Service) updateExisting(ctx context.Context, tenantID string, snapshot *models.DictionarySnapshot) (*models.SyncResult, error) {
	result := &models.SyncResult{}
	for _, r := range snapshot.Roles {
		existing, err := s.roles.GetByName(ctx, tenantID, r.RoleName)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			result.Skipped++
			continue
		}

		patch := models.UpdateRoleRequest{}
		changed := false
		if r.Category != "" && r.Category != existing.Category {
			patch.Category = &r.Category
			changed = true
		}
		if r.Description != "" && r.Description != existing.Description {
			patch.Description = &r.Description
			changed = true
		}
		if r.Notes != "" && r.Notes != existing.Notes {
			patch.Notes = &r.Notes
			changed = true
		}
		if len(r.Aliases) > 0 {
			merged := mergeAliases(existing.Aliases, r.Aliases)
			if len(merged) != len(existing.Aliases) {
				patch.Aliases = &merged
				changed = true
			}
		}
		if r.IsDeliverable && !existing.IsDeliverable {
			deliverable := true
			patch.IsDeliverable = &deliverable
			changed = true
		}

		if !changed {
			result.Skipped++
			continue
		}
		if _, err := s.roles.Update(ctx, tenantID, existing.ID, patch); err != nil {
			return nil, err
		}
		result.Updated++
	}
	return result, nil
}

func mergeAliases(existing, incoming models.StringList) models.StringList {
	merged := append(models.StringList(nil), existing...)
	for _, alias := range incoming {
		if !merged.Contains(alias) {
			merged = append(merged, alias)
		}
	}
	return merged
}
