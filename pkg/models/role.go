package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Disposition values. The adjudication outcome for a role's long-term status.
const (
	DispositionSanctioned = "Sanctioned"
	DispositionRetire     = "To Be Retired"
	DispositionTBD        = "TBD"
)

// Role source values.
const (
	SourceManual        = "manual"
	SourceAdjudication  = "adjudication"
	SourceSipocImport   = "sipoc_import"
	SourcePackageImport = "package_import"
	SourceRename        = "rename"
	SourceSync          = "sync"
)

// StringList is a JSONB-backed ordered list of strings.
type StringList []string

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("StringList.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(l))
}

// Contains reports whether the list holds s.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Role is a canonical role identity. The identity key is (tenant_id, normalized_name)
// and at most one active row may hold it at a time.
type Role struct {
	ID             string     `json:"id" db:"id"`
	TenantID       string     `json:"tenant_id" db:"tenant_id"`
	NormalizedName string     `json:"normalized_name" db:"normalized_name"`
	Name           string     `json:"name" db:"name"`
	Category       string     `json:"category,omitempty" db:"category"`
	RoleType       string     `json:"role_type,omitempty" db:"role_type"`
	Disposition    string     `json:"disposition" db:"disposition"`
	IsDeliverable  bool       `json:"is_deliverable" db:"is_deliverable"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	Baselined      bool       `json:"baselined" db:"baselined"`
	Aliases        StringList `json:"aliases,omitempty" db:"aliases"`
	OrgGroup       string     `json:"org_group,omitempty" db:"org_group"`
	HierarchyLevel int        `json:"hierarchy_level,omitempty" db:"hierarchy_level"`
	Description    string     `json:"description,omitempty" db:"description"`
	Notes          string     `json:"notes,omitempty" db:"notes"`
	Source         string     `json:"source" db:"source"`

	// Mention bookkeeping fed by the extractor consumer, read by adjudication.
	MentionCount   int `json:"mention_count" db:"mention_count"`
	DocumentCount  int `json:"document_count" db:"document_count"`
	StatementCount int `json:"statement_count" db:"statement_count"`

	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedBy string    `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateRoleRequest is the request for adding a role to the dictionary.
type CreateRoleRequest struct {
	Name           string     `json:"name" validate:"required"`
	Category       string     `json:"category,omitempty"`
	RoleType       string     `json:"role_type,omitempty"`
	Disposition    string     `json:"disposition,omitempty"`
	IsDeliverable  bool       `json:"is_deliverable,omitempty"`
	Baselined      bool       `json:"baselined,omitempty"`
	Aliases        StringList `json:"aliases,omitempty"`
	OrgGroup       string     `json:"org_group,omitempty"`
	HierarchyLevel int        `json:"hierarchy_level,omitempty"`
	Description    string     `json:"description,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Source         string     `json:"source,omitempty"`
}

// UpdateRoleRequest is a partial patch. Nil fields are left unchanged.
type UpdateRoleRequest struct {
	Name           *string     `json:"name,omitempty"`
	Category       *string     `json:"category,omitempty"`
	RoleType       *string     `json:"role_type,omitempty"`
	Disposition    *string     `json:"disposition,omitempty"`
	IsDeliverable  *bool       `json:"is_deliverable,omitempty"`
	Baselined      *bool       `json:"baselined,omitempty"`
	Aliases        *StringList `json:"aliases,omitempty"`
	OrgGroup       *string     `json:"org_group,omitempty"`
	HierarchyLevel *int        `json:"hierarchy_level,omitempty"`
	Description    *string     `json:"description,omitempty"`
	Notes          *string     `json:"notes,omitempty"`
}

// RenameRoleRequest renames a role identity. When the target identity already
// exists the rename fails unless AllowMerge is set, in which case the old
// identity is merged into the target.
type RenameRoleRequest struct {
	OldName    string `json:"old_name" validate:"required"`
	NewName    string `json:"new_name" validate:"required"`
	AllowMerge bool   `json:"allow_merge,omitempty"`
}

// RoleListResponse is the response for listing roles.
type RoleListResponse struct {
	Items      []Role `json:"items"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// AdjudicationDecision is one add-or-update item in a batch adjudication.
type AdjudicationDecision struct {
	RoleName      string     `json:"role_name" validate:"required"`
	Status        string     `json:"status,omitempty"` // confirmed | deliverable | pending
	Category      string     `json:"category,omitempty"`
	Disposition   string     `json:"disposition,omitempty"`
	IsDeliverable bool       `json:"is_deliverable,omitempty"`
	Aliases       StringList `json:"aliases,omitempty"`
	Description   string     `json:"description,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Confidence    float64    `json:"confidence,omitempty"`

	// RenameTo moves the role's identity instead of patching it in place.
	RenameTo string `json:"rename_to,omitempty"`
}

// BatchAdjudicateResult reports partial-failure batch semantics: valid items
// are committed, failed items are returned with their errors.
type BatchAdjudicateResult struct {
	Processed int              `json:"processed"`
	Total     int              `json:"total"`
	Errors    []BatchItemError `json:"errors"`
}
