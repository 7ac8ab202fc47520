package models

import "time"

// MaxCategoryDepth caps the function category tree at parent -> child -> grandchild.
const MaxCategoryDepth = 3

// FunctionCategory is a node in the small function taxonomy used to tag roles.
// The code is the unique key; parent_code forms a tree of at most three levels.
type FunctionCategory struct {
	ID         string     `json:"id" db:"id"`
	TenantID   string     `json:"tenant_id" db:"tenant_id"`
	Code       string     `json:"code" db:"code"`
	Name       string     `json:"name" db:"name"`
	ParentCode *string    `json:"parent_code,omitempty" db:"parent_code"`
	Color      string     `json:"color,omitempty" db:"color"`
	SortOrder  int        `json:"sort_order" db:"sort_order"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateFunctionCategoryRequest is the request for adding a category.
type CreateFunctionCategoryRequest struct {
	Code       string  `json:"code" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	ParentCode *string `json:"parent_code,omitempty"`
	Color      string  `json:"color,omitempty"`
	SortOrder  int     `json:"sort_order,omitempty"`
}

// UpdateFunctionCategoryRequest is a partial patch of a category.
type UpdateFunctionCategoryRequest struct {
	Name      *string `json:"name,omitempty"`
	Color     *string `json:"color,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

// RenameCategoryCodeRequest changes a category's code. The rename cascades to
// child categories and role tags in the same transaction or not at all.
type RenameCategoryCodeRequest struct {
	OldCode string `json:"old_code" validate:"required"`
	NewCode string `json:"new_code" validate:"required"`
}

// RoleFunctionTag joins a role to a function category with provenance.
// The role is referenced by normalized name so rename cascades are a rewrite.
type RoleFunctionTag struct {
	ID           string    `json:"id" db:"id"`
	TenantID     string    `json:"tenant_id" db:"tenant_id"`
	RoleName     string    `json:"role_name" db:"role_name"`
	CategoryCode string    `json:"category_code" db:"category_code"`
	AssignedBy   string    `json:"assigned_by" db:"assigned_by"`
	SourceTag    string    `json:"source_tag,omitempty" db:"source_tag"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
