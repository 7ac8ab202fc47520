package models

import "time"

// Relationship types. Each type has fixed direction semantics:
//   - inherits-from(A,B): A inherits the responsibilities of B; B is the parent in tree views
//   - supervises(A,B):    A is the parent (supervisor) of B
//   - reports_to(A,B):    A is the child reporting to parent B
//   - uses_tool(A,B):     A is the owning role, B the tool
//   - alias_of(A,B):      A is the owning role, B the alias identity
//   - shared-function:    symmetric, carries a weight and the shared function list
const (
	RelInheritsFrom   = "inherits-from"
	RelSupervises     = "supervises"
	RelReportsTo      = "reports_to"
	RelUsesTool       = "uses_tool"
	RelAliasOf        = "alias_of"
	RelSharedFunction = "shared-function"
)

// RelationshipTypes lists every valid relationship type.
var RelationshipTypes = []string{
	RelInheritsFrom,
	RelSupervises,
	RelReportsTo,
	RelUsesTool,
	RelAliasOf,
	RelSharedFunction,
}

// IsValidRelationshipType reports whether t is a known relationship type.
func IsValidRelationshipType(t string) bool {
	for _, v := range RelationshipTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsDirectionalType reports whether edges of type t place one role above the
// other in a hierarchy tree.
func IsDirectionalType(t string) bool {
	switch t {
	case RelInheritsFrom, RelSupervises, RelReportsTo:
		return true
	}
	return false
}

// Relationship is a typed edge between two role identities. Roles are referenced
// by normalized name so rename cascades are a column rewrite.
type Relationship struct {
	ID              string     `json:"id" db:"id"`
	TenantID        string     `json:"tenant_id" db:"tenant_id"`
	SourceRole      string     `json:"source_role" db:"source_role"`
	TargetRole      string     `json:"target_role" db:"target_role"`
	Type            string     `json:"type" db:"type"`
	Weight          int        `json:"weight,omitempty" db:"weight"`
	SharedFunctions StringList `json:"shared_functions,omitempty" db:"shared_functions"`
	SourceTag       string     `json:"source_tag,omitempty" db:"source_tag"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// ParentChild resolves the directional semantics of an edge. ok is false for
// symmetric or ownership edge types that do not imply a tree position.
func (r *Relationship) ParentChild() (parent, child string, ok bool) {
	switch r.Type {
	case RelInheritsFrom:
		return r.TargetRole, r.SourceRole, true
	case RelSupervises:
		return r.SourceRole, r.TargetRole, true
	case RelReportsTo:
		return r.TargetRole, r.SourceRole, true
	}
	return "", "", false
}

// CreateRelationshipRequest is the request for adding a typed edge.
type CreateRelationshipRequest struct {
	SourceRole      string     `json:"source_role" validate:"required"`
	TargetRole      string     `json:"target_role" validate:"required"`
	Type            string     `json:"type" validate:"required"`
	Weight          int        `json:"weight,omitempty"`
	SharedFunctions StringList `json:"shared_functions,omitempty"`
	SourceTag       string     `json:"source_tag,omitempty"`
}

// RelationshipStats aggregates edge counts by type.
type RelationshipStats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}
