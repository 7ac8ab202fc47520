package hierarchy

import "github.com/Ramsey-B/fern/pkg/models"

// ImportMode selects how sheet rows are interpreted
type ImportMode string

const (
	// ModeHierarchy is used when the sheet contains a "Roles Hierarchy" map
	ModeHierarchy ImportMode = "hierarchy"
	// ModeProcess is used for plain SIPOC process maps
	ModeProcess ImportMode = "process"
)

// rolesHierarchyMapPath is the map path label that switches the parser into
// Hierarchy Mode.
const rolesHierarchyMapPath = "Roles Hierarchy"

// SheetRow is one spreadsheet row from a hierarchy export.
type SheetRow struct {
	RowNumber int    `json:"row_number"`
	MapPath   string `json:"map_path"`
	Resources string `json:"resources"`
	Supplier  string `json:"supplier"`
	Customer  string `json:"customer"`
	OrgLevel1 string `json:"org_level_1"`
	OrgLevel2 string `json:"org_level_2"`
	Activity  string `json:"activity"`
}

// Typed edge variants. Each carries its direction in the field names so a
// swapped argument is a compile error, not a silently inverted tree.

// InheritsFrom records that Child takes on the responsibilities of Parent.
type InheritsFrom struct {
	Child  string
	Parent string
}

// Supervises records that Parent directs Child. Process Mode maps
// supplier->performer and performer->customer through this variant so the
// upstream role always lands on the parent side.
type Supervises struct {
	Parent string
	Child  string
}

// SharedFunction links two co-performers of the same activity. Symmetric.
type SharedFunction struct {
	A        string
	B        string
	Activity string
}

// Relationship converts the variant to a storable edge.
func (e InheritsFrom) Relationship() models.CreateRelationshipRequest {
	return models.CreateRelationshipRequest{
		SourceRole: e.Child,
		TargetRole: e.Parent,
		Type:       models.RelInheritsFrom,
	}
}

func (e Supervises) Relationship() models.CreateRelationshipRequest {
	return models.CreateRelationshipRequest{
		SourceRole: e.Parent,
		TargetRole: e.Child,
		Type:       models.RelSupervises,
	}
}

func (e SharedFunction) Relationship() models.CreateRelationshipRequest {
	req := models.CreateRelationshipRequest{
		SourceRole: e.A,
		TargetRole: e.B,
		Type:       models.RelSharedFunction,
		Weight:     1,
	}
	if e.Activity != "" {
		req.SharedFunctions = models.StringList{e.Activity}
	}
	return req
}

// ParsedRole is a role accumulated across rows, descriptions unioned and
// source rows kept for traceability.
type ParsedRole struct {
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name"`
	Category       string   `json:"category,omitempty"`
	RoleType       string   `json:"role_type"`
	Descriptions   []string `json:"descriptions,omitempty"`
	SourceRows     []int    `json:"source_rows"`
}

// TagAssignment is a pending role -> category assignment. CategoryValue and
// ParentValue are the raw sheet strings; resolution against the category tree
// happens at preview/commit time.
type TagAssignment struct {
	RoleName      string `json:"role_name"`
	CategoryValue string `json:"category_value"`
	ParentValue   string `json:"parent_value,omitempty"`
}

// ParseResult is the read-only output of a parse pass.
type ParseResult struct {
	Mode            ImportMode        `json:"mode"`
	Roles           []ParsedRole      `json:"roles"`
	InheritsEdges   []InheritsFrom    `json:"inherits_edges,omitempty"`
	SupervisesEdges []Supervises      `json:"supervises_edges,omitempty"`
	SharedEdges     []SharedFunction  `json:"shared_edges,omitempty"`
	Tags            []TagAssignment   `json:"tags,omitempty"`
	EdgeCounts      map[string]int    `json:"edge_counts"`
	RowCount        int               `json:"row_count"`
}

// Relationships flattens the typed edge lists into storable requests.
func (p *ParseResult) Relationships() []models.CreateRelationshipRequest {
	out := make([]models.CreateRelationshipRequest, 0, len(p.InheritsEdges)+len(p.SupervisesEdges)+len(p.SharedEdges))
	for _, e := range p.InheritsEdges {
		out = append(out, e.Relationship())
	}
	for _, e := range p.SupervisesEdges {
		out = append(out, e.Relationship())
	}
	for _, e := range p.SharedEdges {
		out = append(out, e.Relationship())
	}
	return out
}
