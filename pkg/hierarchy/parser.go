package hierarchy

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Parse turns sheet rows into roles, typed edges and tag assignments. It is a
// pure function over its input: nothing is written and no store is consulted.
func Parse(rows []SheetRow) (*ParseResult, error) {
	if len(rows) == 0 {
		return nil, &models.ParseError{Missing: "rows"}
	}

	mode := ModeProcess
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row.MapPath), rolesHierarchyMapPath) {
			mode = ModeHierarchy
			break
		}
	}

	p := newParseState(mode)
	for _, row := range rows {
		if mode == ModeHierarchy {
			p.hierarchyRow(row)
		} else {
			p.processRow(row)
		}
	}

	if len(p.roleOrder) == 0 {
		return nil, &models.ParseError{Missing: "resources"}
	}

	return p.result(len(rows)), nil
}

// splitNames splits a resource/supplier/customer cell into role names.
// Semicolons, commas and newlines all act as separators on real exports.
func splitNames(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n'
	})
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

type parseState struct {
	mode      ImportMode
	roles     map[string]*ParsedRole
	roleOrder []string

	inherits    []InheritsFrom
	supervises  []Supervises
	shared      []SharedFunction
	edgeSeen    map[string]bool

	tags    []TagAssignment
	tagSeen map[string]bool
}

func newParseState(mode ImportMode) *parseState {
	return &parseState{
		mode:     mode,
		roles:    make(map[string]*ParsedRole),
		edgeSeen: make(map[string]bool),
		tagSeen:  make(map[string]bool),
	}
}

func (p *parseState) roleType() string {
	if p.mode == ModeHierarchy {
		return "organizational"
	}
	return "process"
}

// touchRole registers a role mention, unioning descriptions and accumulating
// source rows on repeats.
func (p *parseState) touchRole(name string, row SheetRow) *ParsedRole {
	norm := normalizers.RoleName(name)
	role, ok := p.roles[norm]
	if !ok {
		role = &ParsedRole{
			Name:           name,
			NormalizedName: norm,
			Category:       strings.TrimSpace(row.OrgLevel1),
			RoleType:       p.roleType(),
		}
		p.roles[norm] = role
		p.roleOrder = append(p.roleOrder, norm)
	}

	if desc := strings.TrimSpace(row.Activity); desc != "" {
		found := false
		for _, existing := range role.Descriptions {
			if existing == desc {
				found = true
				break
			}
		}
		if !found {
			role.Descriptions = append(role.Descriptions, desc)
		}
	}

	role.SourceRows = append(role.SourceRows, row.RowNumber)

	if role.Category == "" {
		role.Category = strings.TrimSpace(row.OrgLevel1)
	}

	p.tag(norm, row)
	return role
}

// tag records function-category assignments from the two org columns. The
// second column is scoped under whatever the first resolves to.
func (p *parseState) tag(roleName string, row SheetRow) {
	org1 := strings.TrimSpace(row.OrgLevel1)
	org2 := strings.TrimSpace(row.OrgLevel2)
	if org1 != "" {
		p.addTag(TagAssignment{RoleName: roleName, CategoryValue: org1})
	}
	if org2 != "" {
		p.addTag(TagAssignment{RoleName: roleName, CategoryValue: org2, ParentValue: org1})
	}
}

func (p *parseState) addTag(tag TagAssignment) {
	key := tag.RoleName + "\x00" + strings.ToLower(tag.CategoryValue)
	if p.tagSeen[key] {
		return
	}
	p.tagSeen[key] = true
	p.tags = append(p.tags, tag)
}

func (p *parseState) edgeKey(source, target, typ string) string {
	return normalizers.RoleName(source) + "\x00" + normalizers.RoleName(target) + "\x00" + typ
}

// hierarchyRow handles a Hierarchy Mode row: the first resource inherits from
// every later resource in the row. Supplier/customer cells are known false
// positives on hierarchy exports and are ignored.
func (p *parseState) hierarchyRow(row SheetRow) {
	names := splitNames(row.Resources)
	if len(names) == 0 {
		return
	}

	for _, name := range names {
		p.touchRole(name, row)
	}

	child := names[0]
	for _, parent := range names[1:] {
		if normalizers.RoleName(child) == normalizers.RoleName(parent) {
			continue
		}
		key := p.edgeKey(child, parent, models.RelInheritsFrom)
		if p.edgeSeen[key] {
			continue
		}
		p.edgeSeen[key] = true
		p.inherits = append(p.inherits, InheritsFrom{Child: child, Parent: parent})
	}
}

// processRow handles a Process Mode row: resources are co-performers,
// suppliers sit upstream of every performer and customers downstream.
func (p *parseState) processRow(row SheetRow) {
	performers := splitNames(row.Resources)
	suppliers := splitNames(row.Supplier)
	customers := splitNames(row.Customer)

	for _, name := range performers {
		p.touchRole(name, row)
	}
	for _, name := range suppliers {
		p.touchRole(name, row)
	}
	for _, name := range customers {
		p.touchRole(name, row)
	}

	activity := strings.TrimSpace(row.Activity)
	for i := 0; i < len(performers); i++ {
		for j := i + 1; j < len(performers); j++ {
			a, b := performers[i], performers[j]
			if normalizers.RoleName(a) == normalizers.RoleName(b) {
				continue
			}
			key := p.edgeKey(a, b, models.RelSharedFunction)
			if p.edgeSeen[key] {
				continue
			}
			p.edgeSeen[key] = true
			p.shared = append(p.shared, SharedFunction{A: a, B: b, Activity: activity})
		}
	}

	p.directedEdges(suppliers, performers)
	p.directedEdges(performers, customers)
}

func (p *parseState) directedEdges(parents, children []string) {
	for _, parent := range parents {
		for _, child := range children {
			if normalizers.RoleName(parent) == normalizers.RoleName(child) {
				continue
			}
			key := p.edgeKey(parent, child, models.RelSupervises)
			if p.edgeSeen[key] {
				continue
			}
			p.edgeSeen[key] = true
			p.supervises = append(p.supervises, Supervises{Parent: parent, Child: child})
		}
	}
}

func (p *parseState) result(rowCount int) *ParseResult {
	roles := make([]ParsedRole, 0, len(p.roleOrder))
	for _, norm := range p.roleOrder {
		roles = append(roles, *p.roles[norm])
	}

	counts := map[string]int{}
	if len(p.inherits) > 0 {
		counts[models.RelInheritsFrom] = len(p.inherits)
	}
	if len(p.supervises) > 0 {
		counts[models.RelSupervises] = len(p.supervises)
	}
	if len(p.shared) > 0 {
		counts[models.RelSharedFunction] = len(p.shared)
	}

	return &ParseResult{
		Mode:            p.mode,
		Roles:           roles,
		InheritsEdges:   p.inherits,
		SupervisesEdges: p.supervises,
		SharedEdges:     p.shared,
		Tags:            p.tags,
		EdgeCounts:      counts,
		RowCount:        rowCount,
	}
}
