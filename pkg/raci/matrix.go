package raci

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// RACI letters as supplied by the upstream extractor's directive classifier.
const (
	Responsible = "R"
	Accountable = "A"
	Consulted   = "C"
	Informed    = "I"
)

// Letters lists the matrix columns in display order.
var Letters = []string{Responsible, Accountable, Consulted, Informed}

// Statement is one classified responsibility statement from the extractor.
type Statement struct {
	RoleName string `json:"role_name"`
	Letter   string `json:"letter"`
	Document string `json:"document,omitempty"`
	Text     string `json:"text,omitempty"`
}

// RoleRow is one row of the matrix: a role's counts per RACI letter, with an
// optional per-document breakdown.
type RoleRow struct {
	RoleName  string                    `json:"role_name"`
	Counts    map[string]int            `json:"counts"`
	Total     int                       `json:"total"`
	Documents map[string]map[string]int `json:"documents,omitempty"`
}

// Matrix is the role x RACI aggregation.
type Matrix struct {
	Rows      []RoleRow `json:"rows"`
	RoleCount int       `json:"role_count"`
	Total     int       `json:"total"`
}

// BuildMatrix aggregates statements into a matrix keyed by normalized role
// name. Statements with an unknown letter are dropped. Rows come back sorted
// by role name.
func BuildMatrix(statements []Statement, includeDocuments bool) *Matrix {
	rows := make(map[string]*RoleRow)

	total := 0
	for _, s := range statements {
		if !validLetter(s.Letter) {
			continue
		}
		name := normalizers.RoleName(s.RoleName)
		if name == "" {
			continue
		}

		row, ok := rows[name]
		if !ok {
			row = &RoleRow{RoleName: name, Counts: map[string]int{}}
			rows[name] = row
		}
		row.Counts[s.Letter]++
		row.Total++
		total++

		if includeDocuments && s.Document != "" {
			if row.Documents == nil {
				row.Documents = map[string]map[string]int{}
			}
			if row.Documents[s.Document] == nil {
				row.Documents[s.Document] = map[string]int{}
			}
			row.Documents[s.Document][s.Letter]++
		}
	}

	names := make([]string, 0, len(rows))
	for name := range rows {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &Matrix{Rows: make([]RoleRow, 0, len(names)), RoleCount: len(names), Total: total}
	for _, name := range names {
		out.Rows = append(out.Rows, *rows[name])
	}
	return out
}

func validLetter(letter string) bool {
	switch letter {
	case Responsible, Accountable, Consulted, Informed:
		return true
	}
	return false
}
