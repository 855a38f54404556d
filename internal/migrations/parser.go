// Package migrations extracts foreign-key evidence from SQL migration files.
// It is the fallback source of relationship facts when no live schema is
// reachable. All matching here is textual: the parser recognizes the
// declaration idioms the generator itself emits, not arbitrary SQL.
package migrations

import (
	"regexp"
	"strings"

	"github.com/forge-cli/forge/internal/inspect"
	"github.com/forge-cli/forge/internal/naming"
)

var (
	createTableRe = regexp.MustCompile(`(?is)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?["'` + "`" + `]?(\w+)["'` + "`" + `]?\s*\(`)

	// Table-level triad: FOREIGN KEY (col) REFERENCES target(col)
	tableFKRe = regexp.MustCompile(`(?i)^(?:CONSTRAINT\s+\S+\s+)?FOREIGN\s+KEY\s*\(\s*["'` + "`" + `]?(\w+)["'` + "`" + `]?\s*\)\s*REFERENCES\s+["'` + "`" + `]?(\w+)["'` + "`" + `]?\s*(?:\(\s*["'` + "`" + `]?(\w+)["'` + "`" + `]?\s*\))?`)

	// Column-level: col TYPE ... REFERENCES target(col)
	columnFKRe = regexp.MustCompile(`(?i)^["'` + "`" + `]?(\w+)["'` + "`" + `]?\s+\w+.*?\bREFERENCES\s+["'` + "`" + `]?(\w+)["'` + "`" + `]?\s*(?:\(\s*["'` + "`" + `]?(\w+)["'` + "`" + `]?\s*\))?`)

	columnNameRe = regexp.MustCompile(`^["'` + "`" + `]?(\w+)["'` + "`" + `]?\s+(\w+)`)
)

// Column is one column definition pulled from a CREATE TABLE body, used to
// infer fillable fields when no live schema is available.
type Column struct {
	Name    string
	SQLType string
}

// ParseCreateTable extracts the foreign-key facts declared for table in the
// given migration source. Three idioms are recognized:
//
//  1. a column-level REFERENCES clause with an explicit target,
//  2. a table-level FOREIGN KEY (col) REFERENCES target(col) triad,
//  3. a bare column named <base>_id with no REFERENCES clause, whose target
//     is derived by pluralizing <base>.
//
// The third idiom is naming-convention only; irregular plurals can point it
// at a table that does not exist. Columns that form a polymorphic pair
// (<base>_id next to <base>_type) are excluded from it.
func ParseCreateTable(src, table string) []inspect.ForeignKeyFact {
	body, ok := tableBody(src, table)
	if !ok {
		return nil
	}

	morphs := morphBases(body)
	seen := make(map[string]bool)
	var facts []inspect.ForeignKeyFact

	add := func(f inspect.ForeignKeyFact) {
		if seen[f.Column] {
			return
		}
		seen[f.Column] = true
		facts = append(facts, f)
	}

	defs := splitDefinitions(body)

	// Explicit declarations first so a later FOREIGN KEY triad is never
	// shadowed by the convention heuristic firing on the bare column.
	for _, def := range defs {
		if m := tableFKRe.FindStringSubmatch(def); m != nil {
			add(inspect.ForeignKeyFact{
				Column:           m[1],
				ReferencedTable:  m[2],
				ReferencedColumn: refColumn(m[3]),
			})
			continue
		}
		if m := columnFKRe.FindStringSubmatch(def); m != nil {
			add(inspect.ForeignKeyFact{
				Column:           m[1],
				ReferencedTable:  m[2],
				ReferencedColumn: refColumn(m[3]),
			})
		}
	}

	// Convention-based: bare <base>_id column.
	for _, def := range defs {
		m := columnNameRe.FindStringSubmatch(def)
		if m == nil {
			continue
		}
		column := m[1]
		target, ok := naming.ForeignKeyTarget(column)
		if !ok {
			continue
		}
		if morphs[strings.TrimSuffix(column, "_id")] {
			continue
		}
		add(inspect.ForeignKeyFact{
			Column:           column,
			ReferencedTable:  target,
			ReferencedColumn: "id",
		})
	}
	return facts
}

// ParseMorphColumns returns the polymorphic base names declared for table:
// every <base> with both a <base>_id and a <base>_type column.
func ParseMorphColumns(src, table string) []string {
	body, ok := tableBody(src, table)
	if !ok {
		return nil
	}
	bases := morphBases(body)
	var out []string
	for _, def := range splitDefinitions(body) {
		m := columnNameRe.FindStringSubmatch(def)
		if m == nil {
			continue
		}
		base := strings.TrimSuffix(m[1], "_id")
		if base != m[1] && bases[base] {
			out = append(out, base)
			bases[base] = false
		}
	}
	return out
}

// ParseColumns returns every column definition in table's CREATE TABLE body.
func ParseColumns(src, table string) []Column {
	body, ok := tableBody(src, table)
	if !ok {
		return nil
	}
	var cols []Column
	for _, def := range splitDefinitions(body) {
		upper := strings.ToUpper(def)
		if strings.HasPrefix(upper, "PRIMARY KEY") ||
			strings.HasPrefix(upper, "FOREIGN KEY") ||
			strings.HasPrefix(upper, "CONSTRAINT") ||
			strings.HasPrefix(upper, "UNIQUE") ||
			strings.HasPrefix(upper, "CHECK") ||
			strings.HasPrefix(upper, "INDEX") {
			continue
		}
		if m := columnNameRe.FindStringSubmatch(def); m != nil {
			cols = append(cols, Column{Name: m[1], SQLType: strings.ToUpper(m[2])})
		}
	}
	return cols
}

// tableBody returns the parenthesized body of table's CREATE TABLE
// statement, balancing nested parentheses.
func tableBody(src, table string) (string, bool) {
	for _, loc := range createTableRe.FindAllStringSubmatchIndex(src, -1) {
		name := src[loc[2]:loc[3]]
		if !strings.EqualFold(name, table) {
			continue
		}
		depth := 1
		start := loc[1]
		for i := start; i < len(src); i++ {
			switch src[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return src[start:i], true
				}
			}
		}
	}
	return "", false
}

// createdTables returns every table name created in src.
func createdTables(src string) []string {
	var tables []string
	for _, m := range createTableRe.FindAllStringSubmatch(src, -1) {
		tables = append(tables, m[1])
	}
	return tables
}

// splitDefinitions splits a CREATE TABLE body on top-level commas and trims
// each definition to a single line of normalized whitespace.
func splitDefinitions(body string) []string {
	var defs []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				defs = append(defs, normalize(body[start:i]))
				start = i + 1
			}
		}
	}
	defs = append(defs, normalize(body[start:]))

	out := defs[:0]
	for _, d := range defs {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func normalize(def string) string {
	return strings.Join(strings.Fields(def), " ")
}

// morphBases finds <base>_type / <base>_id column pairs in a table body.
func morphBases(body string) map[string]bool {
	ids := make(map[string]bool)
	types := make(map[string]bool)
	for _, def := range splitDefinitions(body) {
		m := columnNameRe.FindStringSubmatch(def)
		if m == nil {
			continue
		}
		if base, ok := strings.CutSuffix(m[1], "_id"); ok && base != "" {
			ids[base] = true
		}
		if base, ok := strings.CutSuffix(m[1], "_type"); ok && base != "" {
			types[base] = true
		}
	}
	bases := make(map[string]bool)
	for base := range ids {
		if types[base] {
			bases[base] = true
		}
	}
	return bases
}

func refColumn(captured string) string {
	if captured == "" {
		return "id"
	}
	return captured
}
