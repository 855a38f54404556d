package migrations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forge-cli/forge/internal/inspect"
)

// ErrNotFound is returned when no migration file creates the wanted table.
var ErrNotFound = errors.New("migration file not found")

// Finder locates and reads migration files under a single directory.
// Files follow the {version}_{name}.up.sql convention; down migrations are
// ignored.
type Finder struct {
	dir string
}

// NewFinder returns a Finder over dir (usually "migrations").
func NewFinder(dir string) *Finder {
	return &Finder{dir: dir}
}

// FindMigrationFile returns the path of the migration that creates table,
// matched by the create_<table> filename convention first and by statement
// content second.
func (f *Finder) FindMigrationFile(table string) (string, error) {
	files, err := f.listFiles()
	if err != nil {
		return "", err
	}

	marker := "create_" + table
	for _, file := range files {
		if strings.Contains(filepath.Base(file), marker) {
			return file, nil
		}
	}

	// Fallback: scan statement content for a CREATE TABLE of this table.
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if _, ok := tableBody(string(src), table); ok {
			return file, nil
		}
	}
	return "", fmt.Errorf("%w: table %s", ErrNotFound, table)
}

// FactsFor parses the foreign keys of table from its own migration file.
func (f *Finder) FactsFor(table string) ([]inspect.ForeignKeyFact, error) {
	src, err := f.readMigration(table)
	if err != nil {
		return nil, err
	}
	return ParseCreateTable(src, table), nil
}

// MorphsFor parses the polymorphic column bases declared for table.
func (f *Finder) MorphsFor(table string) ([]string, error) {
	src, err := f.readMigration(table)
	if err != nil {
		return nil, err
	}
	return ParseMorphColumns(src, table), nil
}

// ColumnsFor parses the column list of table from its migration file.
func (f *Finder) ColumnsFor(table string) ([]Column, error) {
	src, err := f.readMigration(table)
	if err != nil {
		return nil, err
	}
	return ParseColumns(src, table), nil
}

// ReverseScan walks every other migration file looking for foreign keys
// that target table. The candidate check is a plain substring search for
// the table name after REFERENCES, so a table whose name is contained in
// an unrelated identifier can produce a false positive; the subsequent
// per-table parse filters most of those out.
func (f *Finder) ReverseScan(table string) ([]inspect.IncomingFact, error) {
	files, err := f.listFiles()
	if err != nil {
		return nil, err
	}

	var facts []inspect.IncomingFact
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		src := string(raw)
		if !referencesTable(src, table) {
			continue
		}
		for _, source := range createdTables(src) {
			if strings.EqualFold(source, table) {
				continue
			}
			for _, fk := range ParseCreateTable(src, source) {
				if strings.EqualFold(fk.ReferencedTable, table) {
					facts = append(facts, inspect.IncomingFact{
						SourceTable:    source,
						ForeignKeyFact: fk,
					})
				}
			}
		}
	}
	return facts, nil
}

// AllTables returns every table created across the migration directory.
func (f *Finder) AllTables() ([]string, error) {
	files, err := f.listFiles()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var tables []string
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		for _, t := range createdTables(string(raw)) {
			if !seen[t] {
				seen[t] = true
				tables = append(tables, t)
			}
		}
	}
	sort.Strings(tables)
	return tables, nil
}

func (f *Finder) readMigration(table string) (string, error) {
	path, err := f.FindMigrationFile(table)
	if err != nil {
		return "", err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read migration %s: %w", path, err)
	}
	return string(src), nil
}

func (f *Finder) listFiles() ([]string, error) {
	pattern := filepath.Join(f.dir, "*.sql")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations in %s: %w", f.dir, err)
	}
	out := files[:0]
	for _, file := range files {
		if strings.HasSuffix(file, ".down.sql") {
			continue
		}
		out = append(out, file)
	}
	sort.Strings(out)
	return out, nil
}

// referencesTable is the textual pre-filter for ReverseScan.
func referencesTable(src, table string) bool {
	lower := strings.ToLower(src)
	needle := strings.ToLower(table)
	idx := 0
	for {
		pos := strings.Index(lower[idx:], "references")
		if pos < 0 {
			return false
		}
		rest := lower[idx+pos+len("references"):]
		if strings.Contains(firstLine(rest), needle) {
			return true
		}
		idx += pos + len("references")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
