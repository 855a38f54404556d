package relations

import (
	"github.com/forge-cli/forge/internal/inspect"
	"github.com/forge-cli/forge/internal/migrations"
)

// schemaSource adapts a live-schema inspector to the classifier. Live
// schemas carry no polymorphic declarations, so MorphsOf reports none.
type schemaSource struct {
	inspect.Inspector
}

// NewSchemaSource wraps a live-schema inspector as classification evidence.
func NewSchemaSource(insp inspect.Inspector) Source {
	return &schemaSource{Inspector: insp}
}

func (s *schemaSource) MorphsOf(string) ([]string, error) {
	return nil, nil
}

// migrationSource adapts parsed migration files to the classifier.
// Uniqueness is not recoverable from migration text, so IsUnique always
// reports false and incoming keys classify as hasMany.
type migrationSource struct {
	finder *migrations.Finder
}

// NewMigrationSource wraps a migration finder as classification evidence.
func NewMigrationSource(finder *migrations.Finder) Source {
	return &migrationSource{finder: finder}
}

func (m *migrationSource) ForeignKeysOf(table string) ([]inspect.ForeignKeyFact, error) {
	return m.finder.FactsFor(table)
}

func (m *migrationSource) IsUnique(string, string) (bool, error) {
	return false, nil
}

func (m *migrationSource) MorphsOf(table string) ([]string, error) {
	return m.finder.MorphsFor(table)
}
