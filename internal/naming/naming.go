// Package naming maps identifiers between the forms used across generated
// code: table names, model names, accessor names, and route segments.
package naming

import (
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

func init() {
	// "children" has no distinct plural and trips the default rules.
	inflection.AddUncountable("children")
}

// TableToModel converts a table name to a model name.
// Example: "user_profiles" -> "UserProfile"
func TableToModel(table string) string {
	return strcase.ToCamel(inflection.Singular(table))
}

// ModelToTable converts a model name to its conventional table name.
// Example: "UserProfile" -> "user_profiles"
func ModelToTable(model string) string {
	return inflection.Plural(strcase.ToSnake(model))
}

// Singular returns the singular form of a word.
func Singular(s string) string {
	return inflection.Singular(s)
}

// Plural returns the plural form of a word.
func Plural(s string) string {
	return inflection.Plural(s)
}

// Studly converts an identifier to PascalCase.
// Example: "post_tag" -> "PostTag"
func Studly(s string) string {
	return strcase.ToCamel(s)
}

// Camel converts an identifier to camelCase.
// Example: "user_profiles" -> "userProfiles"
func Camel(s string) string {
	return strcase.ToLowerCamel(s)
}

// Snake converts an identifier to snake_case.
// Example: "UserProfile" -> "user_profile"
func Snake(s string) string {
	return strcase.ToSnake(s)
}

// Kebab converts an identifier to kebab-case, used for route paths.
// Example: "UserProfile" -> "user-profile"
func Kebab(s string) string {
	return strcase.ToKebab(s)
}

// SingularCamel returns the camelCase singular form of a table name,
// the conventional accessor name for a to-one relationship.
// Example: "users" -> "user"
func SingularCamel(table string) string {
	return strcase.ToLowerCamel(inflection.Singular(table))
}

// PluralCamel returns the camelCase plural form of a table name,
// the conventional accessor name for a to-many relationship.
// Example: "user_profiles" -> "userProfiles"
func PluralCamel(table string) string {
	return strcase.ToLowerCamel(inflection.Plural(table))
}

// ForeignKeyTarget derives the target table implied by a foreign-key
// column named by convention. The column must end in "_id"; the stripped
// base is pluralized. Pluralization is the sole heuristic here, so
// irregular plurals can produce a table that does not exist.
// Example: "user_id" -> "users"
func ForeignKeyTarget(column string) (string, bool) {
	base, ok := strings.CutSuffix(column, "_id")
	if !ok || base == "" {
		return "", false
	}
	return inflection.Plural(base), true
}

// ForeignKeyColumn derives the conventional foreign-key column that
// points at the given table. Example: "users" -> "user_id"
func ForeignKeyColumn(table string) string {
	return inflection.Singular(table) + "_id"
}
