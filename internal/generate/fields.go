package generate

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/forge-cli/forge/internal/migrations"
)

// Field is one model attribute derived from a table column.
type Field struct {
	Column  string
	GoName  string
	GoType  string
	SQLType string
}

// guardedColumns are never fillable and never validated.
var guardedColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"deleted_at": true,
}

// FieldsFromColumns maps parsed migration columns onto model fields.
func FieldsFromColumns(cols []migrations.Column) []Field {
	fields := make([]Field, 0, len(cols))
	for _, c := range cols {
		fields = append(fields, Field{
			Column:  c.Name,
			GoName:  GoFieldName(c.Name),
			GoType:  goType(c.SQLType),
			SQLType: c.SQLType,
		})
	}
	return fields
}

// Fillable returns the columns considered safe for mass assignment:
// everything except the primary key and bookkeeping timestamps.
func Fillable(fields []Field) []string {
	var out []string
	for _, f := range fields {
		if guardedColumns[f.Column] {
			continue
		}
		out = append(out, f.Column)
	}
	return out
}

// GoFieldName converts a column name to an exported Go field name with
// conventional ID casing. Example: "user_id" -> "UserID"
func GoFieldName(column string) string {
	name := strcase.ToCamel(column)
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	if name == "Url" {
		name = "URL"
	}
	return name
}

// goType maps a SQL column type onto the Go type used in generated models.
func goType(sqlType string) string {
	switch strings.ToUpper(sqlType) {
	case "BIGSERIAL", "BIGINT", "SERIAL", "INTEGER", "INT", "SMALLINT":
		return "int64"
	case "NUMERIC", "DECIMAL", "REAL", "DOUBLE", "FLOAT":
		return "float64"
	case "BOOLEAN", "BOOL":
		return "bool"
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME", "DATE", "TIME":
		return "time.Time"
	case "JSON", "JSONB":
		return "[]byte"
	default:
		// VARCHAR, TEXT, CHAR, UUID and anything unrecognized.
		return "string"
	}
}

// needsTime reports whether any field uses time.Time.
func needsTime(fields []Field) bool {
	for _, f := range fields {
		if f.GoType == "time.Time" {
			return true
		}
	}
	return false
}
