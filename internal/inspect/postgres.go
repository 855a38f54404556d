package inspect

import (
	"database/sql"
)

// postgresInspector reads metadata from information_schema for one schema
// (usually "public").
type postgresInspector struct {
	db     *sql.DB
	schema string
}

const postgresTablesQuery = `
SELECT c.table_name
FROM information_schema.tables c
WHERE c.table_schema = $1 AND c.table_type = 'BASE TABLE'
ORDER BY c.table_name`

const postgresForeignKeysOfQuery = `
SELECT kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON tc.constraint_name = ccu.constraint_name
 AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = $1
  AND kcu.table_name = $2
ORDER BY kcu.ordinal_position`

const postgresForeignKeysReferencingQuery = `
SELECT kcu.table_name, kcu.column_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON tc.constraint_name = ccu.constraint_name
 AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = $1
  AND ccu.table_name = $2
ORDER BY kcu.table_name`

// Unique and primary-key constraints both make a column unique. Unique
// indexes created outside a constraint are not visible here; the
// classifier's HasMany default covers that gap.
const postgresIsUniqueQuery = `
SELECT COUNT(*)
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type IN ('UNIQUE', 'PRIMARY KEY')
  AND tc.table_schema = $1
  AND kcu.table_name = $2
  AND kcu.column_name = $3
  AND 1 = (SELECT COUNT(*) FROM information_schema.key_column_usage k
           WHERE k.constraint_name = tc.constraint_name
             AND k.table_schema = tc.table_schema)`

func (p *postgresInspector) ListTables() ([]string, error) {
	rows, err := p.db.Query(postgresTablesQuery, p.schema)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable(err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (p *postgresInspector) HasTable(table string) (bool, error) {
	tables, err := p.ListTables()
	if err != nil {
		return false, err
	}
	return hasTable(tables, table), nil
}

func (p *postgresInspector) ForeignKeysOf(table string) ([]ForeignKeyFact, error) {
	rows, err := p.db.Query(postgresForeignKeysOfQuery, p.schema, table)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var facts []ForeignKeyFact
	for rows.Next() {
		var f ForeignKeyFact
		if err := rows.Scan(&f.Column, &f.ReferencedTable, &f.ReferencedColumn); err != nil {
			return nil, unavailable(err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (p *postgresInspector) ForeignKeysReferencing(table string) ([]IncomingFact, error) {
	rows, err := p.db.Query(postgresForeignKeysReferencingQuery, p.schema, table)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var facts []IncomingFact
	for rows.Next() {
		f := IncomingFact{ForeignKeyFact: ForeignKeyFact{ReferencedTable: table}}
		if err := rows.Scan(&f.SourceTable, &f.Column, &f.ReferencedColumn); err != nil {
			return nil, unavailable(err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (p *postgresInspector) IsUnique(table, column string) (bool, error) {
	var count int
	if err := p.db.QueryRow(postgresIsUniqueQuery, p.schema, table, column).Scan(&count); err != nil {
		return false, unavailable(err)
	}
	return count > 0, nil
}
