package inspect

import (
	"database/sql"
)

// mysqlInspector reads metadata from the information_schema of the
// currently selected database.
type mysqlInspector struct {
	db *sql.DB
}

const mysqlTablesQuery = `
SELECT TABLE_NAME
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_NAME`

const mysqlForeignKeysOfQuery = `
SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE()
  AND TABLE_NAME = ?
  AND REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY ORDINAL_POSITION`

const mysqlForeignKeysReferencingQuery = `
SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE()
  AND REFERENCED_TABLE_NAME = ?
ORDER BY TABLE_NAME`

// A column counts as unique when it is the only column of a unique index.
const mysqlIsUniqueQuery = `
SELECT COUNT(*)
FROM information_schema.STATISTICS s
WHERE s.TABLE_SCHEMA = DATABASE()
  AND s.TABLE_NAME = ?
  AND s.COLUMN_NAME = ?
  AND s.NON_UNIQUE = 0
  AND s.SEQ_IN_INDEX = 1
  AND 1 = (SELECT COUNT(*) FROM information_schema.STATISTICS i
           WHERE i.TABLE_SCHEMA = s.TABLE_SCHEMA
             AND i.TABLE_NAME = s.TABLE_NAME
             AND i.INDEX_NAME = s.INDEX_NAME)`

func (m *mysqlInspector) ListTables() ([]string, error) {
	rows, err := m.db.Query(mysqlTablesQuery)
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

func (m *mysqlInspector) HasTable(table string) (bool, error) {
	tables, err := m.ListTables()
	if err != nil {
		return false, err
	}
	return hasTable(tables, table), nil
}

func (m *mysqlInspector) ForeignKeysOf(table string) ([]ForeignKeyFact, error) {
	rows, err := m.db.Query(mysqlForeignKeysOfQuery, table)
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

func (m *mysqlInspector) ForeignKeysReferencing(table string) ([]IncomingFact, error) {
	rows, err := m.db.Query(mysqlForeignKeysReferencingQuery, table)
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

func (m *mysqlInspector) IsUnique(table, column string) (bool, error) {
	var count int
	if err := m.db.QueryRow(mysqlIsUniqueQuery, table, column).Scan(&count); err != nil {
		return false, unavailable(err)
	}
	return count > 0, nil
}
