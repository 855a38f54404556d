package inspect

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// sqliteInspector reads metadata through SQLite PRAGMA statements. PRAGMA
// arguments cannot be bound as parameters, so table names are spliced in as
// double-quoted identifiers (pq.QuoteIdentifier quoting is valid SQLite).
type sqliteInspector struct {
	db *sql.DB
}

const sqliteTablesQuery = `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

func (s *sqliteInspector) ListTables() ([]string, error) {
	rows, err := s.db.Query(sqliteTablesQuery)
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

func (s *sqliteInspector) HasTable(table string) (bool, error) {
	tables, err := s.ListTables()
	if err != nil {
		return false, err
	}
	return hasTable(tables, table), nil
}

func (s *sqliteInspector) ForeignKeysOf(table string) ([]ForeignKeyFact, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", pq.QuoteIdentifier(table))
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var facts []ForeignKeyFact
	for rows.Next() {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, unavailable(err)
		}
		// "to" is NULL when the FK targets the implicit primary key.
		refColumn := "id"
		if to.Valid {
			refColumn = to.String
		}
		facts = append(facts, ForeignKeyFact{
			Column:           from,
			ReferencedTable:  refTable,
			ReferencedColumn: refColumn,
		})
	}
	return facts, rows.Err()
}

// ForeignKeysReferencing walks every other table's foreign keys; SQLite has
// no reverse catalog view.
func (s *sqliteInspector) ForeignKeysReferencing(table string) ([]IncomingFact, error) {
	tables, err := s.ListTables()
	if err != nil {
		return nil, err
	}

	var facts []IncomingFact
	for _, t := range tables {
		if t == table {
			continue
		}
		fks, err := s.ForeignKeysOf(t)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			if fk.ReferencedTable == table {
				facts = append(facts, IncomingFact{SourceTable: t, ForeignKeyFact: fk})
			}
		}
	}
	return facts, nil
}

func (s *sqliteInspector) IsUnique(table, column string) (bool, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", pq.QuoteIdentifier(table))
	rows, err := s.db.Query(query)
	if err != nil {
		return false, unavailable(err)
	}

	type indexEntry struct {
		name   string
		unique bool
	}
	var uniqueIndexes []indexEntry
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  bool
			origin  string
			partial bool
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return false, unavailable(err)
		}
		if unique {
			uniqueIndexes = append(uniqueIndexes, indexEntry{name: name, unique: unique})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return false, unavailable(err)
	}
	rows.Close()

	for _, idx := range uniqueIndexes {
		cols, err := s.indexColumns(idx.name)
		if err != nil {
			return false, err
		}
		if len(cols) == 1 && cols[0] == column {
			return true, nil
		}
	}
	return false, nil
}

func (s *sqliteInspector) indexColumns(index string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", pq.QuoteIdentifier(index))
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, unavailable(err)
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	return cols, rows.Err()
}
