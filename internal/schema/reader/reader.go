// Package reader reads live MySQL schema state from INFORMATION_SCHEMA.
package reader

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/semitexa/semitexa/internal/errs"
	"github.com/semitexa/semitexa/internal/schema"
)

// Reader reads live database state for one database, excluding any table
// named in Ignore.
type Reader struct {
	DB       *sql.DB
	Database string
	Ignore   map[string]bool
}

func New(db *sql.DB, database string, ignoreTables []string) *Reader {
	ignore := make(map[string]bool, len(ignoreTables))
	for _, t := range ignoreTables {
		ignore[t] = true
	}
	return &Reader{DB: db, Database: database, Ignore: ignore}
}

// Read builds the full live DbState, applying the ignore-table filter so
// ignored tables are invisible to diffing.
func (r *Reader) Read() (*schema.DbState, error) {
	state := schema.NewDbState()

	tableRows, err := r.DB.Query(
		`SELECT TABLE_NAME, TABLE_COMMENT FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`,
		r.Database,
	)
	if err != nil {
		return nil, errs.Wrap(errs.SchemaState, "read tables", err)
	}
	defer tableRows.Close()

	for tableRows.Next() {
		var name, comment string
		if err := tableRows.Scan(&name, &comment); err != nil {
			return nil, errs.Wrap(errs.SchemaState, "scan table row", err)
		}
		if r.Ignore[name] {
			continue
		}
		t := schema.NewDbTableState(name)
		t.Comment = comment
		state.Tables[name] = t
	}
	if err := tableRows.Err(); err != nil {
		return nil, errs.Wrap(errs.SchemaState, "iterate tables", err)
	}

	for name, t := range state.Tables {
		if err := r.readColumns(t); err != nil {
			return nil, fmt.Errorf("read columns for %s: %w", name, err)
		}
		if err := r.readIndexes(t); err != nil {
			return nil, fmt.Errorf("read indexes for %s: %w", name, err)
		}
	}
	if err := r.readForeignKeys(state); err != nil {
		return nil, fmt.Errorf("read foreign keys: %w", err)
	}

	return state, nil
}

func (r *Reader) readColumns(t *schema.DbTableState) error {
	rows, err := r.DB.Query(
		`SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_KEY, EXTRA,
		        DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE, COLUMN_COMMENT
		 FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		 ORDER BY ORDINAL_POSITION`,
		r.Database, t.Name,
	)
	if err != nil {
		return errs.Wrap(errs.SchemaState, "query columns", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, columnType, nullable, columnKey, extra, dataType, comment string
		var dflt sql.NullString
		var charLen, precision, scale sql.NullInt64
		if err := rows.Scan(&name, &columnType, &nullable, &dflt, &columnKey, &extra,
			&dataType, &charLen, &precision, &scale, &comment); err != nil {
			return errs.Wrap(errs.SchemaState, "scan column row", err)
		}
		c := &schema.DbColumnState{
			TableName:     t.Name,
			Name:          name,
			ColumnType:    strings.ToLower(columnType),
			DataType:      strings.ToLower(dataType),
			Nullable:      nullable == "YES",
			IsPrimaryKey:  columnKey == "PRI",
			AutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
			Comment:       comment,
		}
		if dflt.Valid {
			c.Default = &dflt.String
		}
		if charLen.Valid {
			v := charLen.Int64
			c.CharMaxLen = &v
		}
		if precision.Valid {
			v := precision.Int64
			c.Precision = &v
		}
		if scale.Valid {
			v := scale.Int64
			c.Scale = &v
		}
		t.AddColumn(c)
	}
	return rows.Err()
}

func (r *Reader) readIndexes(t *schema.DbTableState) error {
	rows, err := r.DB.Query(
		`SELECT INDEX_NAME, COLUMN_NAME, NON_UNIQUE
		 FROM INFORMATION_SCHEMA.STATISTICS
		 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		 ORDER BY INDEX_NAME, SEQ_IN_INDEX`,
		r.Database, t.Name,
	)
	if err != nil {
		return errs.Wrap(errs.SchemaState, "query indexes", err)
	}
	defer rows.Close()

	byName := map[string]*schema.DbIndexState{}
	var order []string
	for rows.Next() {
		var name, col string
		var nonUnique int
		if err := rows.Scan(&name, &col, &nonUnique); err != nil {
			return errs.Wrap(errs.SchemaState, "scan index row", err)
		}
		if name == "PRIMARY" {
			continue // covered by the column PK flag
		}
		idx, ok := byName[name]
		if !ok {
			idx = &schema.DbIndexState{Name: name, Unique: nonUnique == 0}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, name := range order {
		t.Indexes = append(t.Indexes, *byName[name])
	}
	return nil
}

func (r *Reader) readForeignKeys(state *schema.DbState) error {
	rows, err := r.DB.Query(
		`SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
		        rc.DELETE_RULE, rc.UPDATE_RULE
		 FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		 JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		   ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
		   AND kcu.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
		 WHERE kcu.TABLE_SCHEMA = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL`,
		r.Database,
	)
	if err != nil {
		return errs.Wrap(errs.SchemaState, "query foreign keys", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, refTable, refColumn, deleteRule, updateRule string
		if err := rows.Scan(&table, &column, &refTable, &refColumn, &deleteRule, &updateRule); err != nil {
			return errs.Wrap(errs.SchemaState, "scan fk row", err)
		}
		if r.Ignore[table] || r.Ignore[refTable] {
			continue
		}
		t, ok := state.Tables[table]
		if !ok {
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, schema.DbForeignKeyState{
			Table: table, Column: column,
			ReferencedTable: refTable, ReferencedColumn: refColumn,
			OnDelete: schema.ForeignKeyAction(strings.ToUpper(deleteRule)),
			OnUpdate: schema.ForeignKeyAction(strings.ToUpper(updateRule)),
		})
	}
	return rows.Err()
}
