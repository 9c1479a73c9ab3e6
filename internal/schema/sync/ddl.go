// Package sync builds an ordered schema.ExecutionPlan from a
// schema.SchemaDiff and executes it transactionally, with two-phase
// deprecation for drops and an audit trail.
//
// CREATE TABLE statements render an inline PRIMARY KEY plus any non-PK
// indexes, with foreign keys added separately once every table in the
// create set exists.
package sync

import (
	"fmt"
	"strings"

	"github.com/semitexa/semitexa/internal/schema"
)

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// renderColumnType renders the physical MySQL type clause for a declared column.
func renderColumnType(c *schema.ColumnDefinition) string {
	switch c.Type {
	case schema.Varchar, schema.Char, schema.Binary:
		length := 255
		if c.Length != nil {
			length = *c.Length
		}
		return fmt.Sprintf("%s(%d)", c.Type, length)
	case schema.Decimal:
		precision, scale := 10, 0
		if c.Precision != nil {
			precision = *c.Precision
		}
		if c.Scale != nil {
			scale = *c.Scale
		}
		return fmt.Sprintf("decimal(%d,%d)", precision, scale)
	case schema.Boolean:
		return "tinyint(1)"
	default:
		return string(c.Type)
	}
}

// renderDefault renders a column's DEFAULT clause, quoting string literals
// and leaving recognized bare expressions (CURRENT_TIMESTAMP, NULL) unquoted.
func renderDefault(c *schema.ColumnDefinition) string {
	if c.Default == nil {
		if c.Nullable {
			return "DEFAULT NULL"
		}
		return ""
	}
	switch v := c.Default.(type) {
	case bool:
		if v {
			return "DEFAULT 1"
		}
		return "DEFAULT 0"
	case int, int64, int32:
		return fmt.Sprintf("DEFAULT %v", v)
	case float64, float32:
		return fmt.Sprintf("DEFAULT %v", v)
	case string:
		if isBareLiteral(v) {
			return "DEFAULT " + v
		}
		return fmt.Sprintf("DEFAULT '%s'", strings.ReplaceAll(v, "'", "''"))
	default:
		return fmt.Sprintf("DEFAULT '%s'", strings.ReplaceAll(fmt.Sprintf("%v", v), "'", "''"))
	}
}

// isBareLiteral recognizes MySQL function-call defaults that must not be quoted.
func isBareLiteral(v string) bool {
	upper := strings.ToUpper(strings.TrimSpace(v))
	return upper == "CURRENT_TIMESTAMP" || strings.HasPrefix(upper, "CURRENT_TIMESTAMP(") ||
		upper == "NULL"
}

// renderColumnClause renders one column's full inline definition, used both
// by CREATE TABLE and by the two-phase MODIFY COLUMN rebuild.
func renderColumnClause(name, typ string, nullable, autoIncrement bool, defaultClause string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", quoteIdent(name), typ)
	if !nullable {
		b.WriteString(" NOT NULL")
	} else {
		b.WriteString(" NULL")
	}
	if defaultClause != "" {
		b.WriteString(" " + defaultClause)
	}
	if autoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	return b.String()
}

func renderDeclaredColumn(c *schema.ColumnDefinition) string {
	autoIncrement := c.IsPrimaryKey && c.PkStrategy == schema.PkAuto && isIntegerType(c.Type)
	return renderColumnClause(c.Name, renderColumnType(c), c.Nullable, autoIncrement, renderDefault(c))
}

func isIntegerType(t schema.ColumnType) bool {
	switch t {
	case schema.TinyInt, schema.SmallInt, schema.Int, schema.BigInt, schema.Year:
		return true
	}
	return false
}

// renderCreateTable renders the full CREATE TABLE statement for a declared
// table: columns, primary key, then inline indexes.
func renderCreateTable(t *schema.TableDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(t.Name))

	var lines []string
	for _, col := range t.OrderedColumns() {
		lines = append(lines, "  "+renderDeclaredColumn(col))
	}
	if pk := t.PrimaryKey(); pk != nil {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", quoteIdent(pk.Name)))
	}
	for _, idx := range t.Indexes {
		lines = append(lines, "  "+renderInlineIndex(idx))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci")
	return b.String()
}

func renderInlineIndex(idx schema.IndexDefinition) string {
	kind := "KEY"
	if idx.Unique {
		kind = "UNIQUE KEY"
	}
	cols := quoteColumnList(idx.Columns)
	return fmt.Sprintf("%s %s (%s)", kind, quoteIdent(idx.Name), cols)
}

func quoteColumnList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return strings.Join(out, ", ")
}

func renderAddColumn(table string, c *schema.ColumnDefinition) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(table), renderDeclaredColumn(c))
}

func renderModifyColumn(table string, c *schema.ColumnDefinition) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", quoteIdent(table), renderDeclaredColumn(c))
}

func renderAddIndex(table string, idx schema.IndexDefinition) string {
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %s %s (%s)", quoteIdent(table), kind, quoteIdent(idx.Name), quoteColumnList(idx.Columns))
}

func renderDropIndex(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", quoteIdent(table), quoteIdent(name))
}

func renderAddFK(fk *schema.ForeignKeyDefinition) string {
	return fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		quoteIdent(fk.Table), quoteIdent(fk.Name()), quoteIdent(fk.Column),
		quoteIdent(fk.ReferencedTable), quoteIdent(fk.ReferencedColumn),
		fk.OnDelete, fk.OnUpdate,
	)
}

func renderDropFK(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", quoteIdent(table), quoteIdent(name))
}

func renderDropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s", quoteIdent(table))
}

// renderDeprecateComment builds the MODIFY COLUMN phase-1 drop statement:
// the live column rebuilt verbatim with the sentinel comment appended.
// MODIFY COLUMN without a type resets the column, so the full live
// definition is reconstructed from DbColumnState.
func renderDeprecateComment(table string, live *schema.DbColumnState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s MODIFY COLUMN %s %s", quoteIdent(table), quoteIdent(live.Name), live.ColumnType)
	if !live.Nullable {
		b.WriteString(" NOT NULL")
	} else {
		b.WriteString(" NULL")
	}
	if live.Default != nil {
		if isBareLiteral(*live.Default) {
			fmt.Fprintf(&b, " DEFAULT %s", *live.Default)
		} else {
			fmt.Fprintf(&b, " DEFAULT '%s'", strings.ReplaceAll(*live.Default, "'", "''"))
		}
	}
	if live.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	fmt.Fprintf(&b, " COMMENT '%s'", schema.DeprecatedSentinel)
	return b.String()
}

func renderDeprecateTableComment(table string) string {
	return fmt.Sprintf("ALTER TABLE %s COMMENT = '%s'", quoteIdent(table), schema.DeprecatedSentinel)
}
