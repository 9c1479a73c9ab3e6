// Package compare diffs a declared schema.Schema against live
// schema.DbState and fills a schema.SchemaDiff.
package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/semitexa/semitexa/internal/schema"
)

// Compare returns the full diff between declared and live state.
func Compare(declared *schema.Schema, live *schema.DbState) *schema.SchemaDiff {
	d := schema.NewSchemaDiff()

	for _, name := range declared.Order {
		table := declared.Tables[name]
		liveTable, exists := live.Tables[name]
		if !exists {
			d.TablesToCreate = append(d.TablesToCreate, table)
			for i := range table.ForeignKeys {
				d.ForeignKeysToAdd = append(d.ForeignKeysToAdd, schema.FkChange{Table: table.Name, Declared: &table.ForeignKeys[i]})
			}
			continue
		}
		compareColumns(d, table, liveTable)
		compareIndexes(d, table, liveTable)
		compareForeignKeys(d, table, liveTable)
	}

	for name, liveTable := range live.Tables {
		if _, declaredExists := declared.Tables[name]; !declaredExists {
			d.TablesToDrop = append(d.TablesToDrop, liveTable)
		}
	}

	return d
}

func compareColumns(d *schema.SchemaDiff, table *schema.TableDefinition, live *schema.DbTableState) {
	for _, col := range table.OrderedColumns() {
		liveCol, exists := live.Columns[col.Name]
		if !exists {
			d.ColumnsToAdd = append(d.ColumnsToAdd, schema.ColumnChange{Table: table.Name, Declared: col})
			continue
		}
		if reasons := columnDiffers(col, liveCol); len(reasons) > 0 {
			d.ColumnsToAlter = append(d.ColumnsToAlter, schema.ColumnChange{
				Table: table.Name, Declared: col, Live: liveCol, Reasons: reasons,
			})
		}
	}
	for name, liveCol := range live.Columns {
		if _, declaredExists := table.Columns[name]; !declaredExists {
			d.ColumnsToDrop = append(d.ColumnsToDrop, schema.ColumnChange{Table: table.Name, Live: liveCol})
		}
	}
}

// columnDiffers compares a declared column against its live counterpart
// across type, nullability, auto-increment, and default.
func columnDiffers(declared *schema.ColumnDefinition, live *schema.DbColumnState) []string {
	var reasons []string

	expected := BuildExpectedType(declared)
	if normalizeType(expected) != normalizeType(live.ColumnType) {
		reasons = append(reasons, fmt.Sprintf("type: %s -> %s", live.ColumnType, expected))
	}

	if declared.Nullable != live.Nullable {
		reasons = append(reasons, fmt.Sprintf("nullable: %v -> %v", live.Nullable, declared.Nullable))
	}

	declaredAutoIncrement := declared.IsPrimaryKey && declared.PkStrategy == schema.PkAuto &&
		isIntegerType(declared.Type)
	if declaredAutoIncrement != live.AutoIncrement {
		reasons = append(reasons, fmt.Sprintf("auto_increment: %v -> %v", live.AutoIncrement, declaredAutoIncrement))
	}

	declaredDefault := NormalizeDefault(declared)
	liveDefault := "null"
	if live.Default != nil {
		liveDefault = *live.Default
	}
	if declaredDefault != liveDefault {
		reasons = append(reasons, fmt.Sprintf("default: %s -> %s", liveDefault, declaredDefault))
	}

	return reasons
}

func isIntegerType(t schema.ColumnType) bool {
	switch t {
	case schema.TinyInt, schema.SmallInt, schema.Int, schema.BigInt, schema.Year:
		return true
	}
	return false
}

// BuildExpectedType renders the MySQL column-type string the declared
// column should have, for comparison against INFORMATION_SCHEMA.COLUMN_TYPE.
func BuildExpectedType(c *schema.ColumnDefinition) string {
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

// normalizeType strips integer display widths, lowercases and trims.
func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, prefix := range []string{"tinyint", "smallint", "mediumint", "int", "bigint"} {
		if strings.HasPrefix(t, prefix) {
			rest := t[len(prefix):]
			if strings.HasPrefix(rest, "(") {
				if idx := strings.Index(rest, ")"); idx >= 0 {
					rest = rest[idx+1:]
				}
			}
			return prefix + strings.TrimSpace(rest)
		}
	}
	return t
}

// NormalizeDefault renders the declared default the exact way MySQL stores
// it.
func NormalizeDefault(c *schema.ColumnDefinition) string {
	if c.Default == nil {
		return "null"
	}
	switch v := c.Default.(type) {
	case bool:
		if v {
			return "1"
		}
		return "0"
	case string:
		return v
	case int, int64, int32:
		return fmt.Sprintf("%v", v)
	case float64, float32:
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func compareIndexes(d *schema.SchemaDiff, table *schema.TableDefinition, live *schema.DbTableState) {
	liveByName := map[string]*schema.DbIndexState{}
	for i := range live.Indexes {
		liveByName[live.Indexes[i].Name] = &live.Indexes[i]
	}
	seen := map[string]bool{}
	for i := range table.Indexes {
		idx := &table.Indexes[i]
		seen[idx.Name] = true
		liveIdx, exists := liveByName[idx.Name]
		if !exists {
			d.IndexesToAdd = append(d.IndexesToAdd, schema.IndexChange{Table: table.Name, Declared: idx})
			continue
		}
		if !sameColumns(idx.Columns, liveIdx.Columns) || idx.Unique != liveIdx.Unique {
			d.IndexesToDrop = append(d.IndexesToDrop, schema.IndexChange{Table: table.Name, Live: liveIdx})
			d.IndexesToAdd = append(d.IndexesToAdd, schema.IndexChange{Table: table.Name, Declared: idx})
		}
	}
	for name, liveIdx := range liveByName {
		if !seen[name] {
			d.IndexesToDrop = append(d.IndexesToDrop, schema.IndexChange{Table: table.Name, Live: liveIdx})
		}
	}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func compareForeignKeys(d *schema.SchemaDiff, table *schema.TableDefinition, live *schema.DbTableState) {
	liveByName := map[string]*schema.DbForeignKeyState{}
	for i := range live.ForeignKeys {
		liveByName[fmt.Sprintf("fk_%s_%s", live.ForeignKeys[i].Table, live.ForeignKeys[i].Column)] = &live.ForeignKeys[i]
	}
	seen := map[string]bool{}
	for i := range table.ForeignKeys {
		fk := &table.ForeignKeys[i]
		name := fk.Name()
		seen[name] = true
		liveFk, exists := liveByName[name]
		if !exists {
			d.ForeignKeysToAdd = append(d.ForeignKeysToAdd, schema.FkChange{Table: table.Name, Declared: fk})
			continue
		}
		if liveFk.ReferencedTable != fk.ReferencedTable || liveFk.ReferencedColumn != fk.ReferencedColumn ||
			liveFk.OnDelete != fk.OnDelete || liveFk.OnUpdate != fk.OnUpdate {
			d.ForeignKeysToDrop = append(d.ForeignKeysToDrop, schema.FkChange{Table: table.Name, Live: liveFk})
			d.ForeignKeysToAdd = append(d.ForeignKeysToAdd, schema.FkChange{Table: table.Name, Declared: fk})
		}
	}
	for name, liveFk := range liveByName {
		if !seen[name] {
			d.ForeignKeysToDrop = append(d.ForeignKeysToDrop, schema.FkChange{Table: table.Name, Live: liveFk})
		}
	}
}

// --- destructive classification ---

// IsAlterDestructive reports whether an ALTER COLUMN is destructive: true
// unless every differing axis is nullability/default/auto-increment, or a
// type change that is a recognized widening.
func IsAlterDestructive(reasons []string, declared *schema.ColumnDefinition, live *schema.DbColumnState) bool {
	typeChanged := false
	for _, r := range reasons {
		if strings.HasPrefix(r, "type:") {
			typeChanged = true
		}
	}
	if !typeChanged {
		return false
	}
	return !isWideningChange(live.ColumnType, BuildExpectedType(declared))
}

func isWideningChange(from, to string) bool {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))

	if fn, fl, ok := varcharLike(from, "varchar"); ok {
		if tn, tl, ok2 := varcharLike(to, "varchar"); ok2 && fn == tn {
			return tl >= fl
		}
	}
	if _, _, ok := varcharLike(from, "varchar"); ok {
		if isTextFamily(to) {
			return true
		}
	}
	if fromTextRank, ok := textRank(from); ok {
		if toTextRank, ok2 := textRank(to); ok2 {
			return toTextRank >= fromTextRank
		}
	}
	if fromRank, ok := intRank(from); ok {
		if toRank, ok2 := intRank(to); ok2 {
			return toRank >= fromRank
		}
	}
	if from == "float" && to == "double" {
		return true
	}
	if fn, fl, ok := varcharLike(from, "char"); ok {
		if tn, tl, ok2 := varcharLike(to, "char"); ok2 && fn == tn {
			return tl >= fl
		}
		if isVarchar(to) {
			return true
		}
	}
	return false
}

func varcharLike(t, want string) (name string, length int, ok bool) {
	idx := strings.Index(t, "(")
	if idx < 0 {
		return "", 0, false
	}
	base := t[:idx]
	if base != want {
		return "", 0, false
	}
	end := strings.Index(t, ")")
	if end < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(t[idx+1 : end])
	if err != nil {
		return "", 0, false
	}
	return base, n, true
}

func isVarchar(t string) bool {
	_, _, ok := varcharLike(t, "varchar")
	return ok
}

func isTextFamily(t string) bool {
	_, ok := textRank(t)
	return ok
}

func textRank(t string) (int, bool) {
	switch {
	case strings.HasPrefix(t, "text"):
		return 1, true
	case strings.HasPrefix(t, "mediumtext"):
		return 2, true
	case strings.HasPrefix(t, "longtext"):
		return 3, true
	}
	return 0, false
}

func intRank(t string) (int, bool) {
	switch {
	case strings.HasPrefix(t, "tinyint"):
		return 1, true
	case strings.HasPrefix(t, "smallint"):
		return 2, true
	case strings.HasPrefix(t, "int"):
		return 3, true
	case strings.HasPrefix(t, "bigint"):
		return 4, true
	}
	return 0, false
}
