// Package collector turns annotated resource types (internal/resource
// struct tags) into the normalized schema.Schema model.
package collector

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/semitexa/semitexa/internal/resource"
	"github.com/semitexa/semitexa/internal/schema"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Result is the outcome of a collection pass: the collector accumulates
// errors/warnings rather than aborting partway through.
type Result struct {
	Schema   *schema.Schema
	Errors   []error
	Warnings []string
}

func (r *Result) addErr(format string, a ...any) {
	r.Errors = append(r.Errors, fmt.Errorf(format, a...))
}

func (r *Result) addWarn(format string, a ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, a...))
}

// pendingRelation captures a relation tag read off a field before the FK
// resolution pass runs (target tables must all exist first).
type pendingRelation struct {
	ownerTable string
	meta       schema.RelationMeta
	onDelete   schema.ForeignKeyAction // explicit override, "" if not declared
	onUpdate   schema.ForeignKeyAction
}

// Collect scans every type in types (each a zero-value struct instance) and
// returns the declared schema plus accumulated errors/warnings. Any error
// aborts sync before DB contact.
func Collect(types []any) *Result {
	res := &Result{Schema: schema.NewSchema()}
	var pending []pendingRelation

	for _, v := range types {
		collectOne(res, v, &pending)
	}

	resolveForeignKeys(res, pending)
	synthesizePivots(res, pending)
	validateTables(res)

	return res
}

func collectOne(res *Result, v any, pending *[]pendingRelation) {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		res.addErr("collect %s: not a struct", t)
		return
	}

	tableName, mapTo, ok := findTableTag(t)
	if !ok {
		res.addErr("collect %s: missing table tag on embedded resource.Base", t.Name())
		return
	}
	if !identifierRe.MatchString(tableName) {
		res.addErr("collect %s: table name %q is not a valid identifier", t.Name(), tableName)
		return
	}
	if mapTo != "" {
		if _, implements := v.(resource.DomainMapper); !implements {
			res.addErr("collect %s: mapTo=%q declared but type does not implement DomainMapper", t.Name(), mapTo)
		}
	}

	table := schema.NewTableDefinition(tableName)

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == reflect.TypeOf(resource.Base{}) {
			continue
		}
		if !f.IsExported() {
			continue
		}

		if rel, isRelation := f.Tag.Lookup("relation"); isRelation {
			meta, onDelete, onUpdate, err := buildRelationMeta(f, rel)
			if err != nil {
				res.addErr("collect %s.%s: %v", t.Name(), f.Name, err)
				continue
			}
			table.Relations[meta.Property] = meta
			*pending = append(*pending, pendingRelation{
				ownerTable: tableName, meta: meta, onDelete: onDelete, onUpdate: onUpdate,
			})
			continue
		}

		if _, isAggregate := f.Tag.Lookup("aggregate"); isAggregate {
			continue // virtual field: no column, no storage
		}

		col, err := buildColumn(tableName, f)
		if err != nil {
			res.addErr("collect %s.%s: %v", t.Name(), f.Name, err)
			continue
		}
		if col == nil {
			continue // field has no db/type tag: not a mapped column
		}
		table.AddColumn(col)

		if _, deprecated := f.Tag.Lookup("deprecated"); deprecated {
			col.IsDeprecated = true
			if referencedByIndexOrFK(table, col.Name) {
				res.addWarn("%s.%s is deprecated but still referenced by an index or foreign key", tableName, col.Name)
			}
		}

		if filt, isFilterable := f.Tag.Lookup("filterable"); isFilterable && filt != "false" {
			col.Filterable = true
			idxName := fmt.Sprintf("idx_%s_%s", tableName, col.Name)
			table.Indexes = append(table.Indexes, schema.IndexDefinition{
				Columns: []string{col.Name},
				Unique:  false,
				Name:    idxName,
			})
		}
	}

	if idxSrc, ok := v.(resource.IndexedResource); ok {
		for _, spec := range idxSrc.ResourceIndexes() {
			name := spec.Name
			if name == "" {
				name = generatedIndexName(tableName, spec.Columns, spec.Unique)
			}
			table.Indexes = append(table.Indexes, schema.IndexDefinition{
				Columns: spec.Columns, Unique: spec.Unique, Name: name,
			})
		}
	}

	if ts, ok := v.(resource.TenantScoped); ok {
		strategy := ts.TenantScopeStrategy()
		if strategy == "same_storage" {
			if _, exists := table.Columns["tenant_id"]; !exists {
				n := 64
				table.AddColumn(&schema.ColumnDefinition{
					Name: "tenant_id", PropertyName: "tenant_id",
					Type: schema.Varchar, SourceType: "string", Nullable: false, Length: &n,
				})
			}
		}
	}

	res.Schema.AddTable(table)
}

func findTableTag(t reflect.Type) (name, mapTo string, ok bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == reflect.TypeOf(resource.Base{}) {
			if tag, present := f.Tag.Lookup("table"); present {
				return tag, f.Tag.Get("mapTo"), true
			}
		}
	}
	return "", "", false
}

func referencedByIndexOrFK(t *schema.TableDefinition, col string) bool {
	for _, idx := range t.Indexes {
		for _, c := range idx.Columns {
			if c == col {
				return true
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		if fk.Column == col {
			return true
		}
	}
	return false
}

func generatedIndexName(table string, cols []string, unique bool) string {
	prefix := "idx"
	if unique {
		prefix = "uniq"
	}
	return fmt.Sprintf("%s_%s_%s", prefix, table, strings.Join(cols, "_"))
}

// buildColumn builds a ColumnDefinition from a struct field's tags. Returns
// (nil, nil) if the field carries no db/type/pk tag (i.e. is not mapped).
func buildColumn(table string, f reflect.StructField) (*schema.ColumnDefinition, error) {
	dbName, hasDb := f.Tag.Lookup("db")
	typeTag, hasType := f.Tag.Lookup("type")
	pkTag, hasPk := f.Tag.Lookup("pk")
	if !hasDb && !hasType && !hasPk {
		return nil, nil
	}
	if !hasDb {
		dbName = toSnakeCase(f.Name)
	}
	if !identifierRe.MatchString(dbName) {
		return nil, fmt.Errorf("column name %q is not a valid identifier", dbName)
	}

	ft := f.Type
	nullable := f.Tag.Get("nullable") == "true"
	if ft.Kind() == reflect.Ptr {
		nullable = true
		ft = ft.Elem()
	}

	var colType schema.ColumnType
	if hasType {
		colType = schema.ColumnType(typeTag)
	} else {
		colType = inferColumnType(ft)
	}

	if err := checkCompatibility(colType, ft); err != nil {
		return nil, err
	}

	col := &schema.ColumnDefinition{
		Name:         dbName,
		PropertyName: f.Name,
		Type:         colType,
		SourceType:   ft.String(),
		Nullable:     nullable,
	}

	if l, ok := f.Tag.Lookup("length"); ok {
		if n, err := strconv.Atoi(l); err == nil {
			col.Length = &n
		}
	}
	if p, ok := f.Tag.Lookup("precision"); ok {
		if n, err := strconv.Atoi(p); err == nil {
			col.Precision = &n
		}
	}
	if s, ok := f.Tag.Lookup("scale"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			col.Scale = &n
		}
	}
	if d, ok := f.Tag.Lookup("default"); ok {
		col.Default = d
	}

	if hasPk {
		col.IsPrimaryKey = true
		strategy := schema.PkStrategy(pkTag)
		if strategy == "" {
			strategy = schema.PkAuto
		}
		col.PkStrategy = strategy
		if strategy == schema.PkAuto && ft.Kind() == reflect.String {
			return nil, fmt.Errorf("string-typed primary key %q cannot use pkStrategy=auto", dbName)
		}
		if strategy == schema.PkUUID && colType != schema.Binary && colType != schema.Varchar {
			return nil, fmt.Errorf("pkStrategy=uuid on %q requires column type binary or varchar, got %s", dbName, colType)
		}
	}

	return col, nil
}

func inferColumnType(ft reflect.Type) schema.ColumnType {
	switch {
	case ft == reflect.TypeOf(time.Time{}):
		return schema.DateTime
	case ft.Kind() == reflect.Bool:
		return schema.Boolean
	case ft.Kind() == reflect.String:
		return schema.Varchar
	case ft.Kind() == reflect.Float32 || ft.Kind() == reflect.Float64:
		return schema.Double
	case isIntKind(ft.Kind()):
		return schema.Int
	case ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8:
		return schema.Blob
	default:
		return schema.JSON
	}
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// checkCompatibility checks a declared column type against the Go field
// type it's bound to. Backed enumerations (named types over string/int)
// are unwrapped to their
// backing scalar automatically because reflect.Kind resolves through named
// types; a non-backed enum (anything else) falls through to the default
// rejection branch.
func checkCompatibility(ct schema.ColumnType, ft reflect.Type) error {
	k := ft.Kind()
	stringLike := k == reflect.String
	integer := isIntKind(k)
	floating := k == reflect.Float32 || k == reflect.Float64
	boolean := k == reflect.Bool
	isTime := ft == reflect.TypeOf(time.Time{})
	byteBuffer := k == reflect.Slice && ft.Elem().Kind() == reflect.Uint8
	arrayLike := k == reflect.Slice || k == reflect.Map
	decimalLike := stringLike || floating || ft.String() == "decimal.Decimal"

	ok := false
	switch ct {
	case schema.Varchar, schema.Char, schema.Text, schema.MediumText, schema.LongText, schema.Time:
		ok = stringLike
	case schema.JSON:
		ok = stringLike || arrayLike
	case schema.TinyInt, schema.SmallInt, schema.Int, schema.BigInt, schema.Year:
		ok = integer
	case schema.Float, schema.Double:
		ok = floating
	case schema.Decimal:
		ok = decimalLike
	case schema.Boolean:
		ok = boolean || integer
	case schema.DateTime, schema.Timestamp, schema.Date:
		ok = isTime || stringLike
	case schema.Blob, schema.Binary:
		ok = byteBuffer || stringLike
	default:
		return fmt.Errorf("unknown column type %q", ct)
	}
	if !ok {
		return fmt.Errorf("declared type %s is not compatible with SQL type %s", ft, ct)
	}
	return nil
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteByte(byte(r - 'A' + 'a'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
