// Package resource defines the struct-tag annotation vocabulary the
// collector reads and the small set of optional capabilities a resource
// type may implement.
//
// Tag vocabulary (all on exported struct fields):
//
//	table:"name"            on an embedded Base field: FromTable{name}
//	mapTo:"MethodName"       alongside table: FromTable{mapTo} — requires DomainMapper
//	db:"col_name"            column DB name (defaults to the field name, snake_cased)
//	type:"varchar"           one of the ColumnType enum values
//	length:"255"             Column{length}
//	precision:"10" scale:"2" Column{precision,scale}
//	default:"..."            Column{default}
//	nullable:"true"          Column{nullable}; pointer-typed fields are nullable implicitly
//	pk:"auto|uuid|manual"    PrimaryKey{strategy}
//	deprecated:"true"        Deprecated
//	filterable:"true"        Filterable{} — auto-adds idx_{table}_{col}
//	aggregate:"true"         Aggregate — virtual, no column/storage
//	relation:"belongsTo|hasMany|oneToOne|manyToMany"
//	target:"TypeName"        RelationMeta{targetClass} — registered type name
//	fk:"user_id"             RelationMeta{foreignKey}
//	pivot:"table_name"       ManyToMany only
//	relatedKey:"tag_id"      ManyToMany only
//	onDelete:"CASCADE"       relation FK action override
//	onUpdate:"CASCADE"       relation FK action override
package resource

// Base is embedded in every mapped resource type to carry the table-level
// tags (`table:"..."`, optional `mapTo:"..."`) since Go has no type-level
// annotations.
type Base struct{}

// DomainMapper is implemented by resources declaring FromTable{mapTo}.
type DomainMapper interface {
	ToDomain() (any, error)
}

// Defaulter is implemented by seed-eligible resource types, the ones the
// seed runner upserts rows for.
type Defaulter interface {
	// Defaults returns the seed rows for this type, PK values included.
	Defaults() []any
}

// IndexSpec is a class-level Index{columns, unique, name?} declaration,
// returned by resource types that need composite indexes beyond the
// per-field Filterable auto-index.
type IndexSpec struct {
	Columns []string
	Unique  bool
	Name    string
}

// IndexedResource is implemented by resource types declaring class-level
// indexes.
type IndexedResource interface {
	ResourceIndexes() []IndexSpec
}

// TenantScoped is implemented by resource types declaring
// TenantScoped{strategy}.
type TenantScoped interface {
	TenantScopeStrategy() string // "same_storage" is the only recognized strategy
}

// typeRegistry maps a relation's `target:"TypeName"` tag value to a zero value
// of the target type, so the collector and relation loader can resolve
// relation targets without an import cycle between resource types.
var typeRegistry = map[string]any{}

// Register associates a type name with a zero-value instance. Call from an
// init() in the package declaring the resource type.
func Register(name string, zero any) { typeRegistry[name] = zero }

// Lookup resolves a registered type name to its zero-value instance.
func Lookup(name string) (any, bool) {
	v, ok := typeRegistry[name]
	return v, ok
}

// All returns every registered zero-value instance, so the collector can
// build one consistent schema across every resource type the process knows
// about: a single process-wide declared schema, not one rebuilt per type
// in isolation.
func All() []any {
	out := make([]any, 0, len(typeRegistry))
	for _, v := range typeRegistry {
		out = append(out, v)
	}
	return out
}
