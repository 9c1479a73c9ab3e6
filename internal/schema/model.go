// Package schema holds the normalized table/column/index/foreign-key model
// built by the collector from annotated resource types, plus the live-state
// mirror populated by the reader and consumed only by the comparator.
package schema

import "fmt"

// ColumnType is the closed enumeration of MySQL physical types the collector
// may emit.
type ColumnType string

const (
	Varchar    ColumnType = "varchar"
	Char       ColumnType = "char"
	Text       ColumnType = "text"
	MediumText ColumnType = "mediumtext"
	LongText   ColumnType = "longtext"
	TinyInt    ColumnType = "tinyint"
	SmallInt   ColumnType = "smallint"
	Int        ColumnType = "int"
	BigInt     ColumnType = "bigint"
	Float      ColumnType = "float"
	Double     ColumnType = "double"
	Decimal    ColumnType = "decimal"
	Boolean    ColumnType = "boolean"
	DateTime   ColumnType = "datetime"
	Timestamp  ColumnType = "timestamp"
	Date       ColumnType = "date"
	Time       ColumnType = "time"
	Year       ColumnType = "year"
	JSON       ColumnType = "json"
	Blob       ColumnType = "blob"
	Binary     ColumnType = "binary"
)

// ForeignKeyAction is the set of ON DELETE / ON UPDATE referential actions.
type ForeignKeyAction string

const (
	Restrict ForeignKeyAction = "RESTRICT"
	Cascade  ForeignKeyAction = "CASCADE"
	SetNull  ForeignKeyAction = "SET NULL"
	NoAction ForeignKeyAction = "NO ACTION"
)

// PkStrategy identifies how a primary key's value is produced.
type PkStrategy string

const (
	PkAuto   PkStrategy = "auto"
	PkUUID   PkStrategy = "uuid"
	PkManual PkStrategy = "manual"
)

// RelationKind enumerates the four supported relation shapes.
type RelationKind string

const (
	BelongsTo  RelationKind = "BelongsTo"
	HasMany    RelationKind = "HasMany"
	OneToOne   RelationKind = "OneToOne"
	ManyToMany RelationKind = "ManyToMany"
)

// ColumnDefinition is an immutable record produced by the collector.
type ColumnDefinition struct {
	Name         string // DB column name
	PropertyName string // source-side field name
	Type         ColumnType
	SourceType   string // declared in-memory type, for diagnostics
	Nullable     bool
	Length       *int
	Precision    *int
	Scale        *int
	Default      any
	IsPrimaryKey bool
	PkStrategy   PkStrategy
	IsDeprecated bool
	Filterable   bool
}

// IndexDefinition describes a (possibly multi-column) index.
type IndexDefinition struct {
	Columns []string
	Unique  bool
	Name    string // generated if empty at collection time
}

// ForeignKeyDefinition describes one FK constraint, owned by Table.
type ForeignKeyDefinition struct {
	Table            string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         ForeignKeyAction
	OnUpdate         ForeignKeyAction
}

// Name returns the deterministic constraint name fk_{table}_{column}.
func (fk ForeignKeyDefinition) Name() string {
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// RelationMeta describes one declared relation field.
type RelationMeta struct {
	Property     string
	Kind         RelationKind
	TargetClass  string // registered type name of the related resource
	ForeignKey   string
	PivotTable   string
	RelatedKey   string
}

// TableDefinition owns the full declared shape of one table.
type TableDefinition struct {
	Name        string
	Columns     map[string]*ColumnDefinition // keyed by DB column name
	ColumnOrder []string                     // insertion order, for deterministic DDL
	Indexes     []IndexDefinition
	ForeignKeys []ForeignKeyDefinition
	Relations   map[string]RelationMeta // keyed by source property name
}

func NewTableDefinition(name string) *TableDefinition {
	return &TableDefinition{
		Name:      name,
		Columns:   map[string]*ColumnDefinition{},
		Relations: map[string]RelationMeta{},
	}
}

// AddColumn appends a column, preserving declaration order.
func (t *TableDefinition) AddColumn(c *ColumnDefinition) {
	if _, exists := t.Columns[c.Name]; exists {
		return // duplicate columns across mixins merge silently; first wins
	}
	t.Columns[c.Name] = c
	t.ColumnOrder = append(t.ColumnOrder, c.Name)
}

// OrderedColumns returns columns in declaration order.
func (t *TableDefinition) OrderedColumns() []*ColumnDefinition {
	out := make([]*ColumnDefinition, 0, len(t.ColumnOrder))
	for _, n := range t.ColumnOrder {
		out = append(out, t.Columns[n])
	}
	return out
}

// PrimaryKey returns the single PK column, if any.
func (t *TableDefinition) PrimaryKey() *ColumnDefinition {
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			return c
		}
	}
	return nil
}

// Schema is the full declared schema: all tables by name.
type Schema struct {
	Tables map[string]*TableDefinition
	Order  []string // table declaration order (source scan order)
}

func NewSchema() *Schema {
	return &Schema{Tables: map[string]*TableDefinition{}}
}

func (s *Schema) AddTable(t *TableDefinition) {
	if _, exists := s.Tables[t.Name]; exists {
		return
	}
	s.Tables[t.Name] = t
	s.Order = append(s.Order, t.Name)
}

// --- Live state mirror, populated by the reader, consumed only by the comparator ---

const DeprecatedSentinel = "SEMITEXA_DEPRECATED"

type DbColumnState struct {
	TableName     string
	Name          string
	ColumnType    string // e.g. "varchar(255)", "int(11)"
	DataType      string // e.g. "varchar"
	Nullable      bool
	Default       *string
	IsPrimaryKey  bool
	AutoIncrement bool
	CharMaxLen    *int64
	Precision     *int64
	Scale         *int64
	Comment       string
}

// IsDeprecatedColumn reports whether this column already carries the
// two-phase-drop sentinel comment.
func (c *DbColumnState) IsDeprecatedColumn() bool { return c.Comment == DeprecatedSentinel }

type DbIndexState struct {
	Name    string
	Columns []string
	Unique  bool
}

type DbForeignKeyState struct {
	Table            string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         ForeignKeyAction
	OnUpdate         ForeignKeyAction
}

type DbTableState struct {
	Name        string
	Comment     string
	Columns     map[string]*DbColumnState
	ColumnOrder []string
	Indexes     []DbIndexState
	ForeignKeys []DbForeignKeyState
}

func NewDbTableState(name string) *DbTableState {
	return &DbTableState{Name: name, Columns: map[string]*DbColumnState{}}
}

func (t *DbTableState) AddColumn(c *DbColumnState) {
	t.Columns[c.Name] = c
	t.ColumnOrder = append(t.ColumnOrder, c.Name)
}

// IsDeprecated reports whether this table has already been marked for drop.
func (t *DbTableState) IsDeprecated() bool { return t.Comment == DeprecatedSentinel }

// DbState is the full live-database mirror read by the reader.
type DbState struct {
	Tables map[string]*DbTableState
}

func NewDbState() *DbState { return &DbState{Tables: map[string]*DbTableState{}} }
